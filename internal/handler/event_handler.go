package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/launchboard/internal/event"
	"github.com/hitoshi/launchboard/internal/metrics"
	"github.com/hitoshi/launchboard/internal/model"
)

// EventServiceInterface はイベントハンドラーが必要とするサービスインターフェース。
type EventServiceInterface interface {
	List(ctx context.Context, params event.ListParams) ([]model.EventWithStartup, error)
	Get(ctx context.Context, eventID string) (*model.EventWithStartup, error)
	Create(ctx context.Context, userID string, in event.Input) (*model.Event, error)
	Update(ctx context.Context, userID, eventID string, in event.Input) (*model.Event, error)
	Delete(ctx context.Context, userID, eventID string) error
	UploadImage(ctx context.Context, userID, eventID string, r io.Reader) (string, error)
	Register(ctx context.Context, userID, eventID string) (*model.EventRegistration, error)
	Unregister(ctx context.Context, userID, eventID string) error
	MyRegistrations(ctx context.Context, userID string) ([]model.EventWithStartup, error)
	ListRegistrants(ctx context.Context, userID, eventID string) ([]model.RegistrantInfo, error)
}

// EventHandler はイベント・参加登録のHTTPハンドラー。
type EventHandler struct {
	service       EventServiceInterface
	excerpter     Excerpter
	metrics       metrics.MetricsCollector
	maxImageBytes int64
}

// NewEventHandler はEventHandlerを生成する。
func NewEventHandler(service EventServiceInterface, excerpter Excerpter, collector metrics.MetricsCollector, maxImageBytes int64) *EventHandler {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &EventHandler{
		service:       service,
		excerpter:     excerpter,
		metrics:       collector,
		maxImageBytes: maxImageBytes,
	}
}

func (req eventRequest) toInput() event.Input {
	return event.Input{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Type:        req.Type,
		Date:        req.Date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	}
}

func (h *EventHandler) toListResponse(events []model.EventWithStartup) []eventWithStartupResponse {
	resp := make([]eventWithStartupResponse, len(events))
	for i := range events {
		resp[i] = toEventWithStartupResponse(&events[i])
		if h.excerpter != nil {
			resp[i].Excerpt = h.excerpter.Excerpt(events[i].Description, excerptRunes)
		}
	}
	return resp
}

// List はイベント一覧を返す。
// GET /api/events?startupId=&search=&type=&filter=
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	q := r.URL.Query()
	events, err := h.service.List(r.Context(), event.ListParams{
		StartupID: q.Get("startupId"),
		Search:    q.Get("search"),
		Type:      q.Get("type"),
		Filter:    q.Get("filter"),
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toListResponse(events))
}

// Get はイベントを返す。
// GET /api/events/{id}
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}
	e, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventWithStartupResponse(e))
}

// Create はイベントを作成する。
// POST /api/events
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req eventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	e, err := h.service.Create(r.Context(), userID, req.toInput())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventResponse(e))
}

// Update はイベントを更新する。
// PUT /api/events/{id}
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req eventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	e, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(e))
}

// Delete はイベントを削除する。
// DELETE /api/events/{id}
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadImage はイベント画像をアップロードする。
// POST /api/events/{id}/image
func (h *EventHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	kind := string(model.AssetEventImage)

	file, ok := openUploadFile(w, r, h.maxImageBytes)
	if !ok {
		h.metrics.RecordUpload(kind, metrics.OutcomeRejected)
		return
	}
	defer file.Close()

	url, err := h.service.UploadImage(r.Context(), userID, chi.URLParam(r, "id"), file)
	h.metrics.RecordUpload(kind, uploadOutcome(err))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{URL: url})
}

// ListRegistrants はイベントの登録者一覧を返す。
// GET /api/events/{id}/registrations
func (h *EventHandler) ListRegistrants(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	registrants, err := h.service.ListRegistrants(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]registrantResponse, len(registrants))
	for i, reg := range registrants {
		resp[i] = registrantResponse{
			RegistrationID: reg.RegistrationID,
			RegistrantID:   reg.RegistrantID,
			FullName:       reg.FullName,
			Email:          reg.Email,
			Headline:       reg.Headline,
			PictureURL:     reg.PictureURL,
			RegisteredAt:   reg.RegisteredAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Register はイベントに参加登録する。
// POST /api/events/register
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req eventIDRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	reg, err := h.service.Register(r.Context(), userID, req.EventID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, registrationResponse{
		ID:           reg.ID,
		EventID:      reg.EventID,
		RegistrantID: reg.RegistrantID,
		CreatedAt:    reg.CreatedAt,
	})
}

// Unregister はイベントの参加登録を取り消す。
// POST /api/events/unregister
func (h *EventHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req eventIDRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.service.Unregister(r.Context(), userID, req.EventID); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MyRegistrations は呼び出し元個人が登録しているイベントを返す。
// GET /api/events/my-registrations
func (h *EventHandler) MyRegistrations(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	events, err := h.service.MyRegistrations(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toListResponse(events))
}
