package handler

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/launchboard/internal/metrics"
	"github.com/hitoshi/launchboard/internal/model"
)

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	GetOwnStartup(ctx context.Context, userID string) (*model.StartupProfile, error)
	UpdateStartup(ctx context.Context, userID string, in *model.StartupProfile) (*model.StartupProfile, error)
	GetOwnIndividual(ctx context.Context, userID string) (*model.IndividualProfile, error)
	UpdateIndividual(ctx context.Context, userID string, in *model.IndividualProfile) (*model.IndividualProfile, error)
	GetStartup(ctx context.Context, startupID string) (*model.StartupProfile, error)
	GetIndividual(ctx context.Context, individualID string) (*model.IndividualProfile, error)
	ListStartups(ctx context.Context) ([]model.StartupSummary, error)
	// StartupSummaries は指定IDのスタートアップ概要を返す。存在しないIDは除外される。
	StartupSummaries(ctx context.Context, ids []string) ([]model.StartupSummary, error)
	// UploadAsset はファイルを保存しプロフィールのURLを差し替え、新しい公開URLを返す。
	UploadAsset(ctx context.Context, userID string, kind model.AssetKind, r io.Reader) (string, error)
}

// ProfileHandler はプロフィール管理のHTTPハンドラー。
type ProfileHandler struct {
	service        ProfileServiceInterface
	metrics        metrics.MetricsCollector
	maxUploadBytes int64
}

// NewProfileHandler はProfileHandlerを生成する。
// maxUploadBytesはmultipartボディ全体の上限の基準値（最大のアセット上限）。
func NewProfileHandler(service ProfileServiceInterface, collector metrics.MetricsCollector, maxUploadBytes int64) *ProfileHandler {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &ProfileHandler{
		service:        service,
		metrics:        collector,
		maxUploadBytes: maxUploadBytes,
	}
}

// GetOwnStartup は呼び出し元スタートアップのプロフィールを返す。
// GET /api/profile/startup
func (h *ProfileHandler) GetOwnStartup(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	p, err := h.service.GetOwnStartup(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStartupProfileResponse(p))
}

// UpdateStartup は呼び出し元スタートアップのプロフィールを更新する。
// PUT /api/profile/startup
func (h *ProfileHandler) UpdateStartup(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req startupProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.service.UpdateStartup(r.Context(), userID, req.toModel())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStartupProfileResponse(p))
}

// GetOwnIndividual は呼び出し元個人のプロフィールを返す。
// GET /api/profile/individual
func (h *ProfileHandler) GetOwnIndividual(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	p, err := h.service.GetOwnIndividual(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toIndividualProfileResponse(p))
}

// UpdateIndividual は呼び出し元個人のプロフィールを更新する。
// PUT /api/profile/individual
func (h *ProfileHandler) UpdateIndividual(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req individualProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.service.UpdateIndividual(r.Context(), userID, req.toModel())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toIndividualProfileResponse(p))
}

// ListStartups はスタートアップ概要の一覧を返す。
// ?ids=a,b,c が指定された場合は指定IDのみを返す。
// GET /api/profile/startups
func (h *ProfileHandler) ListStartups(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	var (
		summaries []model.StartupSummary
		err       error
	)
	if raw := r.URL.Query().Get("ids"); strings.TrimSpace(raw) != "" {
		summaries, err = h.service.StartupSummaries(r.Context(), strings.Split(raw, ","))
	} else {
		summaries, err = h.service.ListStartups(r.Context())
	}
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStartupSummaryResponses(summaries))
}

// GetStartup は公開スタートアッププロフィールを返す。
// GET /api/profile/startups/{id}
func (h *ProfileHandler) GetStartup(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}
	p, err := h.service.GetStartup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStartupProfileResponse(p))
}

// GetIndividual は公開個人プロフィールを返す。
// GET /api/profile/individuals/{id}
func (h *ProfileHandler) GetIndividual(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}
	p, err := h.service.GetIndividual(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toIndividualProfileResponse(p))
}

// Upload はプロフィールのアセットをアップロードする。
// POST /api/profile/upload/{kind}
func (h *ProfileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	kind := model.AssetKind(chi.URLParam(r, "kind"))

	file, ok := openUploadFile(w, r, h.maxUploadBytes)
	if !ok {
		h.metrics.RecordUpload(uploadKindLabel(kind), metrics.OutcomeRejected)
		return
	}
	defer file.Close()

	url, err := h.service.UploadAsset(r.Context(), userID, kind, file)
	h.metrics.RecordUpload(uploadKindLabel(kind), uploadOutcome(err))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{URL: url})
}
