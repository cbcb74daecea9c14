package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/launchboard/internal/event"
	"github.com/hitoshi/launchboard/internal/metrics"
	"github.com/hitoshi/launchboard/internal/model"
)

// --- モック定義 ---

type mockEventService struct {
	listFn            func(ctx context.Context, params event.ListParams) ([]model.EventWithStartup, error)
	getFn             func(ctx context.Context, eventID string) (*model.EventWithStartup, error)
	createFn          func(ctx context.Context, userID string, in event.Input) (*model.Event, error)
	updateFn          func(ctx context.Context, userID, eventID string, in event.Input) (*model.Event, error)
	deleteFn          func(ctx context.Context, userID, eventID string) error
	uploadImageFn     func(ctx context.Context, userID, eventID string, r io.Reader) (string, error)
	registerFn        func(ctx context.Context, userID, eventID string) (*model.EventRegistration, error)
	unregisterFn      func(ctx context.Context, userID, eventID string) error
	myRegistrationsFn func(ctx context.Context, userID string) ([]model.EventWithStartup, error)
	listRegistrantsFn func(ctx context.Context, userID, eventID string) ([]model.RegistrantInfo, error)
}

func (m *mockEventService) List(ctx context.Context, params event.ListParams) ([]model.EventWithStartup, error) {
	if m.listFn != nil {
		return m.listFn(ctx, params)
	}
	return []model.EventWithStartup{}, nil
}

func (m *mockEventService) Get(ctx context.Context, eventID string) (*model.EventWithStartup, error) {
	if m.getFn != nil {
		return m.getFn(ctx, eventID)
	}
	return &model.EventWithStartup{Event: model.Event{ID: eventID}}, nil
}

func (m *mockEventService) Create(ctx context.Context, userID string, in event.Input) (*model.Event, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, in)
	}
	return &model.Event{ID: testEventID, StartupID: userID, Title: in.Title}, nil
}

func (m *mockEventService) Update(ctx context.Context, userID, eventID string, in event.Input) (*model.Event, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, eventID, in)
	}
	return &model.Event{ID: eventID, StartupID: userID, Title: in.Title}, nil
}

func (m *mockEventService) Delete(ctx context.Context, userID, eventID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, eventID)
	}
	return nil
}

func (m *mockEventService) UploadImage(ctx context.Context, userID, eventID string, r io.Reader) (string, error) {
	if m.uploadImageFn != nil {
		return m.uploadImageFn(ctx, userID, eventID, r)
	}
	return "", nil
}

func (m *mockEventService) Register(ctx context.Context, userID, eventID string) (*model.EventRegistration, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, userID, eventID)
	}
	return &model.EventRegistration{ID: "reg-1", EventID: eventID, RegistrantID: userID}, nil
}

func (m *mockEventService) Unregister(ctx context.Context, userID, eventID string) error {
	if m.unregisterFn != nil {
		return m.unregisterFn(ctx, userID, eventID)
	}
	return nil
}

func (m *mockEventService) MyRegistrations(ctx context.Context, userID string) ([]model.EventWithStartup, error) {
	if m.myRegistrationsFn != nil {
		return m.myRegistrationsFn(ctx, userID)
	}
	return []model.EventWithStartup{}, nil
}

func (m *mockEventService) ListRegistrants(ctx context.Context, userID, eventID string) ([]model.RegistrantInfo, error) {
	if m.listRegistrantsFn != nil {
		return m.listRegistrantsFn(ctx, userID, eventID)
	}
	return []model.RegistrantInfo{}, nil
}

// --- テスト ---

func TestEventHandler_List_PassesQuery(t *testing.T) {
	var got event.ListParams
	svc := &mockEventService{
		listFn: func(ctx context.Context, params event.ListParams) ([]model.EventWithStartup, error) {
			got = params
			return []model.EventWithStartup{{
				Event: model.Event{
					ID:          testEventID,
					Title:       "Demo Day",
					Description: "<p>Pitch night</p>",
					Date:        time.Date(2026, 11, 3, 0, 0, 0, 0, time.UTC),
					StartTime:   "18:00",
				},
				StartupName:       "Acme",
				RegistrationCount: 12,
			}}, nil
		},
	}
	h := NewEventHandler(svc, truncatingExcerpter{}, nil, 1<<20)

	w := httptest.NewRecorder()
	h.List(w, newAuthedRequest(http.MethodGet, "/api/events?filter=upcoming&type=meetup&search=demo", nil, testIndividualID))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got.Filter != "upcoming" || got.Type != "meetup" || got.Search != "demo" {
		t.Errorf("params = %+v", got)
	}

	resp := decodeBody[[]eventWithStartupResponse](t, w)
	if len(resp) != 1 {
		t.Fatalf("len = %d, want 1", len(resp))
	}
	e := resp[0]
	if e.Date != "2026-11-03" {
		t.Errorf("date = %q, want 2026-11-03", e.Date)
	}
	if e.StartTime == nil || *e.StartTime != "18:00" {
		t.Errorf("startTime = %v, want 18:00", e.StartTime)
	}
	if e.EndTime != nil || e.ImageURL != nil {
		t.Errorf("endTime/imageUrl should be null: %v %v", e.EndTime, e.ImageURL)
	}
	if e.RegistrationCount != 12 || e.Excerpt != "Pitch night" {
		t.Errorf("response = %+v", e)
	}
}

func TestEventHandler_List_InvalidFilter(t *testing.T) {
	svc := &mockEventService{
		listFn: func(ctx context.Context, params event.ListParams) ([]model.EventWithStartup, error) {
			return nil, model.NewInvalidFilterError(params.Filter)
		},
	}
	h := NewEventHandler(svc, nil, nil, 1<<20)

	w := httptest.NewRecorder()
	h.List(w, newAuthedRequest(http.MethodGet, "/api/events?filter=tomorrow", nil, testIndividualID))

	assertErrorResponse(t, w, http.StatusBadRequest, model.ErrCodeInvalidFilter)
}

func TestEventHandler_Get(t *testing.T) {
	svc := &mockEventService{
		getFn: func(ctx context.Context, eventID string) (*model.EventWithStartup, error) {
			if eventID != testEventID {
				return nil, model.NewEventNotFoundError(eventID)
			}
			return &model.EventWithStartup{
				Event:             model.Event{ID: eventID, StartupID: testStartupID, Title: "Demo Day"},
				StartupName:       "Acme",
				RegistrationCount: 3,
			}, nil
		},
	}
	h := NewEventHandler(svc, nil, nil, 1<<20)

	tests := []struct {
		name       string
		req        *http.Request
		wantStatus int
		wantCode   string
	}{
		{
			name:       "found",
			req:        withURLParams(newAuthedRequest(http.MethodGet, "/api/events/"+testEventID, nil, testIndividualID), "id", testEventID),
			wantStatus: http.StatusOK,
		},
		{
			name:       "unknown id",
			req:        withURLParams(newAuthedRequest(http.MethodGet, "/api/events/nope", nil, testIndividualID), "id", "nope"),
			wantStatus: http.StatusNotFound,
			wantCode:   model.ErrCodeEventNotFound,
		},
		{
			name:       "no session",
			req:        withURLParams(httptest.NewRequest(http.MethodGet, "/api/events/"+testEventID, nil), "id", testEventID),
			wantStatus: http.StatusUnauthorized,
			wantCode:   model.ErrCodeUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.Get(w, tt.req)

			if tt.wantCode != "" {
				assertErrorResponse(t, w, tt.wantStatus, tt.wantCode)
				return
			}
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			resp := decodeBody[eventWithStartupResponse](t, w)
			if resp.ID != testEventID || resp.StartupName != "Acme" || resp.RegistrationCount != 3 {
				t.Errorf("response = %+v", resp)
			}
		})
	}
}

func TestEventHandler_Create_MapsRequestToInput(t *testing.T) {
	var got event.Input
	svc := &mockEventService{
		createFn: func(ctx context.Context, userID string, in event.Input) (*model.Event, error) {
			got = in
			return &model.Event{ID: testEventID, StartupID: userID, Title: in.Title,
				Date: time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)}, nil
		},
	}
	h := NewEventHandler(svc, nil, nil, 1<<20)

	body := jsonBody(t, eventRequest{
		Title: "Demo Day", Description: "d", Location: "Tokyo", Type: "meetup",
		Date: "2026-12-01", StartTime: "18:00", EndTime: "20:00",
	})
	w := httptest.NewRecorder()
	h.Create(w, newAuthedRequest(http.MethodPost, "/api/events", body, testStartupID))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (body=%s)", w.Code, http.StatusCreated, w.Body.String())
	}
	if got.Date != "2026-12-01" || got.StartTime != "18:00" || got.EndTime != "20:00" {
		t.Errorf("input = %+v", got)
	}
	resp := decodeBody[eventResponse](t, w)
	if resp.StartupID != testStartupID || resp.Date != "2026-12-01" {
		t.Errorf("response = %+v", resp)
	}
}

func TestEventHandler_Update_NotOwned(t *testing.T) {
	svc := &mockEventService{
		updateFn: func(ctx context.Context, userID, eventID string, in event.Input) (*model.Event, error) {
			return nil, model.NewEventNotFoundError(eventID)
		},
	}
	h := NewEventHandler(svc, nil, nil, 1<<20)

	req := withURLParams(newAuthedRequest(http.MethodPut, "/api/events/"+testEventID, strings.NewReader(`{}`), testStartupID), "id", testEventID)
	w := httptest.NewRecorder()
	h.Update(w, req)

	assertErrorResponse(t, w, http.StatusNotFound, model.ErrCodeEventNotFound)
}

func TestEventHandler_Delete_NoContent(t *testing.T) {
	var gotID string
	svc := &mockEventService{
		deleteFn: func(ctx context.Context, userID, eventID string) error {
			gotID = eventID
			return nil
		},
	}
	h := NewEventHandler(svc, nil, nil, 1<<20)

	req := withURLParams(newAuthedRequest(http.MethodDelete, "/api/events/"+testEventID, nil, testStartupID), "id", testEventID)
	w := httptest.NewRecorder()
	h.Delete(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if gotID != testEventID {
		t.Errorf("eventID = %q", gotID)
	}
}

func TestEventHandler_UploadImage(t *testing.T) {
	svc := &mockEventService{
		uploadImageFn: func(ctx context.Context, userID, eventID string, r io.Reader) (string, error) {
			if eventID != testEventID {
				t.Errorf("eventID = %q", eventID)
			}
			return "http://localhost:8080/storage/event-images/img.png", nil
		},
	}
	rec := &uploadRecorder{}
	h := NewEventHandler(svc, nil, rec, 1<<20)

	body, contentType := multipartBody(t, "file", "img.png", []byte("\x89PNG\r\n\x1a\n"))
	req := withURLParams(newAuthedRequest(http.MethodPost, "/api/events/"+testEventID+"/image", body, testStartupID), "id", testEventID)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	h.UploadImage(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body=%s)", w.Code, http.StatusOK, w.Body.String())
	}
	if len(rec.kinds) != 1 || rec.kinds[0] != "event-image" || rec.outcomes[0] != metrics.OutcomeCreated {
		t.Errorf("recorded = %v %v", rec.kinds, rec.outcomes)
	}
}

func TestEventHandler_UploadImage_NotMultipart(t *testing.T) {
	h := NewEventHandler(&mockEventService{}, nil, nil, 1<<20)

	req := withURLParams(newAuthedRequest(http.MethodPost, "/api/events/"+testEventID+"/image",
		strings.NewReader(`{"file":"x"}`), testStartupID), "id", testEventID)
	w := httptest.NewRecorder()
	h.UploadImage(w, req)

	assertErrorResponse(t, w, http.StatusBadRequest, model.ErrCodeValidation)
}

func TestEventHandler_Register(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{"成功", `{"eventId":"` + testEventID + `"}`, nil, http.StatusCreated, ""},
		{"重複登録", `{"eventId":"` + testEventID + `"}`, model.NewAlreadyRegisteredError(), http.StatusConflict, model.ErrCodeAlreadyRegistered},
		{"イベントなし", `{"eventId":"` + testEventID + `"}`, model.NewEventNotFoundError(testEventID), http.StatusNotFound, model.ErrCodeEventNotFound},
		{"スタートアップ", `{"eventId":"` + testEventID + `"}`, model.NewForbiddenError("個人のみ"), http.StatusForbidden, model.ErrCodeForbidden},
		{"eventId欠落", `{}`, model.NewMissingFieldsError([]string{"eventId"}), http.StatusBadRequest, model.ErrCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotEventID string
			svc := &mockEventService{
				registerFn: func(ctx context.Context, userID, eventID string) (*model.EventRegistration, error) {
					gotEventID = eventID
					if tt.serviceErr != nil {
						return nil, tt.serviceErr
					}
					return &model.EventRegistration{ID: "reg-1", EventID: eventID, RegistrantID: userID}, nil
				},
			}
			h := NewEventHandler(svc, nil, nil, 1<<20)

			w := httptest.NewRecorder()
			h.Register(w, newAuthedRequest(http.MethodPost, "/api/events/register", strings.NewReader(tt.body), testIndividualID))

			if tt.wantCode != "" {
				assertErrorResponse(t, w, tt.wantStatus, tt.wantCode)
				return
			}
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if gotEventID != testEventID {
				t.Errorf("eventID = %q", gotEventID)
			}
			resp := decodeBody[registrationResponse](t, w)
			if resp.RegistrantID != testIndividualID {
				t.Errorf("registrantId = %q", resp.RegistrantID)
			}
		})
	}
}

func TestEventHandler_Unregister_NotRegistered(t *testing.T) {
	svc := &mockEventService{
		unregisterFn: func(ctx context.Context, userID, eventID string) error {
			return model.NewRegistrationNotFoundError()
		},
	}
	h := NewEventHandler(svc, nil, nil, 1<<20)

	w := httptest.NewRecorder()
	h.Unregister(w, newAuthedRequest(http.MethodPost, "/api/events/unregister",
		strings.NewReader(`{"eventId":"`+testEventID+`"}`), testIndividualID))

	assertErrorResponse(t, w, http.StatusNotFound, model.ErrCodeRegistrationNotFound)
}

func TestEventHandler_Unregister_NoContent(t *testing.T) {
	h := NewEventHandler(&mockEventService{}, nil, nil, 1<<20)

	w := httptest.NewRecorder()
	h.Unregister(w, newAuthedRequest(http.MethodPost, "/api/events/unregister",
		strings.NewReader(`{"eventId":"`+testEventID+`"}`), testIndividualID))

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
}

func TestEventHandler_MyRegistrations(t *testing.T) {
	svc := &mockEventService{
		myRegistrationsFn: func(ctx context.Context, userID string) ([]model.EventWithStartup, error) {
			return []model.EventWithStartup{{Event: model.Event{ID: testEventID, Title: "Demo Day"}}}, nil
		},
	}
	h := NewEventHandler(svc, nil, nil, 1<<20)

	w := httptest.NewRecorder()
	h.MyRegistrations(w, newAuthedRequest(http.MethodGet, "/api/events/my-registrations", nil, testIndividualID))

	resp := decodeBody[[]eventWithStartupResponse](t, w)
	if len(resp) != 1 || resp[0].ID != testEventID {
		t.Errorf("response = %+v", resp)
	}
}

func TestEventHandler_ListRegistrants(t *testing.T) {
	svc := &mockEventService{
		listRegistrantsFn: func(ctx context.Context, userID, eventID string) ([]model.RegistrantInfo, error) {
			return []model.RegistrantInfo{{RegistrationID: "reg-1", RegistrantID: testIndividualID, FullName: "Hanako"}}, nil
		},
	}
	h := NewEventHandler(svc, nil, nil, 1<<20)

	req := withURLParams(newAuthedRequest(http.MethodGet, "/api/events/"+testEventID+"/registrations", nil, testStartupID), "id", testEventID)
	w := httptest.NewRecorder()
	h.ListRegistrants(w, req)

	resp := decodeBody[[]registrantResponse](t, w)
	if len(resp) != 1 || resp[0].FullName != "Hanako" {
		t.Errorf("response = %+v", resp)
	}
}
