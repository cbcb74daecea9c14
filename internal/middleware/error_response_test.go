package middleware

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/launchboard/internal/model"
)

func TestStatusForAPIError(t *testing.T) {
	tests := []struct {
		err  *model.APIError
		want int
	}{
		{model.NewUnauthorizedError(), http.StatusUnauthorized},
		{model.NewForbiddenError("x"), http.StatusForbidden},
		{model.NewInvalidRequestError(), http.StatusBadRequest},
		{model.NewValidationError("x"), http.StatusBadRequest},
		{model.NewMissingFieldsError([]string{"title"}), http.StatusBadRequest},
		{model.NewInvalidFilterError("x"), http.StatusBadRequest},
		{model.NewInvalidStatusError("x"), http.StatusBadRequest},
		{model.NewUserNotFoundError(), http.StatusNotFound},
		{model.NewProfileNotFoundError(), http.StatusNotFound},
		{model.NewJobNotFoundError("x"), http.StatusNotFound},
		{model.NewApplicationNotFoundError("x"), http.StatusNotFound},
		{model.NewEventNotFoundError("x"), http.StatusNotFound},
		{model.NewRegistrationNotFoundError(), http.StatusNotFound},
		{model.NewAlreadyAppliedError(), http.StatusConflict},
		{model.NewAlreadyRegisteredError(), http.StatusConflict},
		{model.NewUserTypeAlreadySetError(), http.StatusConflict},
		{model.NewPayloadTooLargeError(1), http.StatusRequestEntityTooLarge},
		{model.NewUnsupportedMediaTypeError("x"), http.StatusUnsupportedMediaType},
		{model.NewRateLimitExceededError(), http.StatusTooManyRequests},
		{model.NewInternalError(), http.StatusInternalServerError},
		{&model.APIError{Code: "SOMETHING_NEW"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			if got := StatusForAPIError(tt.err); got != tt.want {
				t.Errorf("StatusForAPIError(%s) = %d, want %d", tt.err.Code, got, tt.want)
			}
		})
	}
}

func TestWriteErrorResponse(t *testing.T) {
	tests := []struct {
		name         string
		write        func(w http.ResponseWriter)
		wantStatus   int
		wantCode     string
		wantCategory string
	}{
		{
			name:         "duplicate application",
			write:        func(w http.ResponseWriter) { WriteErrorResponse(w, http.StatusConflict, model.NewAlreadyAppliedError()) },
			wantStatus:   http.StatusConflict,
			wantCode:     model.ErrCodeAlreadyApplied,
			wantCategory: "resource",
		},
		{
			name:         "internal error hides details",
			write:        WriteInternalServerError,
			wantStatus:   http.StatusInternalServerError,
			wantCode:     model.ErrCodeInternal,
			wantCategory: "system",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}

			var raw map[string]string
			if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
				t.Fatalf("decode: %v", err)
			}
			for _, field := range []string{"error", "code", "category", "action"} {
				if raw[field] == "" {
					t.Errorf("field %q is missing or empty in %v", field, raw)
				}
			}
			if raw["code"] != tt.wantCode || raw["category"] != tt.wantCategory {
				t.Errorf("code/category = %q/%q, want %q/%q", raw["code"], raw["category"], tt.wantCode, tt.wantCategory)
			}
		})
	}
}

func TestWriteJSONBody_EncodeFailureKeepsStatus(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSONBody(w, http.StatusOK, math.Inf(1))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
