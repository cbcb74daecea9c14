package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/launchboard/internal/model"
)

// --- モック定義 ---

type mockSessionRepository struct {
	findByIDFn func(ctx context.Context, id string) (*model.Session, error)
}

func (m *mockSessionRepository) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

// --- テスト ---

func TestSessionMiddleware_ValidSession_InjectsUserID(t *testing.T) {
	repo := &mockSessionRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			if id == "valid-session-id" {
				return &model.Session{ID: id, UserID: "user-123", ExpiresAt: time.Now().Add(time.Hour)}, nil
			}
			return nil, nil
		},
	}

	var captured string
	h := NewSessionMiddleware(repo)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := UserIDFromContext(r.Context())
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		captured = userID
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/user/me", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "valid-session-id"})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if captured != "user-123" {
		t.Errorf("userID = %q, want user-123", captured)
	}
}

func TestSessionMiddleware_Rejects(t *testing.T) {
	tests := []struct {
		name       string
		cookie     *http.Cookie
		find       func(ctx context.Context, id string) (*model.Session, error)
		wantStatus int
		wantCode   string
	}{
		{"Cookieなし", nil, nil, http.StatusUnauthorized, model.ErrCodeUnauthorized},
		{"空のCookie", &http.Cookie{Name: sessionCookieName, Value: ""}, nil, http.StatusUnauthorized, model.ErrCodeUnauthorized},
		{"期限切れ（リポジトリがnilを返す）", &http.Cookie{Name: sessionCookieName, Value: "expired"}, nil, http.StatusUnauthorized, model.ErrCodeUnauthorized},
		{"期限を過ぎたセッション", &http.Cookie{Name: sessionCookieName, Value: "stale"},
			func(ctx context.Context, id string) (*model.Session, error) {
				return &model.Session{ID: id, UserID: "user-1", ExpiresAt: time.Now().Add(-time.Minute)}, nil
			}, http.StatusUnauthorized, model.ErrCodeUnauthorized},
		{"リポジトリエラー", &http.Cookie{Name: sessionCookieName, Value: "x"},
			func(ctx context.Context, id string) (*model.Session, error) {
				return nil, errors.New("db down")
			}, http.StatusInternalServerError, model.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSessionMiddleware(&mockSessionRepository{findByIDFn: tt.find})(http.HandlerFunc(
				func(w http.ResponseWriter, r *http.Request) {
					t.Fatal("handler should not be called")
				}))

			req := httptest.NewRequest(http.MethodPost, "/api/jobs", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body ErrorResponseBody
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
		})
	}
}

func TestUserIDFromContext(t *testing.T) {
	if _, err := UserIDFromContext(context.Background()); !errors.Is(err, ErrNoUserID) {
		t.Errorf("err = %v, want ErrNoUserID", err)
	}

	got, err := UserIDFromContext(ContextWithUserID(context.Background(), "user-456"))
	if err != nil || got != "user-456" {
		t.Errorf("UserIDFromContext() = %q, %v", got, err)
	}
}
