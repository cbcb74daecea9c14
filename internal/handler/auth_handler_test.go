package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/hitoshi/launchboard/internal/auth"
	"github.com/hitoshi/launchboard/internal/model"
)

type mockAuthService struct {
	getLoginURLFn    func(state string) string
	handleCallbackFn func(ctx context.Context, code string) (*auth.Login, error)
	logoutFn         func(ctx context.Context, sessionID string) error
	getCurrentUserFn func(ctx context.Context, sessionID string) (*model.User, error)
}

func (m *mockAuthService) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return ""
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code string) (*auth.Login, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, code)
	}
	return nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if m.getCurrentUserFn != nil {
		return m.getCurrentUserFn(ctx, sessionID)
	}
	return nil, nil
}

var testAuthConfig = AuthHandlerConfig{
	BaseURL:       "http://localhost:3000",
	CookieDomain:  "localhost",
	CookieSecure:  true,
	SessionMaxAge: 86400,
}

// findCookie はレスポンスから指定名のCookieを探す。
func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// callbackRequest はstate Cookie付きのコールバックリクエストを作る。
func callbackRequest(query string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?"+query, nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "st"})
	return req
}

func TestAuthHandler_Login(t *testing.T) {
	var gotState string
	svc := &mockAuthService{
		getLoginURLFn: func(state string) string {
			gotState = state
			return "https://accounts.google.com/o/oauth2/auth?state=" + state
		},
	}
	h := NewAuthHandler(svc, testAuthConfig)

	w := httptest.NewRecorder()
	h.Login(w, httptest.NewRequest(http.MethodGet, "/auth/google/login", nil))

	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTemporaryRedirect)
	}
	if len(gotState) != 32 {
		t.Errorf("state length = %d, want 32 hex chars", len(gotState))
	}
	loc, err := url.Parse(w.Header().Get("Location"))
	if err != nil || loc.Host != "accounts.google.com" || loc.Query().Get("state") != gotState {
		t.Errorf("Location = %q, want google URL carrying the state", w.Header().Get("Location"))
	}

	c := findCookie(w, oauthStateCookie)
	if c == nil {
		t.Fatal("state cookie not set")
	}
	if c.Value != gotState || c.MaxAge != oauthStateMaxAge || !c.HttpOnly || !c.Secure {
		t.Errorf("state cookie = %+v", c)
	}
	if c.Domain != "" {
		t.Errorf("state cookie domain = %q, want host-only", c.Domain)
	}
}

func TestAuthHandler_Callback_IssuesSession(t *testing.T) {
	tests := []struct {
		name         string
		baseURL      string
		user         *model.User
		wantLocation string
	}{
		{
			name:         "set up user goes home",
			baseURL:      "http://localhost:3000",
			user:         &model.User{ID: "u1", UserType: model.UserTypeIndividual},
			wantLocation: "http://localhost:3000",
		},
		{
			name:         "new user goes to setup",
			baseURL:      "http://localhost:3000/",
			user:         &model.User{ID: "u2"},
			wantLocation: "http://localhost:3000/setup",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotCode string
			svc := &mockAuthService{
				handleCallbackFn: func(ctx context.Context, code string) (*auth.Login, error) {
					gotCode = code
					return &auth.Login{
						Session: &model.Session{ID: "sess-" + tt.user.ID, UserID: tt.user.ID, ExpiresAt: time.Now().Add(time.Hour)},
						User:    tt.user,
					}, nil
				},
			}
			cfg := testAuthConfig
			cfg.BaseURL = tt.baseURL
			h := NewAuthHandler(svc, cfg)

			w := httptest.NewRecorder()
			h.Callback(w, callbackRequest("code=auth-code&state=st"))

			if w.Code != http.StatusTemporaryRedirect {
				t.Fatalf("status = %d, want %d (body=%s)", w.Code, http.StatusTemporaryRedirect, w.Body.String())
			}
			if gotCode != "auth-code" {
				t.Errorf("code = %q, want auth-code", gotCode)
			}
			if got := w.Header().Get("Location"); got != tt.wantLocation {
				t.Errorf("Location = %q, want %q", got, tt.wantLocation)
			}

			sc := findCookie(w, sessionCookieName)
			if sc == nil {
				t.Fatal("session cookie not set")
			}
			if sc.Value != "sess-"+tt.user.ID || sc.MaxAge != cfg.SessionMaxAge || sc.Domain != cfg.CookieDomain {
				t.Errorf("session cookie = %+v", sc)
			}
			if !sc.HttpOnly || !sc.Secure || sc.SameSite != http.SameSiteLaxMode {
				t.Errorf("session cookie attributes = %+v", sc)
			}
			if st := findCookie(w, oauthStateCookie); st == nil || st.MaxAge != -1 {
				t.Errorf("state cookie should be cleared, got %+v", st)
			}
		})
	}
}

func TestAuthHandler_Callback_Rejected(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		noState     bool
		callbackErr error
		wantStatus  int
		wantCode    string
		wantCalled  bool
	}{
		{name: "state mismatch", query: "code=c&state=other", wantStatus: http.StatusBadRequest, wantCode: model.ErrCodeValidation},
		{name: "empty state", query: "code=c&state=", wantStatus: http.StatusBadRequest, wantCode: model.ErrCodeValidation},
		{name: "missing state cookie", query: "code=c&state=st", noState: true, wantStatus: http.StatusBadRequest, wantCode: model.ErrCodeValidation},
		{name: "consent denied", query: "error=access_denied&state=st", wantStatus: http.StatusBadRequest, wantCode: model.ErrCodeValidation},
		{name: "missing code", query: "state=st", wantStatus: http.StatusBadRequest, wantCode: model.ErrCodeValidation},
		{
			name:        "unverified email",
			query:       "code=c&state=st",
			callbackErr: fmt.Errorf("exchange: %w", auth.ErrEmailNotVerified),
			wantStatus:  http.StatusForbidden,
			wantCode:    model.ErrCodeForbidden,
			wantCalled:  true,
		},
		{
			name:        "invalid grant",
			query:       "code=c&state=st",
			callbackErr: fmt.Errorf("exchange: %w", &auth.GoogleAPIError{StatusCode: 400, Code: "invalid_grant"}),
			wantStatus:  http.StatusBadRequest,
			wantCode:    model.ErrCodeValidation,
			wantCalled:  true,
		},
		{
			name:        "service failure",
			query:       "code=c&state=st",
			callbackErr: errors.New("db down"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    model.ErrCodeInternal,
			wantCalled:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			svc := &mockAuthService{
				handleCallbackFn: func(ctx context.Context, code string) (*auth.Login, error) {
					called = true
					return nil, tt.callbackErr
				},
			}
			h := NewAuthHandler(svc, testAuthConfig)

			req := callbackRequest(tt.query)
			if tt.noState {
				req = httptest.NewRequest(http.MethodGet, "/auth/google/callback?"+tt.query, nil)
			}
			w := httptest.NewRecorder()
			h.Callback(w, req)

			assertErrorResponse(t, w, tt.wantStatus, tt.wantCode)
			if called != tt.wantCalled {
				t.Errorf("HandleCallback called = %v, want %v", called, tt.wantCalled)
			}
			if findCookie(w, sessionCookieName) != nil {
				t.Error("session cookie must not be set")
			}
		})
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	tests := []struct {
		name      string
		cookie    string
		logoutErr error
		wantID    string
	}{
		{name: "with session", cookie: "sess-1", wantID: "sess-1"},
		{name: "delete fails", cookie: "sess-2", logoutErr: errors.New("db down"), wantID: "sess-2"},
		{name: "no session"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID string
			svc := &mockAuthService{
				logoutFn: func(ctx context.Context, sessionID string) error {
					gotID = sessionID
					return tt.logoutErr
				},
			}
			h := NewAuthHandler(svc, testAuthConfig)

			req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			h.Logout(w, req)

			if w.Code != http.StatusSeeOther {
				t.Errorf("status = %d, want %d", w.Code, http.StatusSeeOther)
			}
			if loc := w.Header().Get("Location"); loc != testAuthConfig.BaseURL {
				t.Errorf("Location = %q, want %q", loc, testAuthConfig.BaseURL)
			}
			if gotID != tt.wantID {
				t.Errorf("Logout(%q), want %q", gotID, tt.wantID)
			}
			sc := findCookie(w, sessionCookieName)
			if sc == nil || sc.MaxAge != -1 || sc.Domain != testAuthConfig.CookieDomain {
				t.Errorf("session cookie should be cleared on the cookie domain, got %+v", sc)
			}
		})
	}
}

func TestAuthHandler_Me(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		getCurrentUserFn: func(ctx context.Context, sessionID string) (*model.User, error) {
			if sessionID != "valid" {
				return nil, auth.ErrSessionNotFound
			}
			return &model.User{
				ID:        "user-me",
				Email:     "me@example.com",
				Name:      "Me User",
				AvatarURL: "https://lh3.googleusercontent.com/a/me",
			}, nil
		},
	}, testAuthConfig)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "valid"})
	w := httptest.NewRecorder()
	h.Me(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body=%s)", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["id"] != "user-me" || body["avatarUrl"] != "https://lh3.googleusercontent.com/a/me" {
		t.Errorf("body = %v", body)
	}
	// setup未完了のユーザーはuserTypeがnull
	if v, ok := body["userType"]; !ok || v != nil {
		t.Errorf("userType = %v (present=%v), want null", v, ok)
	}
}

func TestAuthHandler_Me_Errors(t *testing.T) {
	tests := []struct {
		name       string
		cookie     string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "no cookie", wantStatus: http.StatusUnauthorized, wantCode: model.ErrCodeUnauthorized},
		{name: "expired session", cookie: "old", err: auth.ErrSessionNotFound, wantStatus: http.StatusUnauthorized, wantCode: model.ErrCodeUnauthorized},
		{name: "store failure", cookie: "sess", err: errors.New("db down"), wantStatus: http.StatusInternalServerError, wantCode: model.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuthHandler(&mockAuthService{
				getCurrentUserFn: func(ctx context.Context, sessionID string) (*model.User, error) {
					return nil, tt.err
				},
			}, testAuthConfig)

			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			h.Me(w, req)

			assertErrorResponse(t, w, tt.wantStatus, tt.wantCode)
		})
	}
}
