// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/launchboard/internal/auth"
	"github.com/hitoshi/launchboard/internal/middleware"
	"github.com/hitoshi/launchboard/internal/model"
)

const (
	sessionCookieName = "session_id"
	oauthStateCookie  = "oauth_state"
	oauthStateMaxAge  = 600
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	GetLoginURL(state string) string
	HandleCallback(ctx context.Context, code string) (*auth.Login, error)
	Logout(ctx context.Context, sessionID string) error
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL       string
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// Login はstateを発行してGoogleの同意画面へリダイレクトする。
// GET /auth/google/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	h.setCookie(w, oauthStateCookie, state, oauthStateMaxAge, false)
	http.Redirect(w, r, h.service.GetLoginURL(state), http.StatusTemporaryRedirect)
}

// Callback はGoogleからの戻りを処理し、セッションCookieを発行する。
// account typeが未設定のユーザーは/setupへ送る。
// GET /auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	state := q.Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch")
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("stateパラメータが一致しません。"))
		return
	}
	// stateは一度きり
	h.clearCookie(w, oauthStateCookie, false)

	if idpErr := q.Get("error"); idpErr != "" {
		slog.Info("oauth consent not granted", slog.String("reason", idpErr))
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("Googleでのログインが完了しませんでした。"))
		return
	}

	code := q.Get("code")
	if code == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldsError([]string{"code"}))
		return
	}

	login, err := h.service.HandleCallback(r.Context(), code)
	switch {
	case errors.Is(err, auth.ErrEmailNotVerified):
		slog.Warn("oauth login rejected", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusForbidden,
			model.NewForbiddenError("メールアドレスが確認済みのGoogleアカウントでログインしてください。"))
		return
	case errors.Is(err, auth.ErrInvalidGrant):
		slog.Warn("oauth code rejected", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("認可コードが無効です。もう一度ログインしてください。"))
		return
	case err != nil:
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	h.setCookie(w, sessionCookieName, login.Session.ID, h.config.SessionMaxAge, true)

	redirectTo := h.config.BaseURL
	if login.NeedsSetup() {
		redirectTo = strings.TrimRight(h.config.BaseURL, "/") + "/setup"
	}
	http.Redirect(w, r, redirectTo, http.StatusTemporaryRedirect)
}

// Logout はセッションを破棄してトップへ戻す。
// サーバー側の削除に失敗してもCookieは消す。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		if err := h.service.Logout(r.Context(), cookie.Value); err != nil {
			slog.Error("failed to logout", slog.String("error", err.Error()))
		}
	}

	h.clearCookie(w, sessionCookieName, true)
	// POSTの後なのでGETで遷移させる
	http.Redirect(w, r, h.config.BaseURL, http.StatusSeeOther)
}

// Me はログイン中のユーザーを返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	user, err := h.service.GetCurrentUser(r.Context(), cookie.Value)
	if errors.Is(err, auth.ErrSessionNotFound) || errors.Is(err, auth.ErrSessionRequired) {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	if err != nil {
		slog.Error("failed to get current user", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// setCookie はHttpOnlyかつSameSite=LaxのCookieを設定する。
// withDomainがtrueの場合はCOOKIE_DOMAINを付ける。
func (h *AuthHandler) setCookie(w http.ResponseWriter, name, value string, maxAge int, withDomain bool) {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if withDomain {
		c.Domain = h.config.CookieDomain
	}
	http.SetCookie(w, c)
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, name string, withDomain bool) {
	h.setCookie(w, name, "", -1, withDomain)
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
