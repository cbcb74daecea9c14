package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/hitoshi/launchboard/internal/model"
)

const (
	// フロントエンドのJavaScriptが読むためHttpOnlyにしない
	csrfCookieName   = "csrf_token"
	csrfHeaderName   = "X-CSRF-Token"
	csrfCookieMaxAge = 24 * 60 * 60
	csrfTokenBytes   = 32
)

// CSRFConfig はCSRFトークンCookieの属性。
type CSRFConfig struct {
	CookieSecure bool
	CookieDomain string
}

// csrfGuard はダブルサブミットCookie方式のトークンを発行・検証する。
type csrfGuard struct {
	config CSRFConfig
}

// NewCSRFMiddleware は状態を変更するリクエストにCookieとX-CSRF-Tokenヘッダーの一致を要求する。
// 安全なメソッドは素通しし、Cookieがまだなければ発行する。
func NewCSRFMiddleware(config CSRFConfig) func(next http.Handler) http.Handler {
	g := csrfGuard{config: config}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				if _, ok := g.cookieToken(r); !ok {
					if _, err := g.issue(w); err != nil {
						slog.Error("failed to issue CSRF token", slog.String("error", err.Error()))
					}
				}
				next.ServeHTTP(w, r)
				return
			}

			if reason := g.verify(r); reason != "" {
				slog.Warn("CSRF validation failed",
					slog.String("reason", reason),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				WriteErrorResponse(w, http.StatusForbidden,
					model.NewForbiddenError("CSRFトークンの検証に失敗しました。"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewCSRFTokenHandler はGET /api/csrf-tokenを処理する。
// 発行済みのトークンがあればそれを返し、なければ発行して返す。
func NewCSRFTokenHandler(config CSRFConfig) http.Handler {
	g := csrfGuard{config: config}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := g.cookieToken(r)
		if !ok {
			var err error
			if token, err = g.issue(w); err != nil {
				slog.Error("failed to issue CSRF token", slog.String("error", err.Error()))
				WriteInternalServerError(w)
				return
			}
		}
		writeJSONBody(w, http.StatusOK, map[string]string{"token": token})
	})
}

func (g csrfGuard) cookieToken(r *http.Request) (string, bool) {
	c, err := r.Cookie(csrfCookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// verify は失敗理由を返す。一致すれば空文字。
func (g csrfGuard) verify(r *http.Request) string {
	cookie, ok := g.cookieToken(r)
	if !ok {
		return "missing cookie token"
	}
	header := r.Header.Get(csrfHeaderName)
	if header == "" {
		return "missing header token"
	}
	if subtle.ConstantTimeCompare([]byte(cookie), []byte(header)) != 1 {
		return "token mismatch"
	}
	return ""
}

func (g csrfGuard) issue(w http.ResponseWriter) (string, error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		Domain:   g.config.CookieDomain,
		MaxAge:   csrfCookieMaxAge,
		Secure:   g.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}
