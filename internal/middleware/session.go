// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/launchboard/internal/model"
)

const sessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
	userIDContextKey = contextKey("user_id")
	// requestInfoContextKey はロギングミドルウェアが用意するrequestInfoのキー。
	requestInfoContextKey = contextKey("request_info")
)

// requestInfo は内側のミドルウェアが外側のロギングへ渡す情報。
type requestInfo struct {
	userID string
}

// withRequestInfo はコンテキストのrequestInfoを返す。未設定の場合は新たに注入する。
func withRequestInfo(r *http.Request) (*http.Request, *requestInfo) {
	if info, ok := r.Context().Value(requestInfoContextKey).(*requestInfo); ok {
		return r, info
	}
	info := &requestInfo{}
	return r.WithContext(context.WithValue(r.Context(), requestInfoContextKey, info)), info
}

// ErrNoUserID はコンテキストに認証済みユーザーがいないことを表す。
var ErrNoUserID = errors.New("user ID not found in context")

// SessionFinder はセッションIDから有効なセッションを引く。期限切れや未登録はnil, nil。
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// NewSessionMiddleware はsession_id Cookieから呼び出し元を特定し、ユーザーIDをコンテキストに載せる。
// セッションがなければ401、ストアの障害は500を返す。
func NewSessionMiddleware(sessions SessionFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			session, err := sessions.FindByID(r.Context(), cookie.Value)
			if err != nil {
				slog.ErrorContext(r.Context(), "session lookup failed",
					slog.String("error", err.Error()),
					slog.String("path", r.URL.Path),
				)
				WriteInternalServerError(w)
				return
			}
			if session == nil || (!session.ExpiresAt.IsZero() && !session.ExpiresAt.After(time.Now())) {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			if info, ok := r.Context().Value(requestInfoContextKey).(*requestInfo); ok {
				info.userID = session.UserID
			}
			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), session.UserID)))
		})
	}
}

// UserIDFromContext はセッションミドルウェアが載せたユーザーIDを返す。
func UserIDFromContext(ctx context.Context) (string, error) {
	if userID, ok := ctx.Value(userIDContextKey).(string); ok && userID != "" {
		return userID, nil
	}
	return "", ErrNoUserID
}

func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
