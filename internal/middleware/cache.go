package middleware

import "net/http"

// NewNoStoreMiddleware はAPIレスポンスをキャッシュさせないミドルウェアを返す。
// クライアントの再検証が常にサーバーへ届くようにする。
func NewNoStoreMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			next.ServeHTTP(w, r)
		})
	}
}
