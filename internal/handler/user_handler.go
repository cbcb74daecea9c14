package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/hitoshi/launchboard/internal/model"
	"github.com/hitoshi/launchboard/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// GetMe は現在のユーザーとプロフィールの有無を返す。
	GetMe(ctx context.Context, userID string) (*user.Me, error)
	// Setup はアカウント種別を一度だけ設定し、空のプロフィールを作成する。
	Setup(ctx context.Context, userID string, userType model.UserType) (*model.User, error)
	// Withdraw はユーザーの退会処理を実行する。
	// プロフィール、求人、イベント、応募、参加登録はCASCADE削除される。
	Withdraw(ctx context.Context, userID string) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

type setupRequest struct {
	UserType string `json:"userType"`
}

// GetMe は現在のユーザー情報とプロフィールの有無を返す。
// GET /api/user/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	me, err := h.service.GetMe(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		User:       toUserResponse(me.User),
		HasProfile: me.HasProfile,
	})
}

// Setup はアカウント種別を設定する。
// POST /api/user/setup
func (h *UserHandler) Setup(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req setupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.service.Setup(r.Context(), userID, model.UserType(strings.TrimSpace(req.UserType)))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		User:       toUserResponse(u),
		HasProfile: true,
	})
}

// Withdraw はユーザーの退会処理を実行する。
// DELETE /api/user/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Withdraw(r.Context(), userID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
