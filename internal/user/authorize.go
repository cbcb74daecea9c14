package user

import (
	"context"
	"fmt"

	"github.com/hitoshi/launchboard/internal/model"
)

// Finder はユーザー取得のインターフェース。
type Finder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// RequireType は呼び出し元ユーザーを取得し、アカウント種別がwantであることを確認する。
// ユーザーが存在しない場合はUNAUTHORIZED、種別が異なる場合はreasonを含むFORBIDDENを返す。
func RequireType(ctx context.Context, users Finder, userID string, want model.UserType, reason string) (*model.User, error) {
	if userID == "" {
		return nil, model.NewUnauthorizedError()
	}
	u, err := users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if u == nil {
		return nil, model.NewUnauthorizedError()
	}
	if u.UserType != want {
		return nil, model.NewForbiddenError(reason)
	}
	return u, nil
}
