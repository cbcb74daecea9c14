// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/launchboard/internal/model"
	"github.com/hitoshi/launchboard/internal/repository"
	"github.com/hitoshi/launchboard/internal/storage"
)

// ProfileFinder はプロフィールの存在確認とアセットURL設定のインターフェース。
type ProfileFinder interface {
	FindStartup(ctx context.Context, userID string) (*model.StartupProfile, error)
	FindIndividual(ctx context.Context, userID string) (*model.IndividualProfile, error)
	SetAssetURL(ctx context.Context, userID string, kind model.AssetKind, url string) (string, error)
}

// Me は現在のユーザーとプロフィールの作成状況を表す。
type Me struct {
	User       *model.User
	HasProfile bool
}

// Service はユーザー管理のサービス層。
// アカウント種別の初期設定と退会処理のビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	profiles    ProfileFinder
	importer    storage.Importer
}

// NewService はServiceの新しいインスタンスを生成する。
// importerがnilの場合、setup時のアバター取り込みは行わない。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	profiles ProfileFinder,
	importer storage.Importer,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		profiles:    profiles,
		importer:    importer,
	}
}

// GetMe は現在のユーザーとプロフィールの有無を返す。
func (s *Service) GetMe(ctx context.Context, userID string) (*Me, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	hasProfile := false
	switch user.UserType {
	case model.UserTypeStartup:
		p, err := s.profiles.FindStartup(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
		}
		hasProfile = p != nil
	case model.UserTypeIndividual:
		p, err := s.profiles.FindIndividual(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
		}
		hasProfile = p != nil
	}

	return &Me{User: user, HasProfile: hasProfile}, nil
}

// Setup はアカウント種別を設定し、対応する空のプロフィールを作成する。
// 種別は一度だけ設定でき、設定済みの場合はUSER_TYPE_ALREADY_SETを返す。
// 個人アカウントの場合、IdPのアバター画像をprofile-picturesバケットに取り込む。
func (s *Service) Setup(ctx context.Context, userID string, userType model.UserType) (*model.User, error) {
	if userType == "" {
		return nil, model.NewMissingFieldsError([]string{"userType"})
	}
	if !userType.Valid() {
		return nil, model.NewValidationError(fmt.Sprintf("無効なアカウント種別です: %s", userType))
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	if user.UserType != "" {
		return nil, model.NewUserTypeAlreadySetError()
	}

	assigned, err := s.userRepo.AssignType(ctx, userID, userType, user.Name)
	if err != nil {
		return nil, fmt.Errorf("アカウント種別の設定に失敗しました: %w", err)
	}
	if !assigned {
		// 並行リクエストで先に設定された
		return nil, model.NewUserTypeAlreadySetError()
	}
	user.UserType = userType

	slog.Info("アカウント種別を設定しました",
		slog.String("user_id", userID),
		slog.String("user_type", string(userType)),
	)

	if userType == model.UserTypeIndividual {
		s.importAvatar(ctx, user)
	}

	return user, nil
}

// importAvatar はIdPのアバター画像をプロフィール画像として取り込む。
// 取り込みの失敗はsetupの失敗としない。
func (s *Service) importAvatar(ctx context.Context, user *model.User) {
	if s.importer == nil || user.AvatarURL == "" {
		return
	}

	publicURL := s.importer.Import(ctx, model.AssetProfilePicture, user.AvatarURL)
	if publicURL == "" {
		return
	}

	if _, err := s.profiles.SetAssetURL(ctx, user.ID, model.AssetProfilePicture, publicURL); err != nil {
		slog.Warn("アバター画像の設定に失敗しました",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: sessions → user（+ CASCADE: identities, profiles, jobs, events, applications, registrations）
// 保存済みオブジェクトは参照が消えた後にクリーンアップジョブが削除する。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("退会処理を開始します",
		slog.String("user_id", userID),
		slog.String("user_type", string(user.UserType)),
	)

	if s.sessionRepo != nil {
		if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("セッションの削除に失敗しました: %w", err)
		}
	}

	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", userID),
	)

	return nil
}
