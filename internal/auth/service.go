// Package auth はGoogleログインとサーバー側セッションの発行を扱う。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/launchboard/internal/model"
	"github.com/hitoshi/launchboard/internal/repository"
)

var (
	// ErrSessionRequired はセッションIDが空のときに返される。
	ErrSessionRequired = errors.New("session ID is required")
	// ErrSessionNotFound はセッションが存在しないか期限切れのときに返される。
	ErrSessionNotFound = errors.New("session not found or expired")
)

// OAuthUserInfo はIdPから取得したアカウント情報。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	PictureURL     string // IdPが提供しない場合は空
	Provider       string
}

// OAuthProvider はログインURLの生成と認可コードの交換を行うIdP。
type OAuthProvider interface {
	GetLoginURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// UserStore はログイン時に必要なユーザー操作。
type UserStore interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error
}

// IdentityFinder はIdPアカウントからユーザーを引く。
type IdentityFinder interface {
	FindUser(ctx context.Context, provider, providerUserID string) (*model.User, error)
}

// SessionStore はセッションの保存先。
type SessionStore interface {
	Create(ctx context.Context, session *model.Session) error
	FindByID(ctx context.Context, id string) (*model.Session, error)
	DeleteByID(ctx context.Context, id string) error
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // 秒
	// Now はテスト用の時計。nilの場合はtime.Now。
	Now func() time.Time
}

// Service はログイン、ログアウト、現在のユーザーの解決を行う。
type Service struct {
	oauth      OAuthProvider
	users      UserStore
	identities IdentityFinder
	sessions   SessionStore
	maxAge     time.Duration
	now        func() time.Time
}

// NewService はServiceを生成する。
func NewService(oauth OAuthProvider, users UserStore, identities IdentityFinder, sessions SessionStore, config ServiceConfig) *Service {
	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		oauth:      oauth,
		users:      users,
		identities: identities,
		sessions:   sessions,
		maxAge:     time.Duration(config.SessionMaxAge) * time.Second,
		now:        now,
	}
}

func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// Login はOAuthログインの結果。
type Login struct {
	Session *model.Session
	User    *model.User
}

// NeedsSetup はアカウント種別が未設定かどうかを返す。
func (l *Login) NeedsSetup() bool {
	return l.User == nil || l.User.UserType == ""
}

// HandleCallback は認可コードを交換し、ユーザーを特定または作成してセッションを発行する。
// 新規ユーザーはuser_type未設定で作成され、setupフローで種別を確定する。
func (s *Service) HandleCallback(ctx context.Context, code string) (*Login, error) {
	info, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	user, err := s.resolveUser(ctx, info)
	if err != nil {
		return nil, err
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &Login{Session: session, User: user}, nil
}

// resolveUser は既存ユーザーを返し、いなければ作成する。
// 同じIdPアカウントの初回ログインが同時に走った場合は、先に作成された方を返す。
func (s *Service) resolveUser(ctx context.Context, info *OAuthUserInfo) (*model.User, error) {
	user, err := s.identities.FindUser(ctx, info.Provider, info.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by identity: %w", err)
	}
	if user != nil {
		slog.Info("existing user logged in",
			slog.String("user_id", user.ID),
			slog.String("user_type", string(user.UserType)),
			slog.String("provider", info.Provider),
		)
		return user, nil
	}

	now := s.now()
	user = &model.User{
		ID:        uuid.NewString(),
		Email:     info.Email,
		Name:      info.Name,
		AvatarURL: info.PictureURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	identity := &model.Identity{
		ID:             uuid.NewString(),
		UserID:         user.ID,
		Provider:       info.Provider,
		ProviderUserID: info.ProviderUserID,
		CreatedAt:      now,
	}

	err = s.users.CreateWithIdentity(ctx, user, identity)
	if errors.Is(err, repository.ErrDuplicate) {
		existing, findErr := s.identities.FindUser(ctx, info.Provider, info.ProviderUserID)
		if findErr != nil {
			return nil, fmt.Errorf("failed to find user after duplicate identity: %w", findErr)
		}
		if existing == nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("new user created",
		slog.String("user_id", user.ID),
		slog.String("provider", info.Provider),
	)
	return user, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrSessionRequired
	}
	if err := s.sessions.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// GetCurrentUser はセッションの持ち主を返す。
// セッションが無効な場合とユーザーが削除済みの場合はErrSessionNotFoundを返す。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, ErrSessionNotFound
	}
	return user, nil
}

func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	id, err := newSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}
	now := s.now()
	session := &model.Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: now.Add(s.maxAge),
		CreatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return session, nil
}

// newSessionID は32バイトの乱数を16進文字列で返す。
func newSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
