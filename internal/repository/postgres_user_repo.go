package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/launchboard/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, email, name, avatar_url, user_type, created_at, updated_at
		 FROM users WHERE id = $1`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// scanUser はid, email, name, avatar_url, user_type, created_at, updated_atの順の行を読む。
func scanUser(row rowScanner) (*model.User, error) {
	var (
		user                model.User
		avatarURL, userType sql.NullString
	)
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &avatarURL, &userType, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}
	user.AvatarURL = nullStringValue(avatarURL)
	user.UserType = model.UserType(nullStringValue(userType))
	return &user, nil
}

// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
// user_typeは未設定（NULL）で作成され、setupフローで確定する。
func (r *PostgresUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, email, name, avatar_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Email, user.Name, nullString(user.AvatarURL), user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", translatePQError(err))
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO identities (id, user_id, provider, provider_user_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		identity.ID, identity.UserID, identity.Provider, identity.ProviderUserID, identity.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert identity: %w", translatePQError(err))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// AssignType はuser_typeが未設定のユーザーに種別を設定し、対応するプロフィール行を作成する。
// 既に設定済みの場合はfalseを返す。
func (r *PostgresUserRepo) AssignType(ctx context.Context, userID string, userType model.UserType, displayName string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// user_type IS NULL の条件で一度だけ設定できることを保証する
	result, err := tx.ExecContext(ctx,
		`UPDATE users SET user_type = $2, updated_at = now()
		 WHERE id = $1 AND user_type IS NULL`,
		userID, string(userType),
	)
	if err != nil {
		return false, fmt.Errorf("failed to assign user type: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return false, nil
	}

	var profileQuery string
	switch userType {
	case model.UserTypeStartup:
		profileQuery = `INSERT INTO startup_profiles (user_id, name) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO NOTHING`
	case model.UserTypeIndividual:
		profileQuery = `INSERT INTO individual_profiles (user_id, full_name) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO NOTHING`
	default:
		return false, fmt.Errorf("unknown user type: %q", userType)
	}
	if _, err := tx.ExecContext(ctx, profileQuery, userID, displayName); err != nil {
		return false, fmt.Errorf("failed to insert profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return true, nil
}

// DeleteByID は指定IDのユーザーを削除する。
// identities、sessions、プロフィールと求人・イベント・応募・参加登録はCASCADE削除される。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM users WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
