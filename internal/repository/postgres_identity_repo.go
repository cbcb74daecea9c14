package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/launchboard/internal/model"
)

// PostgresIdentityRepo はidentitiesテーブルからユーザーを引く。
// identityの作成はユーザー作成と同じトランザクションで行うため、PostgresUserRepo.CreateWithIdentityが担う。
type PostgresIdentityRepo struct {
	db *sql.DB
}

func NewPostgresIdentityRepo(db *sql.DB) *PostgresIdentityRepo {
	return &PostgresIdentityRepo{db: db}
}

// FindUser はIdPアカウントに紐づくユーザーを返す。紐付けがない場合はnilを返す。
func (r *PostgresIdentityRepo) FindUser(ctx context.Context, provider, providerUserID string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT u.id, u.email, u.name, u.avatar_url, u.user_type, u.created_at, u.updated_at
		 FROM identities i
		 JOIN users u ON u.id = i.user_id
		 WHERE i.provider = $1 AND i.provider_user_id = $2`,
		provider, providerUserID,
	)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by identity: %w", err)
	}
	return user, nil
}

var _ IdentityRepository = (*PostgresIdentityRepo)(nil)
