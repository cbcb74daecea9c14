package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresAssetRepo はPostgreSQLを使用したアセット参照リポジトリ。
type PostgresAssetRepo struct {
	db *sql.DB
}

// NewPostgresAssetRepo はPostgresAssetRepoを生成する。
func NewPostgresAssetRepo(db *sql.DB) *PostgresAssetRepo {
	return &PostgresAssetRepo{db: db}
}

// ListAssetURLs はプロフィール・イベントの行が参照している全アセットURLを返す。
func (r *PostgresAssetRepo) ListAssetURLs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT url FROM (
			SELECT logo_url AS url FROM startup_profiles
			UNION ALL SELECT banner_url FROM startup_profiles
			UNION ALL SELECT profile_picture_url FROM individual_profiles
			UNION ALL SELECT cover_picture_url FROM individual_profiles
			UNION ALL SELECT cv_url FROM individual_profiles
			UNION ALL SELECT image_url FROM events
			UNION ALL SELECT avatar_url FROM users
		) refs
		WHERE url IS NOT NULL AND url <> ''`)
	if err != nil {
		return nil, fmt.Errorf("failed to list asset urls: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("failed to scan asset url: %w", err)
		}
		urls = append(urls, url)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate asset urls: %w", err)
	}
	return urls, nil
}

// compile-time interface check
var _ AssetReferenceRepository = (*PostgresAssetRepo)(nil)
