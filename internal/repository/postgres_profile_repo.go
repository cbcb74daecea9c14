package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/launchboard/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// assetColumns はアセット種別ごとの格納先テーブルとカラム。
// SQLに埋め込むため、値は固定の識別子のみとする。
var assetColumns = map[model.AssetKind]struct {
	table  string
	column string
}{
	model.AssetProfilePicture: {"individual_profiles", "profile_picture_url"},
	model.AssetCoverPicture:   {"individual_profiles", "cover_picture_url"},
	model.AssetCV:             {"individual_profiles", "cv_url"},
	model.AssetLogo:           {"startup_profiles", "logo_url"},
	model.AssetBanner:         {"startup_profiles", "banner_url"},
}

// FindStartup はユーザーIDでスタートアッププロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindStartup(ctx context.Context, userID string) (*model.StartupProfile, error) {
	p := &model.StartupProfile{}
	var description, industry, website, location, teamSize, logoURL, bannerURL sql.NullString
	var foundedYear sql.NullInt64

	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, name, description, industry, website, location, founded_year,
		        team_size, logo_url, banner_url, created_at, updated_at
		 FROM startup_profiles WHERE user_id = $1`,
		userID,
	).Scan(
		&p.UserID, &p.Name, &description, &industry, &website, &location, &foundedYear,
		&teamSize, &logoURL, &bannerURL, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find startup profile: %w", err)
	}

	p.Description = nullStringValue(description)
	p.Industry = nullStringValue(industry)
	p.Website = nullStringValue(website)
	p.Location = nullStringValue(location)
	p.FoundedYear = nullIntValue(foundedYear)
	p.TeamSize = nullStringValue(teamSize)
	p.LogoURL = nullStringValue(logoURL)
	p.BannerURL = nullStringValue(bannerURL)
	return p, nil
}

// UpdateStartup はスタートアッププロフィールのテキスト項目を更新する。
func (r *PostgresProfileRepo) UpdateStartup(ctx context.Context, p *model.StartupProfile) error {
	err := r.db.QueryRowContext(ctx,
		`UPDATE startup_profiles
		 SET name = $2, description = $3, industry = $4, website = $5, location = $6,
		     founded_year = $7, team_size = $8, updated_at = now()
		 WHERE user_id = $1
		 RETURNING updated_at`,
		p.UserID, p.Name, nullString(p.Description), nullString(p.Industry), nullString(p.Website),
		nullString(p.Location), nullInt(p.FoundedYear), nullString(p.TeamSize),
	).Scan(&p.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("startup profile %s: %w", p.UserID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update startup profile: %w", err)
	}
	return nil
}

// FindStartupSummary はスタートアップの概要を取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindStartupSummary(ctx context.Context, userID string) (*model.StartupSummary, error) {
	s := &model.StartupSummary{}
	var logoURL sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, name, logo_url FROM startup_profiles WHERE user_id = $1`,
		userID,
	).Scan(&s.UserID, &s.Name, &logoURL)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find startup summary: %w", err)
	}
	s.LogoURL = nullStringValue(logoURL)
	return s, nil
}

// ListStartupSummaries は全スタートアップの概要を名前順で返す。
func (r *PostgresProfileRepo) ListStartupSummaries(ctx context.Context) ([]model.StartupSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, name, logo_url FROM startup_profiles ORDER BY name ASC, user_id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list startups: %w", err)
	}
	defer rows.Close()

	var summaries []model.StartupSummary
	for rows.Next() {
		var s model.StartupSummary
		var logoURL sql.NullString
		if err := rows.Scan(&s.UserID, &s.Name, &logoURL); err != nil {
			return nil, fmt.Errorf("failed to scan startup summary: %w", err)
		}
		s.LogoURL = nullStringValue(logoURL)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate startups: %w", err)
	}
	return summaries, nil
}

// FindIndividual はユーザーIDで個人プロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindIndividual(ctx context.Context, userID string) (*model.IndividualProfile, error) {
	p := &model.IndividualProfile{}
	var headline, bio, location, linkedIn, github, website, picture, cover, cv sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, full_name, headline, bio, location, skills, linkedin_url, github_url,
		        website_url, profile_picture_url, cover_picture_url, cv_url, created_at, updated_at
		 FROM individual_profiles WHERE user_id = $1`,
		userID,
	).Scan(
		&p.UserID, &p.FullName, &headline, &bio, &location, pq.Array(&p.Skills), &linkedIn, &github,
		&website, &picture, &cover, &cv, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find individual profile: %w", err)
	}

	p.Headline = nullStringValue(headline)
	p.Bio = nullStringValue(bio)
	p.Location = nullStringValue(location)
	p.LinkedInURL = nullStringValue(linkedIn)
	p.GitHubURL = nullStringValue(github)
	p.WebsiteURL = nullStringValue(website)
	p.ProfilePictureURL = nullStringValue(picture)
	p.CoverPictureURL = nullStringValue(cover)
	p.CVURL = nullStringValue(cv)
	if p.Skills == nil {
		p.Skills = []string{}
	}
	return p, nil
}

// UpdateIndividual は個人プロフィールのテキスト項目を更新する。
func (r *PostgresProfileRepo) UpdateIndividual(ctx context.Context, p *model.IndividualProfile) error {
	skills := p.Skills
	if skills == nil {
		skills = []string{}
	}
	err := r.db.QueryRowContext(ctx,
		`UPDATE individual_profiles
		 SET full_name = $2, headline = $3, bio = $4, location = $5, skills = $6,
		     linkedin_url = $7, github_url = $8, website_url = $9, updated_at = now()
		 WHERE user_id = $1
		 RETURNING updated_at`,
		p.UserID, p.FullName, nullString(p.Headline), nullString(p.Bio), nullString(p.Location),
		pq.Array(skills), nullString(p.LinkedInURL), nullString(p.GitHubURL), nullString(p.WebsiteURL),
	).Scan(&p.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("individual profile %s: %w", p.UserID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update individual profile: %w", err)
	}
	return nil
}

// SetAssetURL はプロフィールのアセットURLを差し替え、差し替え前のURLを返す。
func (r *PostgresProfileRepo) SetAssetURL(ctx context.Context, userID string, kind model.AssetKind, url string) (string, error) {
	target, ok := assetColumns[kind]
	if !ok {
		return "", fmt.Errorf("unsupported asset kind for profile: %q", kind)
	}

	// 旧URLの取得と更新を1文で行う
	query := fmt.Sprintf(
		`UPDATE %[1]s AS p SET %[2]s = $2, updated_at = now()
		 FROM (SELECT user_id, %[2]s AS old_url FROM %[1]s WHERE user_id = $1 FOR UPDATE) AS prev
		 WHERE p.user_id = prev.user_id
		 RETURNING prev.old_url`,
		target.table, target.column,
	)

	var oldURL sql.NullString
	err := r.db.QueryRowContext(ctx, query, userID, url).Scan(&oldURL)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("profile %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to set %s: %w", target.column, err)
	}
	return nullStringValue(oldURL), nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
