package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/launchboard/internal/model"
)

// PostgresJobRepo はPostgreSQLを使用した求人リポジトリ。
type PostgresJobRepo struct {
	db *sql.DB
}

// NewPostgresJobRepo はPostgresJobRepoを生成する。
func NewPostgresJobRepo(db *sql.DB) *PostgresJobRepo {
	return &PostgresJobRepo{db: db}
}

const jobWithStartupColumns = `
	j.id, j.startup_id, j.title, j.location, j.type, j.description, j.salary,
	j.created_at, j.updated_at, sp.name, sp.logo_url`

// Create は求人を作成する。
func (r *PostgresJobRepo) Create(ctx context.Context, job *model.Job) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO jobs (id, startup_id, title, location, type, description, salary)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at, updated_at`,
		job.ID, job.StartupID, job.Title, job.Location, job.Type, job.Description, nullString(job.Salary),
	).Scan(&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", translatePQError(err))
	}
	return nil
}

// FindByID は求人を掲載元の概要付きで取得する。見つからない場合はnilを返す。
func (r *PostgresJobRepo) FindByID(ctx context.Context, id string) (*model.JobWithStartup, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT`+jobWithStartupColumns+`
		 FROM jobs j
		 JOIN startup_profiles sp ON sp.user_id = j.startup_id
		 WHERE j.id = $1`,
		id,
	)
	job, err := scanJobWithStartup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find job: %w", err)
	}
	return job, nil
}

// List はフィルタ条件をANDで結合して求人を作成日時の降順で返す。
func (r *PostgresJobRepo) List(ctx context.Context, filter model.JobFilter) ([]model.JobWithStartup, error) {
	query, args := buildJobListQuery(filter)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.JobWithStartup
	for rows.Next() {
		job, err := scanJobWithStartup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jobs: %w", err)
	}
	return jobs, nil
}

// buildJobListQuery は求人一覧のSQLと引数を組み立てる。
func buildJobListQuery(filter model.JobFilter) (string, []interface{}) {
	query := `SELECT` + jobWithStartupColumns + `
		FROM jobs j
		JOIN startup_profiles sp ON sp.user_id = j.startup_id
		WHERE 1 = 1`

	args := []interface{}{}
	argIndex := 1

	if filter.StartupID != "" {
		query += fmt.Sprintf(" AND j.startup_id = $%d", argIndex)
		args = append(args, filter.StartupID)
		argIndex++
	}
	if filter.Search != "" {
		query += fmt.Sprintf(
			" AND (j.title ILIKE $%[1]d OR j.description ILIKE $%[1]d OR j.location ILIKE $%[1]d)",
			argIndex,
		)
		args = append(args, containsPattern(filter.Search))
		argIndex++
	}
	if filter.Type != "" {
		query += fmt.Sprintf(" AND j.type = $%d", argIndex)
		args = append(args, filter.Type)
	}

	query += " ORDER BY j.created_at DESC, j.id"
	return query, args
}

// UpdateOwned はidとstartup_idの両方に一致する求人を更新する。一致しない場合はnilを返す。
func (r *PostgresJobRepo) UpdateOwned(ctx context.Context, job *model.Job) (*model.Job, error) {
	updated := &model.Job{}
	var salary sql.NullString
	err := r.db.QueryRowContext(ctx,
		`UPDATE jobs
		 SET title = $3, location = $4, type = $5, description = $6, salary = $7, updated_at = now()
		 WHERE id = $1 AND startup_id = $2
		 RETURNING id, startup_id, title, location, type, description, salary, created_at, updated_at`,
		job.ID, job.StartupID, job.Title, job.Location, job.Type, job.Description, nullString(job.Salary),
	).Scan(
		&updated.ID, &updated.StartupID, &updated.Title, &updated.Location, &updated.Type,
		&updated.Description, &salary, &updated.CreatedAt, &updated.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update job: %w", err)
	}
	updated.Salary = nullStringValue(salary)
	return updated, nil
}

// DeleteOwned はidとstartup_idの両方に一致する求人を削除する。
func (r *PostgresJobRepo) DeleteOwned(ctx context.Context, id, startupID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM jobs WHERE id = $1 AND startup_id = $2`,
		id, startupID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete job: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJobWithStartup(s rowScanner) (*model.JobWithStartup, error) {
	var job model.JobWithStartup
	var salary, logoURL sql.NullString
	if err := s.Scan(
		&job.ID, &job.StartupID, &job.Title, &job.Location, &job.Type, &job.Description, &salary,
		&job.CreatedAt, &job.UpdatedAt, &job.StartupName, &logoURL,
	); err != nil {
		return nil, err
	}
	job.Salary = nullStringValue(salary)
	job.StartupLogoURL = nullStringValue(logoURL)
	return &job, nil
}

// compile-time interface check
var _ JobRepository = (*PostgresJobRepo)(nil)
