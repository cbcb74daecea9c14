package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/launchboard/internal/model"
)

// PostgresApplicationRepo はPostgreSQLを使用した求人応募リポジトリ。
type PostgresApplicationRepo struct {
	db *sql.DB
}

// NewPostgresApplicationRepo はPostgresApplicationRepoを生成する。
func NewPostgresApplicationRepo(db *sql.DB) *PostgresApplicationRepo {
	return &PostgresApplicationRepo{db: db}
}

// Create は応募を作成する。statusが空の場合はpendingで作成する。
func (r *PostgresApplicationRepo) Create(ctx context.Context, app *model.JobApplication) error {
	if app.Status == "" {
		app.Status = model.ApplicationPending
	}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO job_applications (id, job_id, applicant_id, status, cover_letter)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at, updated_at`,
		app.ID, app.JobID, app.ApplicantID, string(app.Status), nullString(app.CoverLetter),
	).Scan(&app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", translatePQError(err))
	}
	return nil
}

// ListByJob は求人への応募を応募者の概要付きで返す。
func (r *PostgresApplicationRepo) ListByJob(ctx context.Context, jobID string, status model.ApplicationStatus) ([]model.ApplicationWithApplicant, error) {
	query := `
		SELECT a.id, a.job_id, a.applicant_id, a.status, a.cover_letter, a.created_at, a.updated_at,
		       ip.full_name, u.email, ip.headline, ip.profile_picture_url, ip.cv_url
		FROM job_applications a
		JOIN individual_profiles ip ON ip.user_id = a.applicant_id
		JOIN users u ON u.id = a.applicant_id
		WHERE a.job_id = $1`
	args := []interface{}{jobID}

	if status != "" {
		query += " AND a.status = $2"
		args = append(args, string(status))
	}
	query += " ORDER BY a.created_at DESC, a.id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications by job: %w", err)
	}
	defer rows.Close()

	var apps []model.ApplicationWithApplicant
	for rows.Next() {
		var a model.ApplicationWithApplicant
		var status string
		var coverLetter, headline, picture, cv sql.NullString
		if err := rows.Scan(
			&a.ID, &a.JobID, &a.ApplicantID, &status, &coverLetter, &a.CreatedAt, &a.UpdatedAt,
			&a.ApplicantName, &a.ApplicantEmail, &headline, &picture, &cv,
		); err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		a.Status = model.ApplicationStatus(status)
		a.CoverLetter = nullStringValue(coverLetter)
		a.ApplicantHeadline = nullStringValue(headline)
		a.ApplicantPicture = nullStringValue(picture)
		a.ApplicantCVURL = nullStringValue(cv)
		apps = append(apps, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate applications: %w", err)
	}
	return apps, nil
}

// ListByApplicant は個人の応募を応募先の概要付きで返す。
func (r *PostgresApplicationRepo) ListByApplicant(ctx context.Context, applicantID string, status model.ApplicationStatus) ([]model.ApplicationWithJob, error) {
	query := `
		SELECT a.id, a.job_id, a.applicant_id, a.status, a.cover_letter, a.created_at, a.updated_at,
		       j.title, j.location, j.type, j.startup_id, sp.name
		FROM job_applications a
		JOIN jobs j ON j.id = a.job_id
		JOIN startup_profiles sp ON sp.user_id = j.startup_id
		WHERE a.applicant_id = $1`
	args := []interface{}{applicantID}

	if status != "" {
		query += " AND a.status = $2"
		args = append(args, string(status))
	}
	query += " ORDER BY a.created_at DESC, a.id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications by applicant: %w", err)
	}
	defer rows.Close()

	var apps []model.ApplicationWithJob
	for rows.Next() {
		var a model.ApplicationWithJob
		var status string
		var coverLetter sql.NullString
		if err := rows.Scan(
			&a.ID, &a.JobID, &a.ApplicantID, &status, &coverLetter, &a.CreatedAt, &a.UpdatedAt,
			&a.JobTitle, &a.JobLocation, &a.JobType, &a.StartupID, &a.StartupName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		a.Status = model.ApplicationStatus(status)
		a.CoverLetter = nullStringValue(coverLetter)
		apps = append(apps, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate applications: %w", err)
	}
	return apps, nil
}

// UpdateStatusForStartup は指定スタートアップが所有する求人への応募のステータスを更新する。
// 一致する行がない場合はnilを返す。
func (r *PostgresApplicationRepo) UpdateStatusForStartup(ctx context.Context, id, startupID string, status model.ApplicationStatus) (*model.JobApplication, error) {
	app := &model.JobApplication{}
	var st string
	var coverLetter sql.NullString
	err := r.db.QueryRowContext(ctx,
		`UPDATE job_applications a
		 SET status = $3, updated_at = now()
		 FROM jobs j
		 WHERE a.id = $1 AND a.job_id = j.id AND j.startup_id = $2
		 RETURNING a.id, a.job_id, a.applicant_id, a.status, a.cover_letter, a.created_at, a.updated_at`,
		id, startupID, string(status),
	).Scan(&app.ID, &app.JobID, &app.ApplicantID, &st, &coverLetter, &app.CreatedAt, &app.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update application status: %w", err)
	}
	app.Status = model.ApplicationStatus(st)
	app.CoverLetter = nullStringValue(coverLetter)
	return app, nil
}

// DeleteByApplicant は応募者本人の応募を取り下げる。
func (r *PostgresApplicationRepo) DeleteByApplicant(ctx context.Context, id, applicantID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM job_applications WHERE id = $1 AND applicant_id = $2`,
		id, applicantID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete application: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// compile-time interface check
var _ ApplicationRepository = (*PostgresApplicationRepo)(nil)
