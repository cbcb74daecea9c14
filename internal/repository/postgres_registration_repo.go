package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/launchboard/internal/model"
)

// PostgresRegistrationRepo はPostgreSQLを使用したイベント参加登録リポジトリ。
type PostgresRegistrationRepo struct {
	db *sql.DB
}

// NewPostgresRegistrationRepo はPostgresRegistrationRepoを生成する。
func NewPostgresRegistrationRepo(db *sql.DB) *PostgresRegistrationRepo {
	return &PostgresRegistrationRepo{db: db}
}

// Create は参加登録を作成する。
func (r *PostgresRegistrationRepo) Create(ctx context.Context, reg *model.EventRegistration) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO event_registrations (id, event_id, registrant_id)
		 VALUES ($1, $2, $3)
		 RETURNING created_at`,
		reg.ID, reg.EventID, reg.RegistrantID,
	).Scan(&reg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create registration: %w", translatePQError(err))
	}
	return nil
}

// Delete はイベントIDと登録者IDで参加登録を削除する。
func (r *PostgresRegistrationRepo) Delete(ctx context.Context, eventID, registrantID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM event_registrations WHERE event_id = $1 AND registrant_id = $2`,
		eventID, registrantID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete registration: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// ListEventsByRegistrant は個人が登録しているイベントを開催日の昇順で返す。
func (r *PostgresRegistrationRepo) ListEventsByRegistrant(ctx context.Context, registrantID string) ([]model.EventWithStartup, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT`+eventWithStartupColumns+`
		 FROM event_registrations reg
		 JOIN events e ON e.id = reg.event_id
		 JOIN startup_profiles sp ON sp.user_id = e.startup_id
		 WHERE reg.registrant_id = $1
		 ORDER BY e.date ASC, e.start_time ASC NULLS LAST, e.id`,
		registrantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list registered events: %w", err)
	}
	defer rows.Close()

	var events []model.EventWithStartup
	for rows.Next() {
		event, err := scanEventWithStartup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate registered events: %w", err)
	}
	return events, nil
}

// ListRegistrants はイベントの登録者一覧を登録日時の昇順で返す。
func (r *PostgresRegistrationRepo) ListRegistrants(ctx context.Context, eventID string) ([]model.RegistrantInfo, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT reg.id, reg.registrant_id, ip.full_name, u.email, ip.headline,
		        ip.profile_picture_url, reg.created_at
		 FROM event_registrations reg
		 JOIN individual_profiles ip ON ip.user_id = reg.registrant_id
		 JOIN users u ON u.id = reg.registrant_id
		 WHERE reg.event_id = $1
		 ORDER BY reg.created_at ASC, reg.id`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrants: %w", err)
	}
	defer rows.Close()

	var registrants []model.RegistrantInfo
	for rows.Next() {
		var ri model.RegistrantInfo
		var headline, picture sql.NullString
		if err := rows.Scan(
			&ri.RegistrationID, &ri.RegistrantID, &ri.FullName, &ri.Email, &headline,
			&picture, &ri.RegisteredAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan registrant: %w", err)
		}
		ri.Headline = nullStringValue(headline)
		ri.PictureURL = nullStringValue(picture)
		registrants = append(registrants, ri)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate registrants: %w", err)
	}
	return registrants, nil
}

// compile-time interface check
var _ RegistrationRepository = (*PostgresRegistrationRepo)(nil)
