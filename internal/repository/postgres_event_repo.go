package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/launchboard/internal/model"
)

// dateLayout はDATE型カラムとの受け渡しに使う書式。
const dateLayout = "2006-01-02"

// PostgresEventRepo はPostgreSQLを使用したイベントリポジトリ。
type PostgresEventRepo struct {
	db *sql.DB
}

// NewPostgresEventRepo はPostgresEventRepoを生成する。
func NewPostgresEventRepo(db *sql.DB) *PostgresEventRepo {
	return &PostgresEventRepo{db: db}
}

const eventWithStartupColumns = `
	e.id, e.startup_id, e.title, e.description, e.location, e.type, e.date,
	e.start_time, e.end_time, e.image_url, e.created_at, e.updated_at,
	sp.name, sp.logo_url,
	(SELECT COUNT(*) FROM event_registrations er WHERE er.event_id = e.id) AS registration_count`

const eventColumns = `id, startup_id, title, description, location, type, date,
	start_time, end_time, image_url, created_at, updated_at`

// Create はイベントを作成する。
func (r *PostgresEventRepo) Create(ctx context.Context, event *model.Event) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO events (id, startup_id, title, description, location, type, date, start_time, end_time)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::date, $8, $9)
		 RETURNING created_at, updated_at`,
		event.ID, event.StartupID, event.Title, event.Description, event.Location,
		nullString(event.Type), event.Date.Format(dateLayout),
		nullString(event.StartTime), nullString(event.EndTime),
	).Scan(&event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", translatePQError(err))
	}
	return nil
}

// FindByID はイベントを主催者の概要と登録者数付きで取得する。見つからない場合はnilを返す。
func (r *PostgresEventRepo) FindByID(ctx context.Context, id string) (*model.EventWithStartup, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT`+eventWithStartupColumns+`
		 FROM events e
		 JOIN startup_profiles sp ON sp.user_id = e.startup_id
		 WHERE e.id = $1`,
		id,
	)
	event, err := scanEventWithStartup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find event: %w", err)
	}
	return event, nil
}

// List はフィルタ条件をANDで結合してイベントを返す。
func (r *PostgresEventRepo) List(ctx context.Context, filter model.EventFilter) ([]model.EventWithStartup, error) {
	query, args := buildEventListQuery(filter)
	return r.queryEvents(ctx, query, args...)
}

// buildEventListQuery はイベント一覧のSQLと引数を組み立てる。
func buildEventListQuery(filter model.EventFilter) (string, []interface{}) {
	query := `SELECT` + eventWithStartupColumns + `
		FROM events e
		JOIN startup_profiles sp ON sp.user_id = e.startup_id
		WHERE 1 = 1`

	args := []interface{}{}
	argIndex := 1

	if filter.StartupID != "" {
		query += fmt.Sprintf(" AND e.startup_id = $%d", argIndex)
		args = append(args, filter.StartupID)
		argIndex++
	}
	if filter.Search != "" {
		query += fmt.Sprintf(
			" AND (e.title ILIKE $%[1]d OR e.description ILIKE $%[1]d OR e.location ILIKE $%[1]d)",
			argIndex,
		)
		args = append(args, containsPattern(filter.Search))
		argIndex++
	}
	if filter.Type != "" {
		query += fmt.Sprintf(" AND e.type = $%d", argIndex)
		args = append(args, filter.Type)
		argIndex++
	}

	switch filter.Period {
	case model.EventPeriodUpcoming:
		query += fmt.Sprintf(" AND e.date >= $%d::date ORDER BY e.date ASC, e.start_time ASC NULLS LAST, e.id", argIndex)
		args = append(args, filter.Today.Format(dateLayout))
	case model.EventPeriodPast:
		query += fmt.Sprintf(" AND e.date < $%d::date ORDER BY e.date DESC, e.start_time DESC NULLS LAST, e.id", argIndex)
		args = append(args, filter.Today.Format(dateLayout))
	default:
		query += " ORDER BY e.created_at DESC, e.id"
	}

	return query, args
}

// UpdateOwned はidとstartup_idの両方に一致するイベントを更新する。一致しない場合はnilを返す。
func (r *PostgresEventRepo) UpdateOwned(ctx context.Context, event *model.Event) (*model.Event, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE events
		 SET title = $3, description = $4, location = $5, type = $6, date = $7::date,
		     start_time = $8, end_time = $9, updated_at = now()
		 WHERE id = $1 AND startup_id = $2
		 RETURNING `+eventColumns,
		event.ID, event.StartupID, event.Title, event.Description, event.Location,
		nullString(event.Type), event.Date.Format(dateLayout),
		nullString(event.StartTime), nullString(event.EndTime),
	)
	updated, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	return updated, nil
}

// DeleteOwned はidとstartup_idの両方に一致するイベントを削除する。
func (r *PostgresEventRepo) DeleteOwned(ctx context.Context, id, startupID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM events WHERE id = $1 AND startup_id = $2`,
		id, startupID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete event: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// SetImageOwned はイベント画像URLを差し替え、差し替え前のURLを返す。
func (r *PostgresEventRepo) SetImageOwned(ctx context.Context, id, startupID, url string) (string, error) {
	var oldURL sql.NullString
	err := r.db.QueryRowContext(ctx,
		`UPDATE events AS e SET image_url = $3, updated_at = now()
		 FROM (SELECT id, image_url AS old_url FROM events
		       WHERE id = $1 AND startup_id = $2 FOR UPDATE) AS prev
		 WHERE e.id = prev.id
		 RETURNING prev.old_url`,
		id, startupID, url,
	).Scan(&oldURL)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to set event image: %w", err)
	}
	return nullStringValue(oldURL), nil
}

func (r *PostgresEventRepo) queryEvents(ctx context.Context, query string, args ...interface{}) ([]model.EventWithStartup, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
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
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

func scanEvent(s rowScanner) (*model.Event, error) {
	var e model.Event
	var eventType, startTime, endTime, imageURL sql.NullString
	if err := s.Scan(
		&e.ID, &e.StartupID, &e.Title, &e.Description, &e.Location, &eventType, &e.Date,
		&startTime, &endTime, &imageURL, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	e.Type = nullStringValue(eventType)
	e.StartTime = nullStringValue(startTime)
	e.EndTime = nullStringValue(endTime)
	e.ImageURL = nullStringValue(imageURL)
	return &e, nil
}

func scanEventWithStartup(s rowScanner) (*model.EventWithStartup, error) {
	var e model.EventWithStartup
	var eventType, startTime, endTime, imageURL, logoURL sql.NullString
	if err := s.Scan(
		&e.ID, &e.StartupID, &e.Title, &e.Description, &e.Location, &eventType, &e.Date,
		&startTime, &endTime, &imageURL, &e.CreatedAt, &e.UpdatedAt,
		&e.StartupName, &logoURL, &e.RegistrationCount,
	); err != nil {
		return nil, err
	}
	e.Type = nullStringValue(eventType)
	e.StartTime = nullStringValue(startTime)
	e.EndTime = nullStringValue(endTime)
	e.ImageURL = nullStringValue(imageURL)
	e.StartupLogoURL = nullStringValue(logoURL)
	return &e, nil
}

// compile-time interface check
var _ EventRepository = (*PostgresEventRepo)(nil)
