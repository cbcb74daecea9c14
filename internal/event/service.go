// Package event はイベントと参加登録のドメインロジックを提供する。
package event

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/launchboard/internal/metrics"
	"github.com/hitoshi/launchboard/internal/model"
	"github.com/hitoshi/launchboard/internal/repository"
	"github.com/hitoshi/launchboard/internal/storage"
	"github.com/hitoshi/launchboard/internal/user"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Sanitizer は説明文HTMLのサニタイズインターフェース。
type Sanitizer interface {
	Sanitize(rawHTML string) string
}

// Input はイベント作成・更新の入力値。日付と時刻は文字列のまま受け取り、サービス層で検証する。
type Input struct {
	Title       string
	Description string
	Location    string
	Type        string
	Date        string // YYYY-MM-DD
	StartTime   string // HH:MM（任意）
	EndTime     string // HH:MM（任意）
}

// ListParams はイベント一覧のクエリパラメータ。
type ListParams struct {
	StartupID string
	Search    string
	Type      string
	Filter    string // upcoming, past または空
}

// Service はイベント・参加登録のサービス層。
type Service struct {
	users         user.Finder
	events        repository.EventRepository
	registrations repository.RegistrationRepository
	store         storage.Store
	sanitizer     Sanitizer
	metrics       metrics.MetricsCollector
	now           func() time.Time
}

// NewService はServiceを生成する。collectorがnilの場合はメトリクスを記録しない。
func NewService(
	users user.Finder,
	events repository.EventRepository,
	registrations repository.RegistrationRepository,
	store storage.Store,
	sanitizer Sanitizer,
	collector metrics.MetricsCollector,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		users:         users,
		events:        events,
		registrations: registrations,
		store:         store,
		sanitizer:     sanitizer,
		metrics:       collector,
		now:           time.Now,
	}
}

// List はフィルタ条件に一致するイベントを返す。
// upcomingは本日以降を開催日の昇順、pastは本日より前を開催日の降順で返す。
func (s *Service) List(ctx context.Context, params ListParams) ([]model.EventWithStartup, error) {
	period := model.EventPeriod(strings.TrimSpace(params.Filter))
	if !period.Valid() {
		return nil, model.NewInvalidFilterError(params.Filter)
	}
	filter := model.EventFilter{
		StartupID: strings.TrimSpace(params.StartupID),
		Search:    strings.TrimSpace(params.Search),
		Type:      strings.TrimSpace(params.Type),
		Period:    period,
		Today:     s.today(),
	}
	if filter.StartupID != "" {
		if _, err := uuid.Parse(filter.StartupID); err != nil {
			return []model.EventWithStartup{}, nil
		}
	}

	events, err := s.events.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("イベント一覧の取得に失敗しました: %w", err)
	}
	if events == nil {
		events = []model.EventWithStartup{}
	}
	return events, nil
}

// Get はイベントを主催者の概要と登録者数付きで返す。
func (s *Service) Get(ctx context.Context, eventID string) (*model.EventWithStartup, error) {
	if _, err := uuid.Parse(eventID); err != nil {
		return nil, model.NewEventNotFoundError(eventID)
	}
	e, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if e == nil {
		return nil, model.NewEventNotFoundError(eventID)
	}
	return e, nil
}

// Create は呼び出し元スタートアップのイベントを作成する。
func (s *Service) Create(ctx context.Context, userID string, in Input) (*model.Event, error) {
	if _, err := user.RequireType(ctx, s.users, userID, model.UserTypeStartup,
		"スタートアップのみイベントを作成できます。"); err != nil {
		return nil, err
	}
	e, err := s.build(in)
	if err != nil {
		return nil, err
	}

	now := s.now()
	e.ID = uuid.New().String()
	e.StartupID = userID
	e.CreatedAt = now
	e.UpdatedAt = now
	if err := s.events.Create(ctx, e); err != nil {
		if errors.Is(err, repository.ErrReferenceNotFound) {
			return nil, model.NewProfileNotFoundError()
		}
		return nil, fmt.Errorf("イベントの作成に失敗しました: %w", err)
	}

	s.metrics.RecordEventPosted()
	slog.Info("イベントを作成しました",
		slog.String("event_id", e.ID),
		slog.String("startup_id", userID),
	)
	return e, nil
}

// Update は呼び出し元が所有するイベントを更新する。画像URLは変更しない。
func (s *Service) Update(ctx context.Context, userID, eventID string, in Input) (*model.Event, error) {
	if _, err := user.RequireType(ctx, s.users, userID, model.UserTypeStartup,
		"スタートアップのみイベントを編集できます。"); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(eventID); err != nil {
		return nil, model.NewEventNotFoundError(eventID)
	}
	e, err := s.build(in)
	if err != nil {
		return nil, err
	}

	e.ID = eventID
	e.StartupID = userID
	updated, err := s.events.UpdateOwned(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("イベントの更新に失敗しました: %w", err)
	}
	if updated == nil {
		return nil, model.NewEventNotFoundError(eventID)
	}
	return updated, nil
}

// Delete は呼び出し元が所有するイベントを削除する。
// 参加登録はCASCADE削除され、画像はベストエフォートで削除する。
func (s *Service) Delete(ctx context.Context, userID, eventID string) error {
	if _, err := user.RequireType(ctx, s.users, userID, model.UserTypeStartup,
		"スタートアップのみイベントを削除できます。"); err != nil {
		return err
	}
	if _, err := uuid.Parse(eventID); err != nil {
		return model.NewEventNotFoundError(eventID)
	}

	existing, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	deleted, err := s.events.DeleteOwned(ctx, eventID, userID)
	if err != nil {
		return fmt.Errorf("イベントの削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewEventNotFoundError(eventID)
	}
	if existing != nil && existing.ImageURL != "" {
		s.removeQuietly(ctx, existing.ImageURL)
	}

	slog.Info("イベントを削除しました",
		slog.String("event_id", eventID),
		slog.String("startup_id", userID),
	)
	return nil
}

// UploadImage はイベント画像を保存し、呼び出し元が所有するイベントの画像URLを差し替える。
func (s *Service) UploadImage(ctx context.Context, userID, eventID string, r io.Reader) (string, error) {
	if _, err := user.RequireType(ctx, s.users, userID, model.UserTypeStartup,
		"スタートアップのみイベント画像をアップロードできます。"); err != nil {
		return "", err
	}
	if _, err := uuid.Parse(eventID); err != nil {
		return "", model.NewEventNotFoundError(eventID)
	}

	publicURL, err := s.store.Save(ctx, model.AssetEventImage, r)
	if err != nil {
		if apiErr, ok := storage.APIErrorFor(err); ok {
			return "", apiErr
		}
		return "", fmt.Errorf("ファイルの保存に失敗しました: %w", err)
	}

	oldURL, err := s.events.SetImageOwned(ctx, eventID, userID, publicURL)
	if err != nil {
		s.removeQuietly(ctx, publicURL)
		if errors.Is(err, repository.ErrNotFound) {
			return "", model.NewEventNotFoundError(eventID)
		}
		return "", fmt.Errorf("イベント画像の更新に失敗しました: %w", err)
	}
	if oldURL != "" && oldURL != publicURL {
		s.removeQuietly(ctx, oldURL)
	}
	return publicURL, nil
}

// Register は呼び出し元個人をイベントに参加登録する。
func (s *Service) Register(ctx context.Context, userID, eventID string) (*model.EventRegistration, error) {
	if _, err := user.RequireType(ctx, s.users, userID, model.UserTypeIndividual,
		"個人アカウントのみイベントに参加登録できます。"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(eventID) == "" {
		return nil, model.NewMissingFieldsError([]string{"eventId"})
	}
	if _, err := s.Get(ctx, eventID); err != nil {
		return nil, err
	}

	reg := &model.EventRegistration{
		ID:           uuid.New().String(),
		EventID:      eventID,
		RegistrantID: userID,
		CreatedAt:    s.now(),
	}
	if err := s.registrations.Create(ctx, reg); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			s.metrics.RecordRegistration(metrics.OutcomeDuplicate)
			return nil, model.NewAlreadyRegisteredError()
		case errors.Is(err, repository.ErrReferenceNotFound):
			return nil, model.NewEventNotFoundError(eventID)
		}
		return nil, fmt.Errorf("参加登録に失敗しました: %w", err)
	}

	s.metrics.RecordRegistration(metrics.OutcomeCreated)
	slog.Info("イベントに参加登録しました",
		slog.String("event_id", eventID),
		slog.String("registrant_id", userID),
	)
	return reg, nil
}

// Unregister は呼び出し元個人のイベント参加登録を取り消す。
func (s *Service) Unregister(ctx context.Context, userID, eventID string) error {
	if _, err := user.RequireType(ctx, s.users, userID, model.UserTypeIndividual,
		"個人アカウントのみ参加登録を取り消せます。"); err != nil {
		return err
	}
	if strings.TrimSpace(eventID) == "" {
		return model.NewMissingFieldsError([]string{"eventId"})
	}
	if _, err := uuid.Parse(eventID); err != nil {
		return model.NewRegistrationNotFoundError()
	}

	deleted, err := s.registrations.Delete(ctx, eventID, userID)
	if err != nil {
		return fmt.Errorf("参加登録の取り消しに失敗しました: %w", err)
	}
	if !deleted {
		return model.NewRegistrationNotFoundError()
	}
	s.metrics.RecordRegistration(metrics.OutcomeDeleted)
	return nil
}

// MyRegistrations は呼び出し元個人が登録しているイベントを開催日の昇順で返す。
func (s *Service) MyRegistrations(ctx context.Context, userID string) ([]model.EventWithStartup, error) {
	if _, err := user.RequireType(ctx, s.users, userID, model.UserTypeIndividual,
		"個人アカウントのみ参加登録一覧を閲覧できます。"); err != nil {
		return nil, err
	}
	events, err := s.registrations.ListEventsByRegistrant(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("参加登録一覧の取得に失敗しました: %w", err)
	}
	if events == nil {
		events = []model.EventWithStartup{}
	}
	return events, nil
}

// ListRegistrants は呼び出し元が所有するイベントの登録者一覧を返す。
func (s *Service) ListRegistrants(ctx context.Context, userID, eventID string) ([]model.RegistrantInfo, error) {
	if _, err := user.RequireType(ctx, s.users, userID, model.UserTypeStartup,
		"スタートアップのみ登録者一覧を閲覧できます。"); err != nil {
		return nil, err
	}
	e, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if e.StartupID != userID {
		return nil, model.NewEventNotFoundError(eventID)
	}

	registrants, err := s.registrations.ListRegistrants(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("登録者一覧の取得に失敗しました: %w", err)
	}
	if registrants == nil {
		registrants = []model.RegistrantInfo{}
	}
	return registrants, nil
}

// build は入力値を検証してEventを組み立てる。説明文はサニタイズする。
func (s *Service) build(in Input) (*model.Event, error) {
	e := &model.Event{
		Title:       strings.TrimSpace(in.Title),
		Description: s.sanitizer.Sanitize(in.Description),
		Location:    strings.TrimSpace(in.Location),
		Type:        strings.TrimSpace(in.Type),
		StartTime:   strings.TrimSpace(in.StartTime),
		EndTime:     strings.TrimSpace(in.EndTime),
	}
	in.Date = strings.TrimSpace(in.Date)

	var missing []string
	if e.Title == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(e.Description) == "" {
		missing = append(missing, "description")
	}
	if e.Location == "" {
		missing = append(missing, "location")
	}
	if e.Type == "" {
		missing = append(missing, "type")
	}
	if in.Date == "" {
		missing = append(missing, "date")
	}
	if len(missing) > 0 {
		return nil, model.NewMissingFieldsError(missing)
	}

	date, err := time.Parse(dateLayout, in.Date)
	if err != nil {
		return nil, model.NewValidationError(fmt.Sprintf("日付はYYYY-MM-DD形式で入力してください: %s", in.Date))
	}
	e.Date = date

	for _, f := range []struct{ name, value string }{
		{"startTime", e.StartTime},
		{"endTime", e.EndTime},
	} {
		if f.value == "" {
			continue
		}
		if _, err := time.Parse(timeLayout, f.value); err != nil || len(f.value) != len(timeLayout) {
			return nil, model.NewValidationError(fmt.Sprintf("%s はHH:MM形式で入力してください: %s", f.name, f.value))
		}
	}
	if e.StartTime != "" && e.EndTime != "" && e.EndTime < e.StartTime {
		return nil, model.NewValidationError("終了時刻は開始時刻より後にしてください。")
	}
	return e, nil
}

// today はUTCの日付に切り詰めた現在日時を返す。
// プロセスのタイムゾーンに依らず、DATE型カラムと同じ暦日で比較する。
func (s *Service) today() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *Service) removeQuietly(ctx context.Context, publicURL string) {
	if err := s.store.Remove(ctx, publicURL); err != nil {
		slog.Warn("オブジェクトの削除に失敗しました",
			slog.String("url", publicURL),
			slog.String("error", err.Error()),
		)
	}
}
