// Package job は求人と応募のドメインロジックを提供する。
package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/launchboard/internal/metrics"
	"github.com/hitoshi/launchboard/internal/model"
	"github.com/hitoshi/launchboard/internal/repository"
	"github.com/hitoshi/launchboard/internal/user"
)

// Sanitizer は説明文HTMLのサニタイズインターフェース。
type Sanitizer interface {
	Sanitize(rawHTML string) string
}

// Service は求人・応募のサービス層。
type Service struct {
	users        user.Finder
	jobs         repository.JobRepository
	applications repository.ApplicationRepository
	sanitizer    Sanitizer
	metrics      metrics.MetricsCollector
}

// NewService はServiceを生成する。collectorがnilの場合はメトリクスを記録しない。
func NewService(
	users user.Finder,
	jobs repository.JobRepository,
	applications repository.ApplicationRepository,
	sanitizer Sanitizer,
	collector metrics.MetricsCollector,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		users:        users,
		jobs:         jobs,
		applications: applications,
		sanitizer:    sanitizer,
		metrics:      collector,
	}
}

// List はフィルタ条件に一致する求人を作成日時の降順で返す。
// startupIDがUUIDとして不正な場合は一致する求人がないものとして空の一覧を返す。
func (s *Service) List(ctx context.Context, filter model.JobFilter) ([]model.JobWithStartup, error) {
	filter.StartupID = strings.TrimSpace(filter.StartupID)
	filter.Search = strings.TrimSpace(filter.Search)
	filter.Type = strings.TrimSpace(filter.Type)
	if filter.StartupID != "" {
		if _, err := uuid.Parse(filter.StartupID); err != nil {
			return []model.JobWithStartup{}, nil
		}
	}

	jobs, err := s.jobs.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("求人一覧の取得に失敗しました: %w", err)
	}
	if jobs == nil {
		jobs = []model.JobWithStartup{}
	}
	return jobs, nil
}

// Get は求人を掲載元の概要付きで返す。
func (s *Service) Get(ctx context.Context, jobID string) (*model.JobWithStartup, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, model.NewJobNotFoundError(jobID)
	}
	j, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("求人の取得に失敗しました: %w", err)
	}
	if j == nil {
		return nil, model.NewJobNotFoundError(jobID)
	}
	return j, nil
}

// Create は呼び出し元スタートアップの求人を作成する。
func (s *Service) Create(ctx context.Context, userID string, in *model.Job) (*model.Job, error) {
	if _, err := user.RequireType(ctx, s.users, userID, model.UserTypeStartup,
		"スタートアップのみ求人を作成できます。"); err != nil {
		return nil, err
	}
	if err := s.normalize(in); err != nil {
		return nil, err
	}

	now := time.Now()
	j := &model.Job{
		ID:          uuid.New().String(),
		StartupID:   userID,
		Title:       in.Title,
		Location:    in.Location,
		Type:        in.Type,
		Description: in.Description,
		Salary:      in.Salary,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.jobs.Create(ctx, j); err != nil {
		if errors.Is(err, repository.ErrReferenceNotFound) {
			return nil, model.NewProfileNotFoundError()
		}
		return nil, fmt.Errorf("求人の作成に失敗しました: %w", err)
	}

	s.metrics.RecordJobPosted()
	slog.Info("求人を作成しました",
		slog.String("job_id", j.ID),
		slog.String("startup_id", userID),
	)
	return j, nil
}

// Update は呼び出し元が所有する求人を更新する。
// 存在しない場合と所有者でない場合はどちらもJOB_NOT_FOUNDを返す。
func (s *Service) Update(ctx context.Context, userID, jobID string, in *model.Job) (*model.Job, error) {
	if _, err := user.RequireType(ctx, s.users, userID, model.UserTypeStartup,
		"スタートアップのみ求人を編集できます。"); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, model.NewJobNotFoundError(jobID)
	}
	if err := s.normalize(in); err != nil {
		return nil, err
	}

	in.ID = jobID
	in.StartupID = userID
	updated, err := s.jobs.UpdateOwned(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("求人の更新に失敗しました: %w", err)
	}
	if updated == nil {
		return nil, model.NewJobNotFoundError(jobID)
	}
	return updated, nil
}

// Delete は呼び出し元が所有する求人を削除する。応募はCASCADE削除される。
func (s *Service) Delete(ctx context.Context, userID, jobID string) error {
	if _, err := user.RequireType(ctx, s.users, userID, model.UserTypeStartup,
		"スタートアップのみ求人を削除できます。"); err != nil {
		return err
	}
	if _, err := uuid.Parse(jobID); err != nil {
		return model.NewJobNotFoundError(jobID)
	}

	deleted, err := s.jobs.DeleteOwned(ctx, jobID, userID)
	if err != nil {
		return fmt.Errorf("求人の削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewJobNotFoundError(jobID)
	}

	slog.Info("求人を削除しました",
		slog.String("job_id", jobID),
		slog.String("startup_id", userID),
	)
	return nil
}

// Apply は呼び出し元個人として求人に応募する。
func (s *Service) Apply(ctx context.Context, userID, jobID, coverLetter string) (*model.JobApplication, error) {
	if _, err := user.RequireType(ctx, s.users, userID, model.UserTypeIndividual,
		"個人アカウントのみ求人に応募できます。"); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, jobID); err != nil {
		return nil, err
	}

	now := time.Now()
	app := &model.JobApplication{
		ID:          uuid.New().String(),
		JobID:       jobID,
		ApplicantID: userID,
		Status:      model.ApplicationPending,
		CoverLetter: strings.TrimSpace(coverLetter),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.applications.Create(ctx, app); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			s.metrics.RecordApplication(metrics.OutcomeDuplicate)
			return nil, model.NewAlreadyAppliedError()
		case errors.Is(err, repository.ErrReferenceNotFound):
			// 応募と同時に求人が削除された場合もここに来る
			return nil, model.NewJobNotFoundError(jobID)
		}
		return nil, fmt.Errorf("応募の作成に失敗しました: %w", err)
	}

	s.metrics.RecordApplication(metrics.OutcomeCreated)
	slog.Info("求人に応募しました",
		slog.String("application_id", app.ID),
		slog.String("job_id", jobID),
		slog.String("applicant_id", userID),
	)
	return app, nil
}

// ListApplications は呼び出し元スタートアップが所有する求人への応募を返す。
// statusが空でない場合はそのステータスの応募のみ返す。
func (s *Service) ListApplications(ctx context.Context, userID, jobID, status string) ([]model.ApplicationWithApplicant, error) {
	if _, err := user.RequireType(ctx, s.users, userID, model.UserTypeStartup,
		"スタートアップのみ応募一覧を閲覧できます。"); err != nil {
		return nil, err
	}
	st, err := parseStatusFilter(status)
	if err != nil {
		return nil, err
	}
	j, err := s.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.StartupID != userID {
		return nil, model.NewJobNotFoundError(jobID)
	}

	apps, err := s.applications.ListByJob(ctx, jobID, st)
	if err != nil {
		return nil, fmt.Errorf("応募一覧の取得に失敗しました: %w", err)
	}
	if apps == nil {
		apps = []model.ApplicationWithApplicant{}
	}
	return apps, nil
}

// MyApplications は呼び出し元個人の応募を応募先の概要付きで返す。
func (s *Service) MyApplications(ctx context.Context, userID, status string) ([]model.ApplicationWithJob, error) {
	if _, err := user.RequireType(ctx, s.users, userID, model.UserTypeIndividual,
		"個人アカウントのみ応募一覧を閲覧できます。"); err != nil {
		return nil, err
	}
	st, err := parseStatusFilter(status)
	if err != nil {
		return nil, err
	}

	apps, err := s.applications.ListByApplicant(ctx, userID, st)
	if err != nil {
		return nil, fmt.Errorf("応募一覧の取得に失敗しました: %w", err)
	}
	if apps == nil {
		apps = []model.ApplicationWithJob{}
	}
	return apps, nil
}

// UpdateApplicationStatus は呼び出し元スタートアップの求人への応募のステータスを変更する。
// ステータス間の遷移に制約はない。
func (s *Service) UpdateApplicationStatus(ctx context.Context, userID, applicationID, status string) (*model.JobApplication, error) {
	if _, err := user.RequireType(ctx, s.users, userID, model.UserTypeStartup,
		"スタートアップのみ応募ステータスを変更できます。"); err != nil {
		return nil, err
	}
	st := model.ApplicationStatus(status)
	if !st.Valid() {
		return nil, model.NewInvalidStatusError(status)
	}
	if _, err := uuid.Parse(applicationID); err != nil {
		return nil, model.NewApplicationNotFoundError(applicationID)
	}

	app, err := s.applications.UpdateStatusForStartup(ctx, applicationID, userID, st)
	if err != nil {
		return nil, fmt.Errorf("応募ステータスの更新に失敗しました: %w", err)
	}
	if app == nil {
		return nil, model.NewApplicationNotFoundError(applicationID)
	}

	slog.Info("応募ステータスを更新しました",
		slog.String("application_id", applicationID),
		slog.String("status", string(st)),
	)
	return app, nil
}

// WithdrawApplication は呼び出し元個人の応募を取り下げる。
func (s *Service) WithdrawApplication(ctx context.Context, userID, applicationID string) error {
	if _, err := user.RequireType(ctx, s.users, userID, model.UserTypeIndividual,
		"個人アカウントのみ応募を取り下げできます。"); err != nil {
		return err
	}
	if _, err := uuid.Parse(applicationID); err != nil {
		return model.NewApplicationNotFoundError(applicationID)
	}

	deleted, err := s.applications.DeleteByApplicant(ctx, applicationID, userID)
	if err != nil {
		return fmt.Errorf("応募の取り下げに失敗しました: %w", err)
	}
	if !deleted {
		return model.NewApplicationNotFoundError(applicationID)
	}
	s.metrics.RecordApplication(metrics.OutcomeDeleted)
	return nil
}

// normalize は求人の入力値を整形し、必須項目を検証する。説明文はサニタイズする。
func (s *Service) normalize(in *model.Job) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Location = strings.TrimSpace(in.Location)
	in.Type = strings.TrimSpace(in.Type)
	in.Salary = strings.TrimSpace(in.Salary)
	in.Description = s.sanitizer.Sanitize(in.Description)

	var missing []string
	if in.Title == "" {
		missing = append(missing, "title")
	}
	if in.Location == "" {
		missing = append(missing, "location")
	}
	if in.Type == "" {
		missing = append(missing, "type")
	}
	if strings.TrimSpace(in.Description) == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return model.NewMissingFieldsError(missing)
	}
	return nil
}

// parseStatusFilter は一覧の?status=を検証する。空文字は絞り込みなし。
func parseStatusFilter(raw string) (model.ApplicationStatus, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	st := model.ApplicationStatus(raw)
	if !st.Valid() {
		return "", model.NewInvalidStatusError(raw)
	}
	return st, nil
}
