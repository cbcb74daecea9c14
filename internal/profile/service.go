// Package profile はスタートアップ・個人プロフィールのドメインロジックを提供する。
package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/launchboard/internal/model"
	"github.com/hitoshi/launchboard/internal/repository"
	"github.com/hitoshi/launchboard/internal/storage"
	"github.com/hitoshi/launchboard/internal/user"
)

const (
	// maxBatchIDs は一括取得で指定できるIDの上限。
	maxBatchIDs = 100
	// batchConcurrency は一括取得の同時実行数。
	batchConcurrency = 8
	// maxSkills は個人プロフィールに登録できるスキル数の上限。
	maxSkills = 50
)

// Sanitizer は説明文HTMLのサニタイズインターフェース。
type Sanitizer interface {
	Sanitize(rawHTML string) string
}

// Service はプロフィールのサービス層。
type Service struct {
	users     user.Finder
	profiles  repository.ProfileRepository
	store     storage.Store
	sanitizer Sanitizer
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	users user.Finder,
	profiles repository.ProfileRepository,
	store storage.Store,
	sanitizer Sanitizer,
) *Service {
	return &Service{
		users:     users,
		profiles:  profiles,
		store:     store,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// GetOwnStartup は呼び出し元スタートアップのプロフィールを返す。
func (s *Service) GetOwnStartup(ctx context.Context, userID string) (*model.StartupProfile, error) {
	if _, err := user.RequireType(ctx, s.users, userID, model.UserTypeStartup,
		"スタートアップのみ閲覧できます。"); err != nil {
		return nil, err
	}
	return s.findStartup(ctx, userID)
}

// UpdateStartup は呼び出し元スタートアップのプロフィールを更新する。
// アセットURLはアップロードAPIでのみ変更され、ここでは無視する。
func (s *Service) UpdateStartup(ctx context.Context, userID string, in *model.StartupProfile) (*model.StartupProfile, error) {
	if _, err := user.RequireType(ctx, s.users, userID, model.UserTypeStartup,
		"スタートアップのみ更新できます。"); err != nil {
		return nil, err
	}

	in.UserID = userID
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, model.NewMissingFieldsError([]string{"name"})
	}
	if in.FoundedYear != nil {
		if *in.FoundedYear < 1800 || *in.FoundedYear > s.now().Year()+1 {
			return nil, model.NewValidationError(fmt.Sprintf("設立年が不正です: %d", *in.FoundedYear))
		}
	}
	if err := validateWebURL("website", in.Website); err != nil {
		return nil, err
	}
	in.Description = s.sanitizer.Sanitize(in.Description)

	if err := s.profiles.UpdateStartup(ctx, in); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewProfileNotFoundError()
		}
		return nil, fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
	}

	return s.findStartup(ctx, userID)
}

// GetOwnIndividual は呼び出し元個人のプロフィールを返す。
func (s *Service) GetOwnIndividual(ctx context.Context, userID string) (*model.IndividualProfile, error) {
	if _, err := user.RequireType(ctx, s.users, userID, model.UserTypeIndividual,
		"個人アカウントのみ閲覧できます。"); err != nil {
		return nil, err
	}
	return s.findIndividual(ctx, userID)
}

// UpdateIndividual は呼び出し元個人のプロフィールを更新する。
func (s *Service) UpdateIndividual(ctx context.Context, userID string, in *model.IndividualProfile) (*model.IndividualProfile, error) {
	if _, err := user.RequireType(ctx, s.users, userID, model.UserTypeIndividual,
		"個人アカウントのみ更新できます。"); err != nil {
		return nil, err
	}

	in.UserID = userID
	in.FullName = strings.TrimSpace(in.FullName)
	if in.FullName == "" {
		return nil, model.NewMissingFieldsError([]string{"fullName"})
	}
	for _, f := range []struct{ name, value string }{
		{"linkedinUrl", in.LinkedInURL},
		{"githubUrl", in.GitHubURL},
		{"websiteUrl", in.WebsiteURL},
	} {
		if err := validateWebURL(f.name, f.value); err != nil {
			return nil, err
		}
	}
	in.Skills = normalizeSkills(in.Skills)
	if len(in.Skills) > maxSkills {
		return nil, model.NewValidationError(fmt.Sprintf("スキルは%d件まで登録できます。", maxSkills))
	}
	in.Bio = s.sanitizer.Sanitize(in.Bio)

	if err := s.profiles.UpdateIndividual(ctx, in); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewProfileNotFoundError()
		}
		return nil, fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
	}

	return s.findIndividual(ctx, userID)
}

// GetStartup は公開スタートアッププロフィールを返す。
func (s *Service) GetStartup(ctx context.Context, startupID string) (*model.StartupProfile, error) {
	if _, err := uuid.Parse(startupID); err != nil {
		return nil, model.NewProfileNotFoundError()
	}
	return s.findStartup(ctx, startupID)
}

// GetIndividual は公開個人プロフィールを返す。
func (s *Service) GetIndividual(ctx context.Context, individualID string) (*model.IndividualProfile, error) {
	if _, err := uuid.Parse(individualID); err != nil {
		return nil, model.NewProfileNotFoundError()
	}
	return s.findIndividual(ctx, individualID)
}

// ListStartups は全スタートアップの概要を返す。
func (s *Service) ListStartups(ctx context.Context) ([]model.StartupSummary, error) {
	summaries, err := s.profiles.ListStartupSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("スタートアップ一覧の取得に失敗しました: %w", err)
	}
	if summaries == nil {
		summaries = []model.StartupSummary{}
	}
	return summaries, nil
}

// StartupSummaries は指定IDのスタートアップ概要を並列に取得する。
// 存在しないIDは結果から除外する。1件でも取得エラーがあれば全体をエラーとする。
// 結果は指定されたIDの順序（重複除去後）で返す。
func (s *Service) StartupSummaries(ctx context.Context, ids []string) ([]model.StartupSummary, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		if _, err := uuid.Parse(id); err != nil {
			return nil, model.NewValidationError(fmt.Sprintf("不正なIDです: %s", id))
		}
		seen[id] = true
		unique = append(unique, id)
	}
	if len(unique) > maxBatchIDs {
		return nil, model.NewValidationError(fmt.Sprintf("一度に指定できるIDは%d件までです。", maxBatchIDs))
	}

	results := make([]*model.StartupSummary, len(unique))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i, id := range unique {
		g.Go(func() error {
			summary, err := s.profiles.FindStartupSummary(gctx, id)
			if err != nil {
				return fmt.Errorf("スタートアップ %s の取得に失敗しました: %w", id, err)
			}
			results[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summaries := make([]model.StartupSummary, 0, len(results))
	for _, r := range results {
		if r != nil {
			summaries = append(summaries, *r)
		}
	}
	return summaries, nil
}

// UploadAsset はプロフィール画像・履歴書などをアップロードし、プロフィールのURLを差し替える。
// 差し替え前のオブジェクトはベストエフォートで削除する。
func (s *Service) UploadAsset(ctx context.Context, userID string, kind model.AssetKind, r io.Reader) (string, error) {
	ownerType, ok := kind.OwnerType()
	if !ok || kind == model.AssetEventImage {
		return "", model.NewValidationError(fmt.Sprintf("無効なアップロード種別です: %s", kind))
	}
	if _, err := user.RequireType(ctx, s.users, userID, ownerType,
		"このアカウント種別ではアップロードできません。"); err != nil {
		return "", err
	}

	publicURL, err := s.store.Save(ctx, kind, r)
	if err != nil {
		if apiErr, ok := storage.APIErrorFor(err); ok {
			return "", apiErr
		}
		return "", fmt.Errorf("ファイルの保存に失敗しました: %w", err)
	}

	oldURL, err := s.profiles.SetAssetURL(ctx, userID, kind, publicURL)
	if err != nil {
		s.removeQuietly(ctx, publicURL)
		if errors.Is(err, repository.ErrNotFound) {
			return "", model.NewProfileNotFoundError()
		}
		return "", fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
	}

	if oldURL != "" && oldURL != publicURL {
		s.removeQuietly(ctx, oldURL)
	}

	slog.Info("プロフィールのアセットを更新しました",
		slog.String("user_id", userID),
		slog.String("kind", string(kind)),
	)
	return publicURL, nil
}

func (s *Service) removeQuietly(ctx context.Context, publicURL string) {
	if err := s.store.Remove(ctx, publicURL); err != nil {
		slog.Warn("オブジェクトの削除に失敗しました",
			slog.String("url", publicURL),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) findStartup(ctx context.Context, userID string) (*model.StartupProfile, error) {
	p, err := s.profiles.FindStartup(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewProfileNotFoundError()
	}
	return p, nil
}

func (s *Service) findIndividual(ctx context.Context, userID string) (*model.IndividualProfile, error) {
	p, err := s.profiles.FindIndividual(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewProfileNotFoundError()
	}
	return p, nil
}

// validateWebURL は空でないURLがhttp/httpsの絶対URLであることを確認する。
func validateWebURL(field, raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return model.NewValidationError(fmt.Sprintf("%s はhttp(s)のURLで入力してください。", field))
	}
	return nil
}

// normalizeSkills は前後の空白を除去し、空要素と大文字小文字違いの重複を取り除く。
func normalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	seen := make(map[string]bool, len(skills))
	for _, sk := range skills {
		sk = strings.TrimSpace(sk)
		key := strings.ToLower(sk)
		if sk == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, sk)
	}
	return out
}
