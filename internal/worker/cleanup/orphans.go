package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/launchboard/internal/repository"
	"github.com/hitoshi/launchboard/internal/storage"
)

// DefaultGracePeriod は孤立オブジェクトを削除するまでの猶予期間。
// アップロード直後でURLの差し替えが完了していないオブジェクトを消さないために使う。
const DefaultGracePeriod = 24 * time.Hour

// ObjectStore は掃除対象のオブジェクトストア。
type ObjectStore interface {
	List(ctx context.Context) ([]storage.Object, error)
	ParseURL(publicURL string) (storage.Bucket, string, bool)
	Delete(ctx context.Context, bucket storage.Bucket, key string) error
}

// OrphanSweeper はどの行からも参照されていないオブジェクトを削除する。
type OrphanSweeper struct {
	refs        repository.AssetReferenceRepository
	store       ObjectStore
	logger      *slog.Logger
	gracePeriod time.Duration
	now         func() time.Time
}

// NewOrphanSweeper はOrphanSweeperを生成する。
// gracePeriodが0以下の場合はDefaultGracePeriodを使用する。
func NewOrphanSweeper(refs repository.AssetReferenceRepository, store ObjectStore, logger *slog.Logger, gracePeriod time.Duration) *OrphanSweeper {
	if gracePeriod <= 0 {
		gracePeriod = DefaultGracePeriod
	}
	return &OrphanSweeper{
		refs:        refs,
		store:       store,
		logger:      logger,
		gracePeriod: gracePeriod,
		now:         time.Now,
	}
}

type objectRef struct {
	bucket storage.Bucket
	key    string
}

// Run は孤立オブジェクトを削除し、削除件数を返す。
// 参照一覧の取得に失敗した場合は何も削除しない。
func (s *OrphanSweeper) Run(ctx context.Context) (int, error) {
	start := time.Now()

	urls, err := s.refs.ListAssetURLs(ctx)
	if err != nil {
		return 0, fmt.Errorf("参照URL一覧の取得に失敗: %w", err)
	}

	referenced := make(map[objectRef]struct{}, len(urls))
	for _, u := range urls {
		if bucket, key, ok := s.store.ParseURL(u); ok {
			referenced[objectRef{bucket: bucket, key: key}] = struct{}{}
		}
	}

	objects, err := s.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("オブジェクト一覧の取得に失敗: %w", err)
	}

	cutoff := s.now().Add(-s.gracePeriod)
	deleted := 0
	for _, obj := range objects {
		if _, ok := referenced[objectRef{bucket: obj.Bucket, key: obj.Key}]; ok {
			continue
		}
		if obj.ModTime.After(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, obj.Bucket, obj.Key); err != nil {
			s.logger.Warn("孤立オブジェクトの削除に失敗しました",
				slog.String("bucket", string(obj.Bucket)),
				slog.String("key", obj.Key),
				slog.String("error", err.Error()),
			)
			continue
		}
		deleted++
	}

	s.logger.Info("孤立オブジェクトの掃除が完了しました",
		slog.Int("scanned_count", len(objects)),
		slog.Int("deleted_count", deleted),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return deleted, nil
}
