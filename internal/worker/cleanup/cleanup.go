// Package cleanup はバックグラウンドの掃除ジョブを提供する。
// 期限切れセッションの削除と、どの行からも参照されなくなった保存済みオブジェクトの削除を行う。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ExpiredSessionDeleter は期限切れセッションを削除するリポジトリ。
type ExpiredSessionDeleter interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// SessionCleanupJob は期限切れセッションの削除ジョブ。削除対象がなくてもエラーにしない。
type SessionCleanupJob struct {
	sessions ExpiredSessionDeleter
	logger   *slog.Logger
	now      func() time.Time
}

func NewSessionCleanupJob(sessions ExpiredSessionDeleter, logger *slog.Logger) *SessionCleanupJob {
	return &SessionCleanupJob{sessions: sessions, logger: logger, now: time.Now}
}

// Run は現在時刻より前に期限切れとなったセッションを削除し、削除件数を返す。
func (j *SessionCleanupJob) Run(ctx context.Context) (int, error) {
	start := time.Now()

	deleted, err := j.sessions.DeleteExpired(ctx, j.now())
	if err != nil {
		return 0, fmt.Errorf("セッションクリーンアップの実行に失敗: %w", err)
	}

	j.logger.Info("期限切れセッションを削除しました",
		slog.Int64("deleted_count", deleted),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return int(deleted), nil
}
