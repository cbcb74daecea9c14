package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/launchboard/internal/metrics"
)

// Job は削除件数を返す掃除ジョブ。
type Job interface {
	Run(ctx context.Context) (int, error)
}

// Scheduler はセッション削除と孤立オブジェクト削除を一定間隔で実行する。
type Scheduler struct {
	sessions  Job
	objects   Job
	collector metrics.MetricsCollector
	logger    *slog.Logger
}

// NewScheduler はSchedulerを生成する。objectsがnilの場合はオブジェクトの掃除を行わない。
func NewScheduler(sessions, objects Job, collector metrics.MetricsCollector, logger *slog.Logger) *Scheduler {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Scheduler{
		sessions:  sessions,
		objects:   objects,
		collector: collector,
		logger:    logger,
	}
}

// Start はintervalごとに掃除を実行する。起動直後にも1回実行する。
// コンテキストがキャンセルされるまでブロックする。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("クリーンアップスケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("クリーンアップスケジューラを停止しました")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce は各ジョブを1回ずつ実行し、削除件数をメトリクスに記録する。
// 一方のジョブが失敗しても他方は実行する。
func (s *Scheduler) RunOnce(ctx context.Context) {
	sessions, err := s.sessions.Run(ctx)
	if err != nil {
		s.logger.Error("期限切れセッションの削除に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	objects := 0
	if s.objects != nil {
		objects, err = s.objects.Run(ctx)
		if err != nil {
			s.logger.Error("孤立オブジェクトの掃除に失敗しました",
				slog.String("error", err.Error()),
			)
		}
	}

	s.collector.RecordCleanup(sessions, objects)
}
