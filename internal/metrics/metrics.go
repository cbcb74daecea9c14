// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 操作結果のラベル値
const (
	OutcomeCreated   = "created"
	OutcomeDuplicate = "duplicate"
	OutcomeDeleted   = "deleted"
	OutcomeRejected  = "rejected"
)

// MetricsCollector はメトリクス収集のインターフェース。
// HTTPミドルウェア、サービス層、ワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPRequest(method, route string, statusCode int, duration time.Duration)
	RecordJobPosted()
	RecordEventPosted()
	RecordApplication(outcome string)
	RecordRegistration(outcome string)
	RecordUpload(kind, outcome string)
	RecordCleanup(sessions, objects int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests  *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec
	jobsPosted    prometheus.Counter
	eventsPosted  prometheus.Counter
	applications  *prometheus.CounterVec
	registrations *prometheus.CounterVec
	uploads       *prometheus.CounterVec
	cleanupRemove *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "launchboard_http_requests_total",
			Help: "ルート・メソッド・ステータスコード別のHTTPリクエスト数",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "launchboard_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		jobsPosted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "launchboard_jobs_posted_total",
			Help: "掲載された求人の合計数",
		}),
		eventsPosted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "launchboard_events_posted_total",
			Help: "作成されたイベントの合計数",
		}),
		applications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "launchboard_job_applications_total",
			Help: "結果別の求人応募数",
		}, []string{"outcome"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "launchboard_event_registrations_total",
			Help: "結果別のイベント参加登録数",
		}, []string{"outcome"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "launchboard_uploads_total",
			Help: "種別・結果別のアップロード数",
		}, []string{"kind", "outcome"}),
		cleanupRemove: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "launchboard_cleanup_removed_total",
			Help: "クリーンアップジョブで削除された件数",
		}, []string{"target"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.jobsPosted,
		c.eventsPosted,
		c.applications,
		c.registrations,
		c.uploads,
		c.cleanupRemove,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの件数と処理時間を記録する。
// routeにはchiのルートパターンを渡し、ラベルのカーディナリティを抑える。
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordJobPosted は求人の掲載を記録する。
func (c *Collector) RecordJobPosted() {
	c.jobsPosted.Inc()
}

// RecordEventPosted はイベントの作成を記録する。
func (c *Collector) RecordEventPosted() {
	c.eventsPosted.Inc()
}

// RecordApplication は求人応募の結果を記録する。
func (c *Collector) RecordApplication(outcome string) {
	c.applications.WithLabelValues(outcome).Inc()
}

// RecordRegistration はイベント参加登録の結果を記録する。
func (c *Collector) RecordRegistration(outcome string) {
	c.registrations.WithLabelValues(outcome).Inc()
}

// RecordUpload はアップロードの結果を記録する。
func (c *Collector) RecordUpload(kind, outcome string) {
	c.uploads.WithLabelValues(kind, outcome).Inc()
}

// RecordCleanup はクリーンアップジョブの削除件数を記録する。
func (c *Collector) RecordCleanup(sessions, objects int) {
	c.cleanupRemove.WithLabelValues("sessions").Add(float64(sessions))
	c.cleanupRemove.WithLabelValues("objects").Add(float64(objects))
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使用する。
type Nop struct{}

func (Nop) RecordHTTPRequest(string, string, int, time.Duration) {}
func (Nop) RecordJobPosted()                                      {}
func (Nop) RecordEventPosted()                                    {}
func (Nop) RecordApplication(string)                              {}
func (Nop) RecordRegistration(string)                             {}
func (Nop) RecordUpload(string, string)                           {}
func (Nop) RecordCleanup(int, int)                                {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
