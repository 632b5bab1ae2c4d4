// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 楽観的更新の結果ラベル。
const (
	OutcomeReconciled        = "reconciled"
	OutcomeRolledBack        = "rolled_back"
	OutcomeRejectedAuth      = "rejected_auth"
	OutcomeRejectedInFlight  = "rejected_in_flight"
	OutcomeRejectedNotSeeded = "rejected_not_seeded"
)

// MetricsCollector はメトリクス収集のインターフェース。
// バックエンドクライアント、セッション管理、楽観的更新コントローラから利用する。
type MetricsCollector interface {
	// RecordBackendRequest はバックエンド呼び出し1回を記録する。
	// ネットワークエラーでレスポンスが無い場合、statusCodeは0。
	RecordBackendRequest(route string, statusCode int, duration time.Duration)
	RecordMutation(kind, outcome string)
	RecordSessionTransition(to string)
	SetActiveViewers(n int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	backendRequests *prometheus.CounterVec
	backendLatency  *prometheus.HistogramVec
	mutations       *prometheus.CounterVec
	sessions        *prometheus.CounterVec
	activeViewers   prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		backendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blogfront_backend_requests_total",
			Help: "バックエンドAPI呼び出し数（ルート・ステータスコード別）",
		}, []string{"route", "status_code"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "blogfront_backend_latency_seconds",
			Help:    "バックエンドAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blogfront_optimistic_mutations_total",
			Help: "楽観的更新の結果別件数",
		}, []string{"kind", "outcome"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blogfront_session_transitions_total",
			Help: "セッション状態遷移の遷移先別件数",
		}, []string{"state"}),
		activeViewers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blogfront_active_viewers",
			Help: "メモリ上に保持している閲覧者数",
		}),
	}

	reg.MustRegister(
		c.backendRequests,
		c.backendLatency,
		c.mutations,
		c.sessions,
		c.activeViewers,
	)

	return c
}

// RecordBackendRequest はバックエンド呼び出しの件数とレイテンシを記録する。
func (c *Collector) RecordBackendRequest(route string, statusCode int, duration time.Duration) {
	c.backendRequests.WithLabelValues(route, strconv.Itoa(statusCode)).Inc()
	c.backendLatency.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordMutation は楽観的更新の結果を記録する。
func (c *Collector) RecordMutation(kind, outcome string) {
	c.mutations.WithLabelValues(kind, outcome).Inc()
}

// RecordSessionTransition はセッションの状態遷移を記録する。
func (c *Collector) RecordSessionTransition(to string) {
	c.sessions.WithLabelValues(to).Inc()
}

// SetActiveViewers は保持中の閲覧者数を設定する。
func (c *Collector) SetActiveViewers(n int) {
	c.activeViewers.Set(float64(n))
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使用する。
type Nop struct{}

func (Nop) RecordBackendRequest(string, int, time.Duration) {}
func (Nop) RecordMutation(string, string)                   {}
func (Nop) RecordSessionTransition(string)                  {}
func (Nop) SetActiveViewers(int)                            {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
