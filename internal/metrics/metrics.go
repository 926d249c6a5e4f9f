// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// gatePhases はゲージで表現するゲート状態の全列挙。
var gatePhases = []string{"idle", "posted", "locked"}

// Collector はPrometheusメトリクスを収集する実装。
// スケジューラと認証サービスから利用する。
type Collector struct {
	publishSuccess prometheus.Counter
	publishFail    *prometheus.CounterVec
	cycleLatency   prometheus.Histogram
	gatePhase      *prometheus.GaugeVec
	loginTotal     *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		publishSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "botinst_publish_success_total",
			Help: "投稿成功の合計数",
		}),
		publishFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "botinst_publish_fail_total",
			Help: "原因コード別の投稿失敗数",
		}, []string{"code"}),
		cycleLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "botinst_cycle_latency_seconds",
			Help:    "投稿サイクルのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		gatePhase: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "botinst_gate_phase",
			Help: "デイリーゲートの現在状態（該当する状態のみ1）",
		}, []string{"phase"}),
		loginTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "botinst_login_total",
			Help: "認証方式別のセッション確立数",
		}, []string{"mode"}),
	}

	reg.MustRegister(
		c.publishSuccess,
		c.publishFail,
		c.cycleLatency,
		c.gatePhase,
		c.loginTotal,
	)

	return c
}

// RecordPublishSuccess は投稿成功を記録する。
func (c *Collector) RecordPublishSuccess() {
	c.publishSuccess.Inc()
}

// RecordPublishFailure は投稿失敗を原因コード付きで記録する。
func (c *Collector) RecordPublishFailure(code string) {
	c.publishFail.WithLabelValues(code).Inc()
}

// RecordCycleLatency は投稿サイクルのレイテンシを記録する。
func (c *Collector) RecordCycleLatency(duration time.Duration) {
	c.cycleLatency.Observe(duration.Seconds())
}

// SetGatePhase はデイリーゲートの現在状態をゲージに反映する。
func (c *Collector) SetGatePhase(phase string) {
	for _, p := range gatePhases {
		v := 0.0
		if p == phase {
			v = 1.0
		}
		c.gatePhase.WithLabelValues(p).Set(v)
	}
}

// RecordLogin はセッション確立を方式（"restore" / "full"）別に記録する。
func (c *Collector) RecordLogin(mode string) {
	c.loginTotal.WithLabelValues(mode).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
