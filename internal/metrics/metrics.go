// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 閲覧モデルの読み込み結果ラベル。
const (
	LoadResultSuccess   = "success"
	LoadResultFailure   = "failure"
	LoadResultMalformed = "malformed"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 上流クライアント、航海データクライアント、ハンドラーから利用する。
type MetricsCollector interface {
	RecordFetchSuccess()
	RecordFetchFailure(reason string)
	RecordHTTPStatus(statusCode int)
	RecordFetchLatency(duration time.Duration)
	RecordPayloadInvalid()
	RecordListingLoad(result string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	fetchSuccess   prometheus.Counter
	fetchFail      *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	fetchLatency   prometheus.Histogram
	payloadInvalid prometheus.Counter
	listingLoads   *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		fetchSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sailings_upstream_fetch_success_total",
			Help: "上流APIからの航海データ取得成功の合計数",
		}),
		fetchFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sailings_upstream_fetch_fail_total",
			Help: "上流APIからの航海データ取得失敗の合計数",
		}, []string{"reason"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sailings_upstream_http_status_total",
			Help: "上流APIのHTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sailings_upstream_fetch_latency_seconds",
			Help:    "上流API呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		payloadInvalid: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sailings_source_payload_invalid_total",
			Help: "形式不正として拒否された航海データレスポンスの合計数",
		}),
		listingLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sailings_listing_loads_total",
			Help: "閲覧モデルの読み込み結果別の合計数",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.fetchSuccess,
		c.fetchFail,
		c.httpStatus,
		c.fetchLatency,
		c.payloadInvalid,
		c.listingLoads,
	)

	return c
}

// RecordFetchSuccess は上流取得の成功を記録する。
func (c *Collector) RecordFetchSuccess() {
	c.fetchSuccess.Inc()
}

// RecordFetchFailure は上流取得の失敗を理由別に記録する。
// reasonは "transport", "status", "body", "invalid_json" などの固定値とする。
func (c *Collector) RecordFetchFailure(reason string) {
	c.fetchFail.WithLabelValues(reason).Inc()
}

// RecordHTTPStatus は上流のHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordFetchLatency は上流呼び出しのレイテンシを記録する。
func (c *Collector) RecordFetchLatency(duration time.Duration) {
	c.fetchLatency.Observe(duration.Seconds())
}

// RecordPayloadInvalid は形式不正なレスポンスを記録する。
func (c *Collector) RecordPayloadInvalid() {
	c.payloadInvalid.Inc()
}

// RecordListingLoad は閲覧モデルの読み込み結果を記録する。
func (c *Collector) RecordListingLoad(result string) {
	c.listingLoads.WithLabelValues(result).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop は何も記録しないMetricsCollector。CLIやテストで使用する。
type Nop struct{}

func (Nop) RecordFetchSuccess() {}
func (Nop) RecordFetchFailure(string) {}
func (Nop) RecordHTTPStatus(int) {}
func (Nop) RecordFetchLatency(time.Duration) {}
func (Nop) RecordPayloadInvalid() {}
func (Nop) RecordListingLoad(string) {}
