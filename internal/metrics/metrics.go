// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェアとハンドラー層から利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordRecipeCreated()
	RecordImageStored(bytes int64)
	RecordTokenIssued()
	RecordAuthFailure()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
	recipesCreated prometheus.Counter
	imageBytes     prometheus.Counter
	tokensIssued   prometheus.Counter
	authFailures   prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recipebook_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "recipebook_request_latency_seconds",
			Help:    "APIリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		recipesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recipebook_recipes_created_total",
			Help: "作成されたレシピの合計数",
		}),
		imageBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recipebook_image_bytes_stored_total",
			Help: "保存された画像の合計バイト数",
		}),
		tokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recipebook_tokens_issued_total",
			Help: "発行されたAPIトークンの合計数",
		}),
		authFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recipebook_auth_failures_total",
			Help: "認証失敗の合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestLatency,
		c.recipesCreated,
		c.imageBytes,
		c.tokensIssued,
		c.authFailures,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordRecipeCreated はレシピ作成を記録する。
func (c *Collector) RecordRecipeCreated() {
	c.recipesCreated.Inc()
}

// RecordImageStored は画像保存を記録する。
func (c *Collector) RecordImageStored(bytes int64) {
	c.imageBytes.Add(float64(bytes))
}

// RecordTokenIssued はトークン発行を記録する。
func (c *Collector) RecordTokenIssued() {
	c.tokensIssued.Inc()
}

// RecordAuthFailure は認証失敗を記録する。
func (c *Collector) RecordAuthFailure() {
	c.authFailures.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
