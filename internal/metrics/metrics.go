// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// 残高操作の拒否理由ラベル
const (
	ReasonInsufficientBalance = "insufficient_balance"
	ReasonInvalidAmount       = "invalid_amount"
	ReasonUserNotFound        = "user_not_found"
)

// MetricsCollector はメトリクス収集のインターフェース。
// HTTPミドルウェアやサービス層から利用する。
type MetricsCollector interface {
	RecordHTTPRequest(method, route string, statusCode int, duration time.Duration)
	RecordCoinsReduced(amount decimal.Decimal)
	RecordTaskRefund(amount decimal.Decimal)
	RecordBalanceRejection(reason string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	coinsReduced      prometheus.Counter
	taskRefunds       prometheus.Counter
	refundedCoins     prometheus.Counter
	balanceRejections *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "microearn_http_requests_total",
			Help: "メソッド、ルート、ステータスコード別のHTTPリクエスト数",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "microearn_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		coinsReduced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "microearn_coins_reduced_total",
			Help: "減算されたコインの合計",
		}),
		taskRefunds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "microearn_task_refunds_total",
			Help: "タスク削除に伴う返金の回数",
		}),
		refundedCoins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "microearn_refunded_coins_total",
			Help: "バイヤーへ返金されたコインの合計",
		}),
		balanceRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "microearn_balance_rejections_total",
			Help: "理由別の残高操作拒否数",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.coinsReduced,
		c.taskRefunds,
		c.refundedCoins,
		c.balanceRejections,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの件数と処理時間を記録する。
// routeにはchiのルートパターンを渡し、ラベルのカーディナリティを抑える。
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordCoinsReduced は減算されたコイン額を記録する。
func (c *Collector) RecordCoinsReduced(amount decimal.Decimal) {
	c.coinsReduced.Add(amount.InexactFloat64())
}

// RecordTaskRefund は返金を記録する。
func (c *Collector) RecordTaskRefund(amount decimal.Decimal) {
	c.taskRefunds.Inc()
	c.refundedCoins.Add(amount.InexactFloat64())
}

// RecordBalanceRejection は残高操作の拒否を記録する。
func (c *Collector) RecordBalanceRejection(reason string) {
	c.balanceRejections.WithLabelValues(reason).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
