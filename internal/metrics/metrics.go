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
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordLoginStarted()
	RecordCallbackResult(outcome string)
	RecordTokenVerification(success bool)
	RecordTeamOperation(operation string, success bool)
	RecordHTTPStatus(statusCode int)
	RecordExchangeLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	loginStarted    prometheus.Counter
	callbackResult  *prometheus.CounterVec
	tokenVerify     *prometheus.CounterVec
	teamOperation   *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
	exchangeLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filmcrew_login_started_total",
			Help: "開始されたログインフローの合計数",
		}),
		callbackResult: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filmcrew_callback_total",
			Help: "OAuthコールバックの結果別の合計数",
		}, []string{"outcome"}),
		tokenVerify: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filmcrew_token_verification_total",
			Help: "トークン検証の結果別の合計数",
		}, []string{"result"}),
		teamOperation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filmcrew_team_operation_total",
			Help: "チーム操作の種別・結果別の合計数",
		}, []string{"operation", "result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filmcrew_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		exchangeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "filmcrew_token_exchange_latency_seconds",
			Help:    "トークンエンドポイント呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.loginStarted,
		c.callbackResult,
		c.tokenVerify,
		c.teamOperation,
		c.httpStatus,
		c.exchangeLatency,
	)

	return c
}

// RecordLoginStarted はログインフローの開始を記録する。
func (c *Collector) RecordLoginStarted() {
	c.loginStarted.Inc()
}

// RecordCallbackResult はOAuthコールバックの結果を記録する。
// outcomeにはsuccess、invalid_state、exchange_failedなどを渡す。
func (c *Collector) RecordCallbackResult(outcome string) {
	c.callbackResult.WithLabelValues(outcome).Inc()
}

// RecordTokenVerification はトークン検証の結果を記録する。
func (c *Collector) RecordTokenVerification(success bool) {
	c.tokenVerify.WithLabelValues(resultLabel(success)).Inc()
}

// RecordTeamOperation はチーム操作の結果を記録する。
// operationにはcreate、join、leaveなどを渡す。
func (c *Collector) RecordTeamOperation(operation string, success bool) {
	c.teamOperation.WithLabelValues(operation, resultLabel(success)).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordExchangeLatency はトークン交換のレイテンシを記録する。
func (c *Collector) RecordExchangeLatency(duration time.Duration) {
	c.exchangeLatency.Observe(duration.Seconds())
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
