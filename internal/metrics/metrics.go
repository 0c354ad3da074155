// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層から利用する。
type MetricsCollector interface {
	RecordProvisionSuccess()
	RecordProvisionFailure(reason string)
	RecordCompensationFailure()
	RecordOTPDispatched()
	RecordMigrationSuccess()
	RecordPartialMigration()
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	provisionSuccess prometheus.Counter
	provisionFail    *prometheus.CounterVec
	compensationFail prometheus.Counter
	otpDispatched    prometheus.Counter
	migrationSuccess prometheus.Counter
	partialMigration prometheus.Counter
	httpStatus       *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		provisionSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quitsmoking_provision_success_total",
			Help: "アカウントプロビジョニング成功の合計数",
		}),
		provisionFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quitsmoking_provision_fail_total",
			Help: "アカウントプロビジョニング失敗の理由別合計数",
		}, []string{"reason"}),
		compensationFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quitsmoking_compensation_fail_total",
			Help: "プロビジョニング補償処理失敗の合計数",
		}),
		otpDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quitsmoking_otp_dispatched_total",
			Help: "ワンタイムパスコード送信の合計数",
		}),
		migrationSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quitsmoking_migration_success_total",
			Help: "所有権移行成功の合計数",
		}),
		partialMigration: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quitsmoking_partial_migration_total",
			Help: "部分的に失敗した所有権移行の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quitsmoking_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.provisionSuccess,
		c.provisionFail,
		c.compensationFail,
		c.otpDispatched,
		c.migrationSuccess,
		c.partialMigration,
		c.httpStatus,
	)

	return c
}

// RecordProvisionSuccess はプロビジョニング成功を記録する。
func (c *Collector) RecordProvisionSuccess() {
	c.provisionSuccess.Inc()
}

// RecordProvisionFailure はプロビジョニング失敗を理由つきで記録する。
func (c *Collector) RecordProvisionFailure(reason string) {
	c.provisionFail.WithLabelValues(reason).Inc()
}

// RecordCompensationFailure は補償処理の失敗を記録する。
func (c *Collector) RecordCompensationFailure() {
	c.compensationFail.Inc()
}

// RecordOTPDispatched はワンタイムパスコードの送信を記録する。
func (c *Collector) RecordOTPDispatched() {
	c.otpDispatched.Inc()
}

// RecordMigrationSuccess は所有権移行の成功を記録する。
func (c *Collector) RecordMigrationSuccess() {
	c.migrationSuccess.Inc()
}

// RecordPartialMigration は部分的に失敗した所有権移行を記録する。
func (c *Collector) RecordPartialMigration() {
	c.partialMigration.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
