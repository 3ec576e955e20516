// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Screener metrics
	TickersScreened  prometheus.Counter
	SignalsGenerated *prometheus.CounterVec

	// Paper trading metrics
	TradesCreated prometheus.Counter
	TradesFilled  prometheus.Counter
	TradesClosed  *prometheus.CounterVec
	OpenTrades    prometheus.Gauge

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  *prometheus.HistogramVec

	// Backtest metrics
	BacktestsRun prometheus.Counter

	// External API metrics
	NewsFetchLatency     prometheus.Histogram
	NotificationsSent    prometheus.Counter
	NotificationFailures prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulPipeline prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "quantscreener"
	}

	return &Metrics{
		// Screener metrics
		TickersScreened: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "screener",
			Name:      "tickers_screened_total",
			Help:      "Total number of tickers evaluated by the screeners",
		}),
		SignalsGenerated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "screener",
			Name:      "signals_generated_total",
			Help:      "Total number of signals generated by strategy",
		}, []string{"strategy"}),

		// Paper trading metrics
		TradesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "paper",
			Name:      "trades_created_total",
			Help:      "Total number of pending paper trades created",
		}),
		TradesFilled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "paper",
			Name:      "trades_filled_total",
			Help:      "Total number of paper trades filled",
		}),
		TradesClosed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "paper",
			Name:      "trades_closed_total",
			Help:      "Total number of paper trades closed by exit reason",
		}, []string{"exit_reason"}),
		OpenTrades: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "paper",
			Name:      "open_trades",
			Help:      "Current number of open paper trades",
		}),

		// Pipeline metrics
		PipelineRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by phase and status",
		}, []string{"phase", "status"}),
		PipelineDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline phase execution duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"phase"}),

		// Backtest metrics
		BacktestsRun: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_total",
			Help:      "Total number of backtest simulations run",
		}),

		// External API metrics
		NewsFetchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "news",
			Name:      "fetch_latency_seconds",
			Help:      "Finnhub news fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		NotificationsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "sent_total",
			Help:      "Total number of Telegram summaries sent",
		}),
		NotificationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "failures_total",
			Help:      "Total number of Telegram send failures",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulPipeline: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_pipeline_timestamp",
			Help:      "Unix timestamp of last successful pipeline run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSignals records screener output for one strategy.
func RecordSignals(strategy string, screened, signals int) {
	DefaultMetrics.TickersScreened.Add(float64(screened))
	DefaultMetrics.SignalsGenerated.WithLabelValues(strategy).Add(float64(signals))
}

// RecordTradesCreated increments the created-trades counter.
func RecordTradesCreated(n int) {
	DefaultMetrics.TradesCreated.Add(float64(n))
}

// RecordTradesFilled increments the filled-trades counter.
func RecordTradesFilled(n int) {
	DefaultMetrics.TradesFilled.Add(float64(n))
}

// RecordTradeClosed records one closed trade by exit reason.
func RecordTradeClosed(exitReason string) {
	DefaultMetrics.TradesClosed.WithLabelValues(exitReason).Inc()
}

// UpdateOpenTrades sets the open-trades gauge.
func UpdateOpenTrades(n int) {
	DefaultMetrics.OpenTrades.Set(float64(n))
}

// RecordPipelineRun records a pipeline phase outcome.
func RecordPipelineRun(phase, status string, durationSeconds float64) {
	DefaultMetrics.PipelineRunsTotal.WithLabelValues(phase, status).Inc()
	DefaultMetrics.PipelineDuration.WithLabelValues(phase).Observe(durationSeconds)
}

// RecordBacktestRun counts one completed backtest simulation.
func RecordBacktestRun() {
	DefaultMetrics.BacktestsRun.Inc()
}

// RecordNewsFetch observes one Finnhub fetch.
func RecordNewsFetch(seconds float64) {
	DefaultMetrics.NewsFetchLatency.Observe(seconds)
}

// RecordNotification counts a Telegram send attempt.
func RecordNotification(err error) {
	if err != nil {
		DefaultMetrics.NotificationFailures.Inc()
		return
	}
	DefaultMetrics.NotificationsSent.Inc()
}

// RecordPipelineSuccess stamps the last fully successful run.
func RecordPipelineSuccess(unixSeconds float64) {
	DefaultMetrics.LastSuccessfulPipeline.Set(unixSeconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
