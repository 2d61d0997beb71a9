package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Engine loop
	CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oi_engine_cycles_total",
			Help: "Analysis loop iterations by result",
		},
		[]string{"result"}, // result: completed|closed|error
	)

	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "oi_engine_cycle_duration_seconds",
			Help:    "Duration of completed analysis cycles",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	EngineRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "oi_engine_running",
			Help: "1 while the analysis loop is running",
		},
	)

	ActiveExchanges = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "oi_engine_active_exchanges",
			Help: "Exchanges open at the last loop iteration",
		},
	)

	// Analysis output
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oi_engine_signals_total",
			Help: "Kept signals by strength and direction",
		},
		[]string{"strength", "type"},
	)

	TokensAnalyzed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oi_engine_tokens_analyzed_total",
			Help: "Per-token analysis outcomes",
		},
		[]string{"outcome"}, // outcome: signal|discarded|data_gap|error
	)

	// Writes
	WriteFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oi_engine_write_failures_total",
			Help: "Failed signal/analytics writes by target",
		},
		[]string{"target"}, // target: signal_store|analytics_store|publisher
	)

	LastCycleTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "oi_engine_last_cycle_timestamp",
			Help: "Unix timestamp of the last completed cycle",
		},
	)
)

func init() {
	prometheus.MustRegister(
		CyclesTotal,
		CycleDuration,
		EngineRunning,
		ActiveExchanges,
		SignalsTotal,
		TokensAnalyzed,
		WriteFailures,
		LastCycleTimestamp,
	)
}

// -----------------------------------------------------------------------------

// RecordCycle stores the outcome of one completed cycle.
func RecordCycle(started time.Time) {
	CyclesTotal.WithLabelValues("completed").Inc()
	CycleDuration.Observe(time.Since(started).Seconds())
	LastCycleTimestamp.Set(float64(time.Now().Unix()))
}

// SetRunning flips the running gauge.
func SetRunning(running bool) {
	if running {
		EngineRunning.Set(1)
		return
	}
	EngineRunning.Set(0)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
