// Package metrics provides the centralized Prometheus metrics registry for
// the discrepancy scanner.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	OpportunitiesDetectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "edge_scanner",
		Name:      "opportunities_detected_total",
		Help:      "Total number of opportunities detected, by type",
	}, []string{"type"})
	SignalsDispatchedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "edge_scanner",
		Name:      "signals_dispatched_total",
		Help:      "Total number of high-value signals dispatched",
	})
	SignalsCancelledTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "edge_scanner",
		Name:      "signals_cancelled_total",
		Help:      "Total number of signals cancelled before dispatch, by reason",
	}, []string{"reason"})
	StaleRejectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "edge_scanner",
		Name:      "stale_rejections_total",
		Help:      "Total number of opportunities rejected for staleness",
	})
	FalsePositivesAvoidedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "edge_scanner",
		Name:      "false_positives_avoided_total",
		Help:      "Total number of marginal signals suppressed",
	})
	ScanCyclesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "edge_scanner",
		Name:      "scan_cycles_total",
		Help:      "Total number of scan cycles run",
	})
	GameScanErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "edge_scanner",
		Name:      "game_scan_errors_total",
		Help:      "Total number of per-game scan failures",
	})
	FeedErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "edge_scanner",
		Name:      "feed_errors_total",
		Help:      "Total number of odds feed errors, by kind",
	}, []string{"kind"})
)

// Gauge metrics
var (
	ActiveScanWorkers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "edge_scanner",
		Name:      "active_scan_workers",
		Help:      "Number of scan workers currently processing games",
	})
	RegisteredBookProfiles = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "edge_scanner",
		Name:      "registered_book_profiles",
		Help:      "Number of book profiles in the registry snapshot",
	})
	LastScanOpportunities = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "edge_scanner",
		Name:      "last_scan_opportunities",
		Help:      "Opportunities found in the most recent scan cycle",
	})
)

// Histogram metrics
var (
	ScanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "edge_scanner",
		Name:      "scan_duration_seconds",
		Help:      "Duration of full scan cycles in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
	})
	RecheckLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "edge_scanner",
		Name:      "recheck_latency_seconds",
		Help:      "Latency of pre-dispatch validation re-checks in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	ProfitMarginDistribution = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "edge_scanner",
		Name:      "profit_margin",
		Help:      "Distribution of detected profit margins",
		Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.02, 0.05, 0.1},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(OpportunitiesDetectedTotal)
		registry.MustRegister(SignalsDispatchedTotal)
		registry.MustRegister(SignalsCancelledTotal)
		registry.MustRegister(StaleRejectionsTotal)
		registry.MustRegister(FalsePositivesAvoidedTotal)
		registry.MustRegister(ScanCyclesTotal)
		registry.MustRegister(GameScanErrorsTotal)
		registry.MustRegister(FeedErrorsTotal)

		registry.MustRegister(ActiveScanWorkers)
		registry.MustRegister(RegisteredBookProfiles)
		registry.MustRegister(LastScanOpportunities)

		registry.MustRegister(ScanDuration)
		registry.MustRegister(RecheckLatency)
		registry.MustRegister(ProfitMarginDistribution)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordOpportunity records a detected opportunity.
func RecordOpportunity(opportunityType string, profitMargin float64) {
	OpportunitiesDetectedTotal.WithLabelValues(opportunityType).Inc()
	ProfitMarginDistribution.Observe(profitMargin)
}

// RecordDispatch records a dispatched signal.
func RecordDispatch() {
	SignalsDispatchedTotal.Inc()
}

// RecordCancellation records a cancelled signal.
func RecordCancellation(reason string) {
	SignalsCancelledTotal.WithLabelValues(reason).Inc()
}

// RecordStaleRejection records a staleness rejection.
func RecordStaleRejection() {
	StaleRejectionsTotal.Inc()
}

// RecordFalsePositiveAvoided records a suppressed marginal signal.
func RecordFalsePositiveAvoided() {
	FalsePositivesAvoidedTotal.Inc()
}

// RecordScanCycle records a completed scan cycle.
func RecordScanCycle(durationSeconds float64, opportunities int) {
	ScanCyclesTotal.Inc()
	ScanDuration.Observe(durationSeconds)
	LastScanOpportunities.Set(float64(opportunities))
}

// RecordGameScanError records a per-game scan failure.
func RecordGameScanError() {
	GameScanErrorsTotal.Inc()
}

// RecordFeedError records an odds feed error.
func RecordFeedError(kind string) {
	FeedErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordRecheckLatency records the latency of a final validation re-check.
func RecordRecheckLatency(durationSeconds float64) {
	RecheckLatency.Observe(durationSeconds)
}
