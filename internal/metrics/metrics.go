// Package metrics registers the Prometheus instruments shared across the
// gateway, consensus, router and quality subsystems.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level metrics (registered once)
var (
	metricsOnce sync.Once

	// ProviderRequests counts upstream calls by provider and outcome.
	ProviderRequests *prometheus.CounterVec
	// ProviderLatency tracks upstream call latency per provider.
	ProviderLatency *prometheus.HistogramVec
	// CacheEvents counts gateway response-cache hits and misses.
	CacheEvents *prometheus.CounterVec
	// ConsensusValidations counts consensus runs by validation method.
	ConsensusValidations *prometheus.CounterVec
	// TaskEvents counts task lifecycle transitions.
	TaskEvents *prometheus.CounterVec
	// PrincipleUpdates counts evolved principles by change kind.
	PrincipleUpdates *prometheus.CounterVec
	// QualityPredictions counts predictions by scoring mode.
	QualityPredictions *prometheus.CounterVec
)

// Init registers all instruments with the default registry. Safe to call
// from every constructor that records metrics.
func Init() {
	metricsOnce.Do(func() {
		ProviderRequests = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "constitutionalflow_provider_requests_total",
				Help: "Total upstream provider requests by outcome",
			},
			[]string{"provider", "status"},
		)

		ProviderLatency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "constitutionalflow_provider_latency_seconds",
				Help:    "Upstream provider request latency in seconds",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"provider"},
		)

		CacheEvents = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "constitutionalflow_gateway_cache_events_total",
				Help: "Gateway response cache hits and misses",
			},
			[]string{"event"},
		)

		ConsensusValidations = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "constitutionalflow_consensus_validations_total",
				Help: "Consensus validations by method",
			},
			[]string{"method"},
		)

		TaskEvents = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "constitutionalflow_task_events_total",
				Help: "Task lifecycle events",
			},
			[]string{"event"},
		)

		PrincipleUpdates = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "constitutionalflow_principle_updates_total",
				Help: "Principles written by the evolution engine",
			},
			[]string{"change"},
		)

		QualityPredictions = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "constitutionalflow_quality_predictions_total",
				Help: "Quality predictions by scoring mode",
			},
			[]string{"mode"},
		)
	})
}

// Handler returns the HTTP handler for the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
