// Package metrics provides Prometheus instrumentation for the forecasting
// and trading pipeline.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry collects and exposes every metric this system records. It wraps
// a dedicated prometheus.Registry rather than the global default, so tests
// and multiple instances never collide on metric registration.
type Registry struct {
	registry *prometheus.Registry

	ForecastsTotal      *prometheus.CounterVec
	ForecastLatency     *prometheus.HistogramVec
	LLMErrorsTotal      *prometheus.CounterVec
	EnsembleProbability *prometheus.GaugeVec
	EnsembleEntropy     *prometheus.GaugeVec
	TradesTotal         *prometheus.CounterVec
	TradeEdge           *prometheus.HistogramVec
	LearningRunsTotal   *prometheus.CounterVec
	JobDuration         *prometheus.HistogramVec
	LLMCostUSDTotal     *prometheus.CounterVec
}

// New creates a Registry with all metrics registered to a fresh
// prometheus.Registry.
func New() *Registry {
	registry := prometheus.NewRegistry()

	r := &Registry{
		registry: registry,

		ForecastsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecasts_total",
				Help: "Total number of per-model forecasts produced",
			},
			[]string{"model", "tier"},
		),
		ForecastLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forecast_latency_seconds",
				Help:    "Latency of a single model's forecast call",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms .. ~51s
			},
			[]string{"model"},
		),
		LLMErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_errors_total",
				Help: "Total number of failed LLM calls",
			},
			[]string{"model", "provider"},
		),
		EnsembleProbability: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ensemble_probability",
				Help: "Last combined ensemble probability, by domain",
			},
			[]string{"domain"},
		),
		EnsembleEntropy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ensemble_entropy",
				Help: "Last combined ensemble entropy in bits, by domain",
			},
			[]string{"domain"},
		),
		TradesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trades_total",
				Help: "Total number of trades placed",
			},
			[]string{"side", "mode"},
		),
		TradeEdge: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trade_edge",
				Help:    "Edge (ensemble probability minus market price) of placed trades",
				Buckets: prometheus.LinearBuckets(0, 0.02, 11), // 0 .. 0.20
			},
			[]string{"side"},
		),
		LearningRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "learning_runs_total",
				Help: "Total number of learning job runs, by outcome",
			},
			[]string{"job", "status"},
		),
		JobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "job_duration_seconds",
				Help:    "Duration of an orchestrator job run",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms .. ~205s
			},
			[]string{"job"},
		),
		LLMCostUSDTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_cost_usd_total",
				Help: "Total estimated LLM spend in USD",
			},
			[]string{"model"},
		),
	}

	registry.MustRegister(
		r.ForecastsTotal,
		r.ForecastLatency,
		r.LLMErrorsTotal,
		r.EnsembleProbability,
		r.EnsembleEntropy,
		r.TradesTotal,
		r.TradeEdge,
		r.LearningRunsTotal,
		r.JobDuration,
		r.LLMCostUSDTotal,
	)
	return r
}

// Prometheus returns the underlying registry, for wiring an HTTP handler.
func (r *Registry) Prometheus() *prometheus.Registry { return r.registry }

// RecordForecast counts one model's completed forecast by the ensemble's
// resulting confidence tier.
func (r *Registry) RecordForecast(model, tier string) {
	r.ForecastsTotal.WithLabelValues(model, tier).Inc()
}

// ObserveForecastLatency records how long a single model's forecast call
// took, independent of the tier the ensemble later assigns.
func (r *Registry) ObserveForecastLatency(model string, latencySeconds float64) {
	r.ForecastLatency.WithLabelValues(model).Observe(latencySeconds)
}

// RecordLLMError records a failed LLM call.
func (r *Registry) RecordLLMError(model, provider string) {
	r.LLMErrorsTotal.WithLabelValues(model, provider).Inc()
}

// RecordEnsemble records the last combined probability/entropy for a domain.
func (r *Registry) RecordEnsemble(domain string, probability, entropyBits float64) {
	r.EnsembleProbability.WithLabelValues(domain).Set(probability)
	r.EnsembleEntropy.WithLabelValues(domain).Set(entropyBits)
}

// RecordTrade records a placed trade and its edge.
func (r *Registry) RecordTrade(side, mode string, edge float64) {
	r.TradesTotal.WithLabelValues(side, mode).Inc()
	r.TradeEdge.WithLabelValues(side).Observe(edge)
}

// RecordJob records one orchestrator job's completion.
func (r *Registry) RecordJob(job, status string, durationSeconds float64) {
	r.LearningRunsTotal.WithLabelValues(job, status).Inc()
	r.JobDuration.WithLabelValues(job).Observe(durationSeconds)
}

// RecordLLMCost adds to the running USD spend total for a model.
func (r *Registry) RecordLLMCost(model string, costUSD float64) {
	r.LLMCostUSDTotal.WithLabelValues(model).Add(costUSD)
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// Default returns the process-wide metrics registry, created on first use.
func Default() *Registry {
	once.Do(func() {
		defaultRegistry = New()
	})
	return defaultRegistry
}
