// Package metrics exports inference counters to Prometheus.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/reticula/pkg/pipeline"
)

// Recorder owns a private registry so several servers can live in one
// process (and in tests) without colliding on the default registry.
type Recorder struct {
	registry      *prometheus.Registry
	stages        *prometheus.CounterVec
	durations     *prometheus.HistogramVec
	reticulations prometheus.Histogram
	cache         *prometheus.CounterVec
}

// New creates a Recorder with its collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		stages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reticula_stage_total",
				Help: "Pipeline stages run, by outcome",
			},
			[]string{"stage", "outcome"},
		),
		durations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reticula_stage_duration_seconds",
				Help:    "Duration of pipeline stages",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
			},
			[]string{"stage"},
		),
		reticulations: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "reticula_network_reticulations",
				Help:    "Reticulation nodes per inferred network",
				Buckets: []float64{0, 1, 2, 4, 8, 16, 32},
			},
		),
		cache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reticula_cache_requests_total",
				Help: "Result cache lookups, by result",
			},
			[]string{"result"},
		),
	}
	r.registry.MustRegister(r.stages, r.durations, r.reticulations, r.cache)
	return r
}

// Hooks returns pipeline hooks feeding the recorder.
func (r *Recorder) Hooks() pipeline.Hooks {
	return pipeline.Hooks{
		OnStageEnd: func(_ context.Context, e *pipeline.StageEvent) {
			outcome := "ok"
			if e.Err != nil {
				outcome = "error"
			}
			r.stages.WithLabelValues(string(e.Stage), outcome).Inc()
			r.durations.WithLabelValues(string(e.Stage)).Observe(e.Duration.Seconds())
			if e.Stage == pipeline.StageRoot && e.Err == nil {
				r.reticulations.Observe(float64(e.Reticulations))
			}
		},
	}
}

// ObserveCache counts a cache lookup.
func (r *Recorder) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cache.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
