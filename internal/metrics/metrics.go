// Package metrics exposes Prometheus collectors for Ollama generate calls.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Generate records generate latency and outcome counts. It satisfies
// ollama.Recorder.
type Generate struct {
	registry *prometheus.Registry
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
}

// NewGenerate creates the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func NewGenerate() *Generate {
	reg := prometheus.NewRegistry()
	g := &Generate{
		registry: reg,
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ollama_generate_duration_seconds",
			Help:    "Wall-clock duration of Ollama generate calls.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"outcome"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ollama_generate_requests_total",
			Help: "Ollama generate calls by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		g.duration,
		g.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return g
}

func (g *Generate) ObserveGenerate(outcome string, elapsed time.Duration) {
	g.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	g.requests.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (g *Generate) Handler() http.Handler {
	return promhttp.HandlerFor(g.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry, mainly for tests.
func (g *Generate) Registry() *prometheus.Registry {
	return g.registry
}
