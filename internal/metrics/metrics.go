// Package metrics exposes Prometheus collectors for completion calls and the web host.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Yates-Labs/storyteller/internal/completion"
)

const namespace = "storyteller"

// Recorder owns a registry and the collectors registered on it.
// It implements completion.Observer.
type Recorder struct {
	registry *prometheus.Registry

	completionRequests *prometheus.CounterVec
	completionDuration *prometheus.HistogramVec
	storyRequests      *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// NewRecorder creates a recorder with its own registry, so tests and
// multiple servers never collide on the global default registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		completionRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "completion_requests_total",
				Help:      "Total number of requests to the completion service.",
			},
			[]string{"model", "status"},
		),
		completionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "completion_request_duration_seconds",
				Help:      "Histogram of completion service request durations.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"model"},
		),
		storyRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "story_requests_total",
				Help:      "Story actions handled, by action and outcome.",
			},
			[]string{"action", "status"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds.",
				Buckets:   []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "path"},
		),
	}
}

// ObserveCompletion records one completion call.
func (r *Recorder) ObserveCompletion(model string, err error, elapsed time.Duration) {
	r.completionRequests.WithLabelValues(model, completionStatus(err)).Inc()
	r.completionDuration.WithLabelValues(model).Observe(elapsed.Seconds())
}

// ObserveStory records the outcome of a story action ("start" or "continue").
func (r *Recorder) ObserveStory(action string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	r.storyRequests.WithLabelValues(action, status).Inc()
}

// ObserveHTTP records one served HTTP request.
func (r *Recorder) ObserveHTTP(method, path, status string, elapsed time.Duration) {
	r.httpRequests.WithLabelValues(method, path, status).Inc()
	r.httpDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func completionStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, completion.ErrService):
		return "service_error"
	default:
		return "error"
	}
}
