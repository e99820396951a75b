// Package metrics exposes lifecycle events as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tjfontaine/bare-gateway/internal/core/domain"
	"github.com/tjfontaine/bare-gateway/internal/events"
)

const namespace = "bare_gateway"

// Collector is an events.Listener that counts requests, responses and
// errors and observes backend latency.
type Collector struct {
	registry  *prometheus.Registry
	requests  prometheus.Counter
	responses *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
}

var _ events.Listener = (*Collector)(nil)

// New creates a collector registered on its own registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Translated requests entering the pipeline.",
		}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_total",
			Help:      "Responses delivered, by backend alias.",
		}, []string{"alias"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Pipeline failures, by error type.",
		}, []string{"type"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time from translation to response delivery.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"alias"}),
	}
	c.registry.MustRegister(c.requests, c.responses, c.errors, c.latency)
	return c
}

// Registry returns the registry holding the gateway metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) OnRequest(_ context.Context, _ *domain.RequestEvent) {
	c.requests.Inc()
}

func (c *Collector) OnResponse(_ context.Context, ev *domain.ResponseEvent) {
	c.responses.WithLabelValues(ev.Alias).Inc()
	c.latency.WithLabelValues(ev.Alias).Observe(ev.Duration.Seconds())
}

func (c *Collector) OnError(_ context.Context, ev *domain.ErrorEvent) {
	c.errors.WithLabelValues(domain.ErrorType(ev.Err)).Inc()
}
