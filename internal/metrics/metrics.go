// Package metrics exposes the Prometheus collectors of the canvas server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder receives pipeline events.
type Recorder interface {
	// Transition counts one controller transition with its outcome
	// ("applied", "noop", "invalid", "not_ready", "failed", "stale").
	Transition(name, outcome string)
	// FanOut records a completed fan-out.
	FanOut(branches int, elapsed time.Duration)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Transition(string, string)               {}
func (Nop) FanOut(int, time.Duration)               {}
func (Nop) BreakerState(string, int)                {}
func (Nop) Sessions(int)                            {}
func (Nop) HTTP(string, string, int, time.Duration) {}

// Collector holds the collectors, registered on a registry of its own so
// that several instances can coexist in tests.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	Transitions  *prometheus.CounterVec
	FanOuts      prometheus.Counter
	Branches     prometheus.Histogram
	FanOutTime   prometheus.Histogram
	ActiveSess   prometheus.Gauge
	Breaker      *prometheus.GaugeVec
}

// NewCollector creates and registers all collectors under namespace.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_transitions_total",
			Help:      "Pipeline controller transitions by outcome",
		}, []string{"transition", "outcome"}),
		FanOuts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fanouts_total",
			Help:      "Total number of applied fan-outs",
		}),
		Branches: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fanout_branches",
			Help:      "Number of branches created per fan-out",
			Buckets:   []float64{1, 2, 3, 4, 5, 8},
		}),
		FanOutTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fanout_duration_seconds",
			Help:      "Time from brand style confirmation to applied fan-out",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}),
		ActiveSess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of live canvas sessions",
		}),
		Breaker: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "generative_breaker_state",
			Help:      "Circuit breaker state per endpoint (0 closed, 1 half-open, 2 open)",
		}, []string{"endpoint"}),
	}

	c.registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Transitions,
		c.FanOuts,
		c.Branches,
		c.FanOutTime,
		c.ActiveSess,
		c.Breaker,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) Transition(name, outcome string) {
	c.Transitions.WithLabelValues(name, outcome).Inc()
}

func (c *Collector) FanOut(branches int, elapsed time.Duration) {
	c.FanOuts.Inc()
	c.Branches.Observe(float64(branches))
	c.FanOutTime.Observe(elapsed.Seconds())
}

// BreakerState records the state of the breaker guarding endpoint.
func (c *Collector) BreakerState(endpoint string, state int) {
	c.Breaker.WithLabelValues(endpoint).Set(float64(state))
}

// Sessions sets the number of live sessions.
func (c *Collector) Sessions(n int) {
	c.ActiveSess.Set(float64(n))
}

// HTTP records one served request. route is the matched route pattern.
func (c *Collector) HTTP(method, route string, status int, elapsed time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Registry returns the registry the collectors are registered on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
