// Package metrics exposes Prometheus collectors for the canvas hub.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Frame outcomes recorded by ObserveFrame.
const (
	OutcomeOK        = "ok"
	OutcomeMalformed = "malformed"
	OutcomeUnknown   = "unknown"
	OutcomeRejected  = "rejected"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "canvas").
	Namespace string

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the collectors.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

// Metrics holds the hub collectors.
type Metrics struct {
	framesTotal      *prometheus.CounterVec
	dispatchDuration prometheus.Histogram
	deliveriesTotal  *prometheus.CounterVec
	droppedTotal     prometheus.Counter
	connections      prometheus.Gauge
	sessions         prometheus.Gauge
	operations       prometheus.Gauge
	liveOperations   prometheus.Gauge
}

// New registers the collectors.
func New(opts ...Option) *Metrics {
	cfg := Config{
		Namespace: "canvas",
		Registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	factory := promauto.With(cfg.Registry)

	return &Metrics{
		framesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "frames_total",
			Help:      "Inbound frames processed, by message type and outcome",
		}, []string{"type", "outcome"}),

		dispatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent applying one inbound frame",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		}),

		deliveriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "deliveries_total",
			Help:      "Outbound frames queued to connections, by message type",
		}, []string{"type"}),

		droppedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "deliveries_dropped_total",
			Help:      "Outbound frames dropped because a send buffer was full",
		}),

		connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "connections",
			Help:      "Open websocket connections",
		}),

		sessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "sessions",
			Help:      "Registered user sessions",
		}),

		operations: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "operations",
			Help:      "Operations in the shared log, deleted included",
		}),

		liveOperations: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "live_operations",
			Help:      "Operations in the shared log that are not deleted",
		}),
	}
}

// ObserveFrame records one processed inbound frame.
func (m *Metrics) ObserveFrame(kind, outcome string, d time.Duration) {
	if kind == "" {
		kind = "none"
	}
	m.framesTotal.WithLabelValues(kind, outcome).Inc()
	m.dispatchDuration.Observe(d.Seconds())
}

// Delivered records one frame queued to a connection.
func (m *Metrics) Delivered(kind string) {
	m.deliveriesTotal.WithLabelValues(kind).Inc()
}

// Dropped records one frame lost to a full send buffer.
func (m *Metrics) Dropped() { m.droppedTotal.Inc() }

// SetConnections sets the open connection gauge.
func (m *Metrics) SetConnections(n int) { m.connections.Set(float64(n)) }

// SetState records the engine's session and log sizes.
func (m *Metrics) SetState(sessions, operations, live int) {
	m.sessions.Set(float64(sessions))
	m.operations.Set(float64(operations))
	m.liveOperations.Set(float64(live))
}
