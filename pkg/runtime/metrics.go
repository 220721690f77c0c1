package runtime

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the loop's Prometheus collectors.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "fervo").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for cycle duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures MetricsConfig.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the cycle duration histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "fervo",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the loop's Prometheus collectors. Pass one to NewLoop
// via WithMetrics; a single Metrics may be shared by multiple loops.
type Metrics struct {
	cyclesTotal       prometheus.Counter
	cycleDuration     prometheus.Histogram
	instancesRendered prometheus.Counter
	patchesTotal      prometheus.Counter
	liveInstances     prometheus.Gauge
	arenaNodes        prometheus.Gauge
}

// NewMetrics registers the loop collectors and returns them.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		cyclesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "cycles_total",
			Help:        "Total number of render cycles processed",
			ConstLabels: config.ConstLabels,
		}),
		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "cycle_duration_seconds",
			Help:        "Render cycle duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),
		instancesRendered: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "instances_rendered_total",
			Help:        "Total component instances re-rendered across all cycles",
			ConstLabels: config.ConstLabels,
		}),
		patchesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "patches_total",
			Help:        "Total patches emitted to the backend",
			ConstLabels: config.ConstLabels,
		}),
		liveInstances: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "live_instances",
			Help:        "Component instances currently mounted",
			ConstLabels: config.ConstLabels,
		}),
		arenaNodes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "arena_node_high_water",
			Help:        "Sum of arena node high-water marks across instances",
			ConstLabels: config.ConstLabels,
		}),
	}
}

func (m *Metrics) observeCycle(d time.Duration, rendered, patches, arenaHighWater int) {
	m.cyclesTotal.Inc()
	m.cycleDuration.Observe(d.Seconds())
	m.instancesRendered.Add(float64(rendered))
	m.patchesTotal.Add(float64(patches))
	m.arenaNodes.Set(float64(arenaHighWater))
}

func (m *Metrics) instanceMounted() {
	m.liveInstances.Inc()
}

func (m *Metrics) instanceDestroyed() {
	m.liveInstances.Dec()
}
