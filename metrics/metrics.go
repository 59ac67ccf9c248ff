// Package metrics exports what signals do as Prometheus metrics.
//
//	collector := metrics.New(metrics.WithNamespace("myapp"))
//	userSaved := dispatch.New(
//	    dispatch.WithName("user_saved"),
//	    dispatch.WithObserver(collector),
//	)
package metrics

import (
	"errors"
	"time"

	"github.com/b97tsk/dispatch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures a Collector.
type Config struct {
	// Namespace is the metrics namespace (default: "dispatch").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for receiver duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures a Collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "dispatch",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// A Collector is a dispatch.Observer that records Prometheus metrics.
// Every metric is labeled with the name of the signal.
type Collector struct {
	receivers        *prometheus.GaugeVec
	dispatchesTotal  *prometheus.CounterVec
	callsTotal       *prometheus.CounterVec
	receiverDuration *prometheus.HistogramVec
}

var _ dispatch.Observer = (*Collector)(nil)

// New creates a Collector and registers its metrics.
// It panics if they are already registered with the same registry.
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Collector{
		receivers: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "receivers",
			Help:        "Number of receivers connected to a signal",
			ConstLabels: config.ConstLabels,
		}, []string{"signal"}),

		dispatchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dispatches_total",
			Help:        "Total number of messages sent through a signal",
			ConstLabels: config.ConstLabels,
		}, []string{"signal", "mode"}),

		callsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "receiver_calls_total",
			Help:        "Total number of receiver calls",
			ConstLabels: config.ConstLabels,
		}, []string{"signal", "mode", "status"}),

		receiverDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "receiver_duration_seconds",
			Help:        "Receiver call duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"signal", "mode"}),
	}
}

// ObserveRegistry implements dispatch.Observer.
func (c *Collector) ObserveRegistry(s *dispatch.Signal, receivers int) {
	c.receivers.WithLabelValues(s.Name()).Set(float64(receivers))
}

// ObserveDispatch implements dispatch.Observer.
func (c *Collector) ObserveDispatch(s *dispatch.Signal, mode dispatch.Mode, receivers int) {
	c.dispatchesTotal.WithLabelValues(s.Name(), mode.String()).Inc()
}

// ObserveReceiver implements dispatch.Observer.
func (c *Collector) ObserveReceiver(s *dispatch.Signal, mode dispatch.Mode, err error, elapsed time.Duration) {
	c.callsTotal.WithLabelValues(s.Name(), mode.String(), status(err)).Inc()
	c.receiverDuration.WithLabelValues(s.Name(), mode.String()).Observe(elapsed.Seconds())
}

func status(err error) string {
	var pe *dispatch.PanicError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &pe):
		return "panic"
	default:
		return "error"
	}
}
