package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "beacon").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for dispatch duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics.
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

// WithBuckets sets the histogram buckets.
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
		Namespace: "beacon",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// metrics holds the Prometheus metrics for the relay.
type metrics struct {
	eventsTotal       *prometheus.CounterVec
	dispatchDuration  *prometheus.HistogramVec
	signalsRelayed    prometheus.Counter
	activeConnections prometheus.Gauge
	activeRooms       prometheus.Gauge
	droppedDeliveries *prometheus.CounterVec
	wsErrors          *prometheus.CounterVec
}

// globalMetrics is the singleton metrics instance.
// Created on the first call to InitMetrics().
var (
	globalMetrics   *metrics
	globalMetricsMu sync.Mutex
)

func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "events_total",
			Help:        "Total number of relay events processed",
			ConstLabels: config.ConstLabels,
		}, []string{"event", "status"}),

		dispatchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "dispatch_duration_seconds",
			Help:        "Event dispatch duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"event"}),

		signalsRelayed: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "signals_relayed_total",
			Help:        "Total number of point-to-point signals relayed",
			ConstLabels: config.ConstLabels,
		}),

		activeConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "active_connections",
			Help:        "Number of active WebSocket connections",
			ConstLabels: config.ConstLabels,
		}),

		activeRooms: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "active_rooms",
			Help:        "Number of rooms with at least one participant",
			ConstLabels: config.ConstLabels,
		}),

		droppedDeliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "dropped_deliveries_total",
			Help:        "Total notifications dropped before delivery by reason",
			ConstLabels: config.ConstLabels,
		}, []string{"reason"}),

		wsErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "websocket_errors_total",
			Help:        "Total WebSocket errors by type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),
	}
}

// InitMetrics initializes the Prometheus metrics.
//
// Metrics collected:
//   - beacon_events_total: Counter of relay events by event and status
//   - beacon_dispatch_duration_seconds: Histogram of dispatch duration
//   - beacon_signals_relayed_total: Counter of relayed signals
//   - beacon_active_connections: Gauge of live WebSocket connections
//   - beacon_active_rooms: Gauge of non-empty rooms
//   - beacon_dropped_deliveries_total: Counter of undeliverable notifications
//   - beacon_websocket_errors_total: Counter of WebSocket errors
//
// Expose them with promhttp.Handler() on /metrics.
func InitMetrics(opts ...MetricsOption) {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	globalMetricsMu.Lock()
	defer globalMetricsMu.Unlock()
	if globalMetrics == nil {
		globalMetrics = initMetrics(config)
	}
}

// RecordEvent records a processed relay event with its outcome.
func RecordEvent(event, status string) {
	if globalMetrics != nil {
		globalMetrics.eventsTotal.WithLabelValues(event, status).Inc()
	}
}

// RecordDispatchDuration records how long an event took to dispatch.
func RecordDispatchDuration(event string, seconds float64) {
	if globalMetrics != nil {
		globalMetrics.dispatchDuration.WithLabelValues(event).Observe(seconds)
	}
}

// RecordSignalRelayed records one relayed point-to-point signal.
func RecordSignalRelayed() {
	if globalMetrics != nil {
		globalMetrics.signalsRelayed.Inc()
	}
}

// RecordConnect records a new WebSocket connection.
func RecordConnect() {
	if globalMetrics != nil {
		globalMetrics.activeConnections.Inc()
	}
}

// RecordDisconnect records a closed WebSocket connection.
func RecordDisconnect() {
	if globalMetrics != nil {
		globalMetrics.activeConnections.Dec()
	}
}

// SetActiveRooms records the current number of non-empty rooms.
func SetActiveRooms(n int) {
	if globalMetrics != nil {
		globalMetrics.activeRooms.Set(float64(n))
	}
}

// RecordDroppedDelivery records a notification dropped before delivery.
func RecordDroppedDelivery(reason string) {
	if globalMetrics != nil {
		globalMetrics.droppedDeliveries.WithLabelValues(reason).Inc()
	}
}

// RecordWebSocketError records a WebSocket error.
func RecordWebSocketError(errorType string) {
	if globalMetrics != nil {
		globalMetrics.wsErrors.WithLabelValues(errorType).Inc()
	}
}
