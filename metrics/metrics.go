package metrics

import (
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric groups accepted in Config.Enabled.
const (
	GroupHTTP      = "http"
	GroupWebSocket = "websocket"
)

// Config holds collector configuration.
type Config struct {
	// Namespace prefixes every metric name. Empty means "gantry".
	Namespace string

	// Subsystem is the optional middle component of metric names.
	Subsystem string

	// Path is the exposition endpoint the server mounts. Empty means
	// "/metrics".
	Path string

	// Enabled lists the metric groups to register. Nil enables both
	// GroupHTTP and GroupWebSocket.
	Enabled []string
}

// DefaultConfig returns the configuration applied to zero Config fields.
func DefaultConfig() Config {
	return Config{
		Namespace: "gantry",
		Path:      "/metrics",
		Enabled:   []string{GroupHTTP, GroupWebSocket},
	}
}

// Collector owns a private Prometheus registry and the framework's metric
// vectors. Vectors for disabled groups stay nil. Every observe method is
// safe on a nil receiver and on a nil vector, so callers can wire the
// hooks unconditionally.
type Collector struct {
	config   Config
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	WSConnectionsActive prometheus.Gauge
	WSMessagesTotal     *prometheus.CounterVec
	WSBroadcastsTotal   prometheus.Counter
}

// New creates a collector with its own Prometheus registry, filling zero
// Config fields from DefaultConfig.
func New(cfg Config) *Collector {
	def := DefaultConfig()
	if cfg.Namespace == "" {
		cfg.Namespace = def.Namespace
	}
	if cfg.Path == "" {
		cfg.Path = def.Path
	}
	if cfg.Enabled == nil {
		cfg.Enabled = def.Enabled
	}

	c := &Collector{
		config:   cfg,
		registry: prometheus.NewRegistry(),
	}

	if slices.Contains(cfg.Enabled, GroupHTTP) {
		c.HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"})

		c.HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"})

		c.registry.MustRegister(c.HTTPRequestsTotal, c.HTTPRequestDuration)
	}

	if slices.Contains(cfg.Enabled, GroupWebSocket) {
		c.WSConnectionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "ws_connections_active",
			Help:      "Number of currently open WebSocket connections",
		})

		c.WSMessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "ws_messages_total",
			Help:      "Total number of dispatched WebSocket messages",
		}, []string{"route", "type", "status"})

		c.WSBroadcastsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "ws_broadcasts_total",
			Help:      "Total number of topic broadcasts",
		})

		c.registry.MustRegister(c.WSConnectionsActive, c.WSMessagesTotal, c.WSBroadcastsTotal)
	}

	return c
}

// Path returns the configured exposition endpoint path.
func (c *Collector) Path() string { return c.config.Path }

// Handler returns an HTTP handler that serves this collector's registry in
// the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one completed HTTP request.
func (c *Collector) ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	if c.HTTPRequestsTotal != nil {
		c.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	}
	if c.HTTPRequestDuration != nil {
		c.HTTPRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
	}
}

// ObserveConn moves the active connection gauge by delta.
func (c *Collector) ObserveConn(delta int) {
	if c == nil || c.WSConnectionsActive == nil {
		return
	}
	c.WSConnectionsActive.Add(float64(delta))
}

// ObserveMessage counts one dispatched WebSocket message.
func (c *Collector) ObserveMessage(route, msgType, status string) {
	if c == nil || c.WSMessagesTotal == nil {
		return
	}
	c.WSMessagesTotal.WithLabelValues(route, msgType, status).Inc()
}

// ObserveBroadcast counts one topic broadcast.
func (c *Collector) ObserveBroadcast() {
	if c == nil || c.WSBroadcastsTotal == nil {
		return
	}
	c.WSBroadcastsTotal.Inc()
}
