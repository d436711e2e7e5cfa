package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dashboard"

// Metrics holds all the Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Upstream metrics, backend and market data
	UpstreamRequestsTotal   *prometheus.CounterVec
	UpstreamRequestDuration *prometheus.HistogramVec

	// Query cache metrics
	CacheRequestsTotal *prometheus.CounterVec
	CacheEntries       prometheus.Gauge

	// Poller metrics
	PollsTotal   *prometheus.CounterVec
	PollDuration *prometheus.HistogramVec

	// Stream metrics
	ActiveStreams prometheus.Gauge

	// Notification metrics
	NotificationsPublished  *prometheus.CounterVec
	NotificationStatePruned prometheus.Counter

	// Withdrawal metrics
	WithdrawalsTotal *prometheus.CounterVec

	// Infrastructure metrics
	DatabaseConnections  prometheus.Gauge
	NATSConnectionStatus prometheus.Gauge

	// Auth metrics
	AuthFailuresTotal *prometheus.CounterVec

	// Error metrics
	ErrorsTotal        *prometheus.CounterVec
	PanicRecoveryTotal *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "endpoint", "status_code"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being served",
			},
		),

		// Upstream metrics
		UpstreamRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_requests_total",
				Help:      "Total number of upstream requests",
			},
			[]string{"target", "endpoint", "status_code"},
		),
		UpstreamRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_request_duration_seconds",
				Help:      "Upstream request duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"target", "endpoint"},
		),

		// Query cache metrics
		CacheRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_requests_total",
				Help:      "Query cache lookups by result",
			},
			[]string{"resource", "result"},
		),
		CacheEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "cache_entries",
				Help:      "Entries held by the in-memory query cache",
			},
		),

		// Poller metrics
		PollsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "polls_total",
				Help:      "Poll ticks by outcome (ok, error, skipped)",
			},
			[]string{"poller", "outcome"},
		),
		PollDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "poll_duration_seconds",
				Help:      "Duration of completed polls",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"poller"},
		),

		ActiveStreams: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_streams",
				Help:      "Number of open WebSocket streams",
			},
		),

		NotificationsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_published_total",
				Help:      "Notification events published to NATS",
			},
			[]string{"status"},
		),
		NotificationStatePruned: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notification_state_pruned_total",
				Help:      "Stale notification state rows removed",
			},
		),

		WithdrawalsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "withdrawals_total",
				Help:      "Withdrawal submissions by result",
			},
			[]string{"result"},
		),

		DatabaseConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "database_connections_open",
				Help:      "Number of open database connections",
			},
		),
		NATSConnectionStatus: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "nats_connection_status",
				Help:      "NATS connection status (1=connected, 0=disconnected)",
			},
		),

		AuthFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_failures_total",
				Help:      "Requests rejected for missing or expired tokens",
			},
			[]string{"reason"},
		),

		// Error metrics
		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors",
			},
			[]string{"component", "error_type"},
		),
		PanicRecoveryTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "panic_recovery_total",
				Help:      "Total number of recovered panics",
			},
			[]string{"component"},
		),
	}
}

// HTTPMetricsMiddleware returns a Gin middleware for collecting HTTP metrics
func (m *Metrics) HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		start := time.Now()
		c.Next()
		duration := time.Since(start).Seconds()

		method := c.Request.Method
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}
		statusCode := strconv.Itoa(c.Writer.Status())

		m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, endpoint, statusCode).Observe(duration)
	}
}

// ObserveUpstream records one backend or market data round trip. A status
// code of 0 means the request never got an answer.
func (m *Metrics) ObserveUpstream(target, endpoint string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	if statusCode == 0 {
		status = "error"
	}
	m.UpstreamRequestsTotal.WithLabelValues(target, endpoint, status).Inc()
	m.UpstreamRequestDuration.WithLabelValues(target, endpoint).Observe(duration.Seconds())
}

// ObserveCache records a query cache lookup
func (m *Metrics) ObserveCache(resource string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequestsTotal.WithLabelValues(cacheResourceLabel(resource), result).Inc()
}

// cacheResourceLabel drops the parameters of market keys such as
// "klines:BTCUSDT:1h:100" to keep label cardinality bounded
func cacheResourceLabel(resource string) string {
	for i := 0; i < len(resource); i++ {
		if resource[i] == ':' {
			return resource[:i]
		}
	}
	return resource
}

// ObservePoll records one poll tick
func (m *Metrics) ObservePoll(poller, outcome string, duration time.Duration) {
	m.PollsTotal.WithLabelValues(poller, outcome).Inc()
	if duration > 0 {
		m.PollDuration.WithLabelValues(poller).Observe(duration.Seconds())
	}
}

// RecordNotificationsPublished records a publish batch
func (m *Metrics) RecordNotificationsPublished(count int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.NotificationsPublished.WithLabelValues(status).Add(float64(count))
}

// RecordWithdrawal records a withdrawal submission outcome
func (m *Metrics) RecordWithdrawal(result string) {
	m.WithdrawalsTotal.WithLabelValues(result).Inc()
}

// RecordAuthFailure records a rejected request
func (m *Metrics) RecordAuthFailure(reason string) {
	m.AuthFailuresTotal.WithLabelValues(reason).Inc()
}

// StreamOpened and StreamClosed track open WebSocket streams
func (m *Metrics) StreamOpened() {
	m.ActiveStreams.Inc()
}

func (m *Metrics) StreamClosed() {
	m.ActiveStreams.Dec()
}

// SetNATSConnectionStatus sets the NATS connection status
func (m *Metrics) SetNATSConnectionStatus(connected bool) {
	if connected {
		m.NATSConnectionStatus.Set(1)
	} else {
		m.NATSConnectionStatus.Set(0)
	}
}

// SetDatabaseConnections sets the number of open database connections
func (m *Metrics) SetDatabaseConnections(count int) {
	m.DatabaseConnections.Set(float64(count))
}

// RecordError records error metrics
func (m *Metrics) RecordError(component, errorType string) {
	m.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// RecordPanicRecovery records panic recovery metrics
func (m *Metrics) RecordPanicRecovery(component string) {
	m.PanicRecoveryTotal.WithLabelValues(component).Inc()
}
