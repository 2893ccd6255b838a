package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "complaints"

// Metrics wraps the Prometheus collectors shared by the backend and the bot.
// All record methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	requestCount      *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	errorCount        *prometheus.CounterVec
	observers         *prometheus.GaugeVec
	broadcasts        *prometheus.CounterVec
	submissionAttempt *prometheus.CounterVec
	mockFallbacks     prometheus.Counter
	intakeTurns       *prometheus.CounterVec
	notifications     *prometheus.CounterVec
}

// NewMetrics builds a metrics set on its own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: reg,
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status_code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		errorCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "Total number of error responses by domain code",
		}, []string{"method", "path", "code"}),
		observers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realtime_observers",
			Help:      "Connected websocket observers by role",
		}, []string{"role"}),
		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_deliveries_total",
			Help:      "Broadcast deliveries by event type and result",
		}, []string{"event_type", "result"}),
		submissionAttempt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submission_attempts_total",
			Help:      "Complaint submission attempts by outcome",
		}, []string{"outcome"}),
		mockFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submission_mock_fallbacks_total",
			Help:      "Submissions answered with a placeholder id",
		}),
		intakeTurns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intake_turns_total",
			Help:      "Conversation turns handled by state",
		}, []string{"state"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "External notifications by channel and result",
		}, []string{"channel", "result"}),
	}

	reg.MustRegister(
		m.requestCount,
		m.requestDuration,
		m.errorCount,
		m.observers,
		m.broadcasts,
		m.submissionAttempt,
		m.mockFallbacks,
		m.intakeTurns,
		m.notifications,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestCount.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorCount.WithLabelValues(method, path, code).Inc()
}

// SetObservers sets the connected observer gauge for role.
func (m *Metrics) SetObservers(role string, count int) {
	if m == nil {
		return
	}
	m.observers.WithLabelValues(role).Set(float64(count))
}

// RecordDelivery counts one broadcast write.
func (m *Metrics) RecordDelivery(eventType string, ok bool) {
	if m == nil {
		return
	}
	m.broadcasts.WithLabelValues(eventType, result(ok)).Inc()
}

// RecordSubmissionAttempt counts one submission HTTP attempt.
func (m *Metrics) RecordSubmissionAttempt(outcome string) {
	if m == nil {
		return
	}
	m.submissionAttempt.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordMockFallback() {
	if m == nil {
		return
	}
	m.mockFallbacks.Inc()
}

// RecordIntakeTurn counts a conversation turn handled in state.
func (m *Metrics) RecordIntakeTurn(state string) {
	if m == nil {
		return
	}
	m.intakeTurns.WithLabelValues(state).Inc()
}

// RecordNotification counts an external notification attempt.
func (m *Metrics) RecordNotification(channel string, ok bool) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(channel, result(ok)).Inc()
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}
