package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/peakform/coachdesk-api/internal/dto"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface and the reminder/acknowledgment pipeline.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	reminderTotal   *prometheus.CounterVec
	sweepDuration   prometheus.Observer
	ackTotal        *prometheus.CounterVec
	swapTotal       *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	reminderTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reminder_dispatch_total",
		Help: "Reminder dispatch outcomes by result and skip reason",
	}, []string{"result", "reason"})

	sweepDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "reminder_sweep_duration_seconds",
		Help:    "Duration of reminder sweep runs",
		Buckets: prometheus.DefBuckets,
	})

	ackTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "message_acknowledgments_total",
		Help: "Acknowledged messages by payload kind",
	}, []string{"payload"})

	swapTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "swap_decisions_total",
		Help: "Applied swap decisions by final status",
	}, []string{"status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, reminderTotal, sweepDuration, ackTotal, swapTotal, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		reminderTotal:   reminderTotal,
		sweepDuration:   sweepDuration,
		ackTotal:        ackTotal,
		swapTotal:       swapTotal,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records per-request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveSweep records the aggregate outcome of one reminder sweep.
func (m *MetricsService) ObserveSweep(report *dto.DispatchReport) {
	if m == nil || report == nil {
		return
	}
	m.sweepDuration.Observe(report.Duration.Seconds())
	if report.Sent > 0 {
		m.reminderTotal.WithLabelValues(dto.DispatchResultSent, "").Add(float64(report.Sent))
	}
	if report.Failed > 0 {
		m.reminderTotal.WithLabelValues(dto.DispatchResultFailed, "").Add(float64(report.Failed))
	}
	for reason, count := range report.Skipped {
		m.reminderTotal.WithLabelValues(dto.DispatchResultSkipped, reason).Add(float64(count))
	}
}

// ObserveAcknowledgment counts an acknowledged message by payload kind.
func (m *MetricsService) ObserveAcknowledgment(payloadKind string) {
	if m == nil {
		return
	}
	m.ackTotal.WithLabelValues(payloadKind).Inc()
}

// ObserveSwapDecision counts an applied swap decision.
func (m *MetricsService) ObserveSwapDecision(status string) {
	if m == nil {
		return
	}
	m.swapTotal.WithLabelValues(status).Inc()
}
