// Package observability holds the prometheus instruments of the service and the gin middleware feeding them.
package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OpenNSW/flowtrack/internal/workflow/aggregate"
	"github.com/OpenNSW/flowtrack/internal/workflow/model"
)

var (
	httpDurationBuckets       = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	transitionDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
)

// Metrics holds all Prometheus metric instruments of the service.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Engine metrics
	TransitionsTotal          *prometheus.CounterVec
	TransitionDuration        *prometheus.HistogramVec
	EventPublishFailuresTotal *prometheus.CounterVec
	TransitionEventsTotal     *prometheus.CounterVec

	// Dashboard metrics
	DashboardWorkflows        *prometheus.GaugeVec
	DashboardSweepsTotal      *prometheus.CounterVec
	DashboardLastSweepSuccess prometheus.Gauge
}

// InitMetrics creates and registers all Prometheus metric instruments.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowtrack_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flowtrack_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "route"}),

		TransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowtrack_transitions_total",
			Help: "Total number of workflow transitions by action and outcome.",
		}, []string{"action", "outcome"}),
		TransitionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flowtrack_transition_duration_seconds",
			Help:    "Workflow transition duration in seconds, including persistence.",
			Buckets: transitionDurationBuckets,
		}, []string{"action"}),
		EventPublishFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowtrack_event_publish_failures_total",
			Help: "Total number of transition events that could not be published.",
		}, []string{"action"}),
		TransitionEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowtrack_transition_events_consumed_total",
			Help: "Total number of transition events consumed from the event bus.",
		}, []string{"action"}),

		DashboardWorkflows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "flowtrack_dashboard_workflows",
			Help: "Workflow counts computed by the last dashboard sweep.",
		}, []string{"bucket"}),
		DashboardSweepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowtrack_dashboard_sweeps_total",
			Help: "Total number of dashboard sweeps by outcome.",
		}, []string{"outcome"}),
		DashboardLastSweepSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flowtrack_dashboard_last_sweep_success_timestamp_seconds",
			Help: "Unix time of the last successful dashboard sweep.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.TransitionsTotal,
		m.TransitionDuration,
		m.EventPublishFailuresTotal,
		m.TransitionEventsTotal,
		m.DashboardWorkflows,
		m.DashboardSweepsTotal,
		m.DashboardLastSweepSuccess,
	)

	return m
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveTransition records one engine transition. Outcome is "ok" or the error kind.
func (m *Metrics) ObserveTransition(action, outcome string, duration time.Duration) {
	m.TransitionsTotal.WithLabelValues(action, outcome).Inc()
	m.TransitionDuration.WithLabelValues(action).Observe(duration.Seconds())
}

// EventPublishFailed counts a transition whose event could not be published.
func (m *Metrics) EventPublishFailed(action string) {
	m.EventPublishFailuresTotal.WithLabelValues(action).Inc()
}

// CountTransitionEvent is an event handler counting consumed transition events.
func (m *Metrics) CountTransitionEvent(_ context.Context, event model.TransitionEvent) error {
	m.TransitionEventsTotal.WithLabelValues(event.Action).Inc()
	return nil
}

// RecordSweep stores the counts of a dashboard sweep. A failed sweep leaves the gauges untouched.
func (m *Metrics) RecordSweep(stats *aggregate.Stats, err error) {
	if err != nil {
		m.DashboardSweepsTotal.WithLabelValues("error").Inc()
		return
	}
	m.DashboardSweepsTotal.WithLabelValues("ok").Inc()
	m.DashboardWorkflows.WithLabelValues("total").Set(float64(stats.Total))
	m.DashboardWorkflows.WithLabelValues("active").Set(float64(stats.Active))
	m.DashboardWorkflows.WithLabelValues("terminal").Set(float64(stats.Terminal))
	m.DashboardWorkflows.WithLabelValues("overdue").Set(float64(len(stats.Overdue)))
	m.DashboardWorkflows.WithLabelValues("near_deadline").Set(float64(len(stats.NearDeadline)))
	m.DashboardLastSweepSuccess.Set(float64(stats.GeneratedAt.Unix()))
}

// Middleware returns gin middleware that records request metrics using the
// matched route template (not the actual URL path) to keep label cardinality bounded.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
