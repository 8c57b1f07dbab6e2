package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenNSW/flowtrack/internal/workflow/aggregate"
	"github.com/OpenNSW/flowtrack/internal/workflow/model"
)

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return InitMetrics(reg), reg
}

func TestInitMetrics_RegistersAll(t *testing.T) {
	m, reg := newTestMetrics(t)

	m.RecordHTTPRequest("GET", "/workflows", 200, time.Millisecond)
	m.ObserveTransition("pause", "ok", time.Millisecond)
	m.EventPublishFailed("pause")
	require.NoError(t, m.CountTransitionEvent(context.Background(), model.TransitionEvent{Action: "pause"}))
	m.RecordSweep(&aggregate.Stats{GeneratedAt: time.Unix(100, 0)}, nil)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, name := range []string{
		"flowtrack_http_requests_total",
		"flowtrack_http_request_duration_seconds",
		"flowtrack_transitions_total",
		"flowtrack_transition_duration_seconds",
		"flowtrack_event_publish_failures_total",
		"flowtrack_transition_events_consumed_total",
		"flowtrack_dashboard_workflows",
		"flowtrack_dashboard_sweeps_total",
		"flowtrack_dashboard_last_sweep_success_timestamp_seconds",
	} {
		assert.True(t, names[name], "metric %q not registered", name)
	}
}

func TestObserveTransition(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.ObserveTransition("advance_step", "ok", 10*time.Millisecond)
	m.ObserveTransition("advance_step", "ok", 20*time.Millisecond)
	m.ObserveTransition("advance_step", "conflict", time.Millisecond)
	m.EventPublishFailed("advance_step")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TransitionsTotal.WithLabelValues("advance_step", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransitionsTotal.WithLabelValues("advance_step", "conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventPublishFailuresTotal.WithLabelValues("advance_step")))
}

func TestRecordSweep(t *testing.T) {
	m, _ := newTestMetrics(t)
	stats := &aggregate.Stats{
		Total:        5,
		Active:       3,
		Terminal:     2,
		Overdue:      []aggregate.DeadlineItem{{}},
		NearDeadline: []aggregate.DeadlineItem{{}, {}},
		GeneratedAt:  time.Unix(1_700_000_000, 0),
	}

	m.RecordSweep(stats, nil)
	m.RecordSweep(nil, errors.New("store down"))

	assert.Equal(t, 5.0, testutil.ToFloat64(m.DashboardWorkflows.WithLabelValues("total")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DashboardWorkflows.WithLabelValues("overdue")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DashboardWorkflows.WithLabelValues("near_deadline")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DashboardSweepsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DashboardSweepsTotal.WithLabelValues("error")))
	assert.Equal(t, 1_700_000_000.0, testutil.ToFloat64(m.DashboardLastSweepSuccess))
}

func TestMiddleware_UsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m, reg := newTestMetrics(t)

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/workflows/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(Handler(reg)))

	for _, path := range []string{"/workflows/a", "/workflows/b", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/workflows/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "flowtrack_http_requests_total")
}
