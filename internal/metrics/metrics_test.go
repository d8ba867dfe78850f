package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_RecordsPipelineEvents(t *testing.T) {
	c := NewCollector("adcanvas")

	c.Transition("brand_style_confirmed", "applied")
	c.Transition("brand_style_confirmed", "applied")
	c.Transition("brand_style_confirmed", "stale")
	c.FanOut(3, 2*time.Second)
	c.Sessions(4)
	c.BreakerState("image", 2)

	assert.InDelta(t, 2.0, testutil.ToFloat64(c.Transitions.WithLabelValues("brand_style_confirmed", "applied")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(c.Transitions.WithLabelValues("brand_style_confirmed", "stale")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(c.FanOuts), 0)
	assert.InDelta(t, 4.0, testutil.ToFloat64(c.ActiveSess), 0)
	assert.InDelta(t, 2.0, testutil.ToFloat64(c.Breaker.WithLabelValues("image")), 0)
}

func TestCollector_IndependentRegistries(t *testing.T) {
	a := NewCollector("adcanvas")
	b := NewCollector("adcanvas")

	a.HTTP(http.MethodGet, "/health", 200, time.Millisecond)
	assert.InDelta(t, 1.0, testutil.ToFloat64(a.HTTPRequests.WithLabelValues("GET", "/health", "200")), 0)
	assert.InDelta(t, 0.0, testutil.ToFloat64(b.HTTPRequests.WithLabelValues("GET", "/health", "200")), 0)
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("adcanvas")
	c.Transition("workflow_completed", "applied")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `adcanvas_pipeline_transitions_total{outcome="applied",transition="workflow_completed"} 1`)
}
