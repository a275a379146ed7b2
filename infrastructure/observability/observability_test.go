package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_EditorMetrics(t *testing.T) {
	c := NewCollector("ontograph")

	c.ObserveMutation("add_class", true)
	c.ObserveMutation("add_class", true)
	c.ObserveMutation("connect", false)
	c.SetGraphSize(4, 3)
	c.ObserveHistory("undo")

	assert.Equal(t, float64(2), testutil.ToFloat64(c.Mutations.WithLabelValues("add_class", "accepted")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.Mutations.WithLabelValues("connect", "rejected")))
	assert.Equal(t, float64(4), testutil.ToFloat64(c.GraphNodes))
	assert.Equal(t, float64(3), testutil.ToFloat64(c.GraphEdges))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.History.WithLabelValues("undo")))
}

func TestCollector_SaveMetrics(t *testing.T) {
	c := NewCollector("ontograph")

	c.ObserveSave(10*time.Millisecond, nil, true)
	c.ObserveSave(20*time.Millisecond, errors.New("down"), false)
	c.ObserveWindow(7)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.Saves.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.Saves.WithLabelValues("error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.SaveConflicts))
}

func TestCollector_CollectorsAreIndependent(t *testing.T) {
	a := NewCollector("ontograph")
	b := NewCollector("ontograph")

	a.RecordStoreOperation("save", nil)

	assert.Equal(t, float64(1), testutil.ToFloat64(a.StoreOperations.WithLabelValues("save", "ok")))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.StoreOperations.WithLabelValues("save", "ok")))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("ontograph")
	c.RecordHTTPRequest("GET", "/health", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `ontograph_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestSpans_NoopWithoutProvider(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "store.load", "http://example.org/vehicles")
	assert.NotNil(t, ctx)
	EndSpan(span, errors.New("boom"))
}
