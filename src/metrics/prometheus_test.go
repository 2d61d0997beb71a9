package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordCycle(t *testing.T) {
	before := testutil.ToFloat64(CyclesTotal.WithLabelValues("completed"))
	RecordCycle(time.Now().Add(-time.Second))
	assert.Equal(t, before+1, testutil.ToFloat64(CyclesTotal.WithLabelValues("completed")))
	assert.Greater(t, testutil.ToFloat64(LastCycleTimestamp), 0.0)
}

func TestSetRunning(t *testing.T) {
	SetRunning(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(EngineRunning))
	SetRunning(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(EngineRunning))
}

func TestHandlerServesEngineMetrics(t *testing.T) {
	SignalsTotal.WithLabelValues("STRONG", "BULLISH").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "oi_engine_signals_total")
}
