package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listeverything/finder/internal/alerting"
	"github.com/listeverything/finder/internal/filter"
)

func TestMetrics_Evaluation(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	m.ObserveEvaluation(filter.BaseItems, 3, time.Millisecond)
	m.ObserveEvaluation(filter.BaseItems, 0, time.Millisecond)
	m.PredicateFailures("zone", 2)

	assert.InDelta(t, 2, testutil.ToFloat64(m.evaluations.WithLabelValues("items")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.predicateFailures.WithLabelValues("zone")), 0)
}

func TestMetrics_Alerts(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	m.ObserveAlert("home", "raiders", alerting.StateFiring, 4)
	m.AlertFired(filter.PriorityCritical)

	assert.InDelta(t, 2, testutil.ToFloat64(m.alertState.WithLabelValues("home", "raiders")), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(m.alertCount.WithLabelValues("home", "raiders")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.alertsFired.WithLabelValues("critical")), 0)

	m.ForgetAlert("home", "raiders")
	assert.Zero(t, testutil.CollectAndCount(m.alertState))
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)
	m.AlertFired(filter.PriorityMedium)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `finder_alerts_fired_total{priority="medium"} 1`)
}
