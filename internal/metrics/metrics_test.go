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

func TestCounters(t *testing.T) {
	m := New()

	m.FetchAttempt("ok")
	m.FetchAttempt("ok")
	m.FetchAttempt("timeout")
	m.FetchResult("degraded")
	m.TaskOutcome(true, "", 120*time.Millisecond)
	m.TaskOutcome(false, "NoData", time.Second)
	m.BatchSuccessRate(0.5)
	m.TaskTransition("created", "resolving")
	m.TaskTransition("fetching", "failed")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.fetchAttempts.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetchAttempts.WithLabelValues("timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetchResults.WithLabelValues("degraded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.taskOutcomes.WithLabelValues("failed", "NoData")))
	assert.Equal(t, 0.5, testutil.ToFloat64(m.batchSuccess))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("fetching", "failed")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics

	m.FetchAttempt("ok")
	m.FetchResult("ok")
	m.TaskOutcome(true, "", time.Second)
	m.BatchSuccessRate(1)
	m.TaskTransition("created", "resolving")
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler(t *testing.T) {
	m := New()
	m.FetchResult("ok")

	server := httptest.NewServer(m.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `momentum_fetch_results_total{status="ok"} 1`)
}
