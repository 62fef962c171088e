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

func TestCollectorCounts(t *testing.T) {
	c := New()
	c.Record(http.MethodGet, "/api/v1/statements", http.StatusOK, 20*time.Millisecond)
	c.Record(http.MethodGet, "/api/v1/statements", http.StatusTooManyRequests, time.Millisecond)
	c.StatementGenerated("per_mile", 812.5)
	c.StatementGenerated("per_mile", -40)
	c.JobFinished("statement_document", "completed", 150*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("GET", "/api/v1/statements", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.rateLimited))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.statements.WithLabelValues("per_mile")))
	assert.Equal(t, 812.5, testutil.ToFloat64(c.netPay.WithLabelValues("per_mile")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.jobRuns.WithLabelValues("statement_document", "completed")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	c := New()
	c.StatementGenerated("flat_rate", 100)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `truckbooks_statements_generated_total{payment_type="flat_rate"} 1`)
}
