package observability_test

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getantonio/tokenhub/internal/observability"
)

func TestRecordOperation(t *testing.T) {
	m := observability.NewMetrics("")

	m.RecordOperation("contribute", 0.01, nil)
	m.RecordOperation("contribute", 0.02, errors.New("rejected"))
	m.RecordOperation("contribute", 0.01, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("contribute", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("contribute", "rejected")))
}

func TestSeparateRegistries(t *testing.T) {
	a := observability.NewMetrics("")
	b := observability.NewMetrics("")

	a.RecordClaim("refund")
	assert.Equal(t, 1.0, testutil.ToFloat64(a.ClaimsTotal.WithLabelValues("refund")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ClaimsTotal.WithLabelValues("refund")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *observability.Metrics
	assert.NotPanics(t, func() {
		m.RecordOperation("x", 1, nil)
		m.RecordClaim("tokens")
		m.RecordPayoutFailure("refund")
		m.RecordFinalization("finalized")
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := observability.NewMetrics("")
	m.IssuancesCreated.Inc()
	m.RecordFinalization("refunding")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "tokenhub_issuances_created_total 1")
	assert.Contains(t, string(body), `tokenhub_presale_finalizations_total{outcome="refunding"} 1`)
}
