package observability_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/boddenberg/agenda-bfa-go/internal/infra/observability"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSnapshot(t *testing.T) {
	m := observability.NewMetrics()

	m.RecordCrud("serviço", "create", "success")
	m.RecordCrud("serviço", "update", "success")
	m.RecordCrud("cliente", "create", "failure")
	m.RecordCrud("cliente", "create", "invalid")
	m.RecordConfirmation("confirmed")
	m.RecordConfirmation("cancelled")
	m.RecordConfirmation("timeout")
	m.IncrIsolationDrop("serviço")
	m.IncrExternalError("supabase")
	m.SetExpiredTrials(4)
	m.SetWorkingSets(3)
	m.IncrCacheHit("working_set")
	m.IncrCacheHit("working_set")
	m.IncrCacheHit("working_set")
	m.IncrCacheMiss("working_set")

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.CrudSuccess)
	assert.Equal(t, int64(2), snap.CrudFailure)
	assert.Equal(t, int64(1), snap.ConfirmedDeletes)
	assert.Equal(t, int64(2), snap.DeclinedDeletes)
	assert.Equal(t, int64(1), snap.IsolationDrops)
	assert.Equal(t, int64(1), snap.ExternalErrorCount)
	assert.Equal(t, int64(4), snap.ExpiredTrials)
	assert.Equal(t, int64(3), snap.WorkingSets)
	assert.InDelta(t, 0.75, snap.WorkingSetHitRate, 0.0001)
}

func TestNewMetrics_Twice(t *testing.T) {
	// Private registries: no duplicate-collector panic.
	observability.NewMetrics()
	observability.NewMetrics()
}

func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	m := observability.NewMetrics()
	r := chi.NewRouter()
	r.Use(observability.MetricsMiddleware(m))
	r.Use(observability.ZapLoggerMiddleware(zap.NewNop()))
	r.Get("/v1/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/items/"+id, nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	mfs, err := m.Registry.Gather()
	require.NoError(t, err)
	var series int
	for _, mf := range mfs {
		if mf.GetName() == "bfa_request_duration_seconds" {
			series = len(mf.GetMetric())
			assert.Equal(t, uint64(2), mf.GetMetric()[0].GetHistogram().GetSampleCount())
		}
	}
	assert.Equal(t, 1, series)
}

func TestInitTracer_NoEndpoint(t *testing.T) {
	shutdown, err := observability.InitTracer(context.Background(), "agenda-bfa", "")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestNewLogger_Levels(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "bogus"} {
		assert.NotNil(t, observability.NewLogger(lvl))
	}
}
