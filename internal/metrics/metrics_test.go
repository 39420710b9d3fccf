package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_ObserveImport(t *testing.T) {
	r := New()
	r.ObserveImport(OutcomeSuccess, 12, 50*time.Millisecond)
	r.ObserveImport(OutcomeSuccess, 3, time.Millisecond)
	r.ObserveImport(OutcomeError, 0, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.imports.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.imports.WithLabelValues(OutcomeError)))
}

func TestRecorder_SetStoredMembers(t *testing.T) {
	r := New()
	r.SetStoredMembers(7)
	assert.Equal(t, 7.0, testutil.ToFloat64(r.stored))

	r.SetStoredMembers(2)
	assert.Equal(t, 2.0, testutil.ToFloat64(r.stored))
}

func TestRecorder_NilIsSafe(t *testing.T) {
	var r *Recorder
	r.ObserveImport(OutcomeSuccess, 1, time.Second)
	r.SetStoredMembers(3)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.ObserveImport(OutcomeDryRun, 4, time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `sdsvg_imports_total{outcome="dry_run"} 1`)
	assert.Contains(t, rec.Body.String(), "sdsvg_import_members_count 1")
}
