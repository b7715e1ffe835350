package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentUsesRoutePattern(t *testing.T) {
	router := chi.NewRouter()
	router.Use(Instrument)
	router.Get("/forms/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	before := testutil.CollectAndCount(httpDuration)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/forms/abc", nil))
	assert.GreaterOrEqual(t, testutil.CollectAndCount(httpDuration), before)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `route="/forms/{id}"`))
}

func TestDomainCounters(t *testing.T) {
	ApprovalDecisions.WithLabelValues("APPROVED").Inc()
	assert.GreaterOrEqual(t, testutil.ToFloat64(ApprovalDecisions.WithLabelValues("APPROVED")), 1.0)
}
