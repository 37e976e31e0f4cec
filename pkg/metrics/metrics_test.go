package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersRegisterAndIncrement(t *testing.T) {
	m := New("trackside")

	m.Queries.WithLabelValues("find_solution").Inc()
	m.Queries.WithLabelValues("find_solution").Inc()
	m.QuerySoftFail.WithLabelValues("embed_error").Inc()
	m.PointsAdded.Inc()

	if got := testutil.ToFloat64(m.Queries.WithLabelValues("find_solution")); got != 2 {
		t.Fatalf("queries counter: %v", got)
	}
	if got := testutil.ToFloat64(m.QuerySoftFail.WithLabelValues("embed_error")); got != 1 {
		t.Fatalf("softfail counter: %v", got)
	}
}

func TestHandlerServesExposition(t *testing.T) {
	m := New("trackside")
	m.RowsLoaded.Add(5)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "trackside_ingest_rows_loaded_total 5") {
		t.Fatalf("missing counter in exposition:\n%s", body)
	}
}
