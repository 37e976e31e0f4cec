package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/TrackSideAI/trackside-mvp/pkg/metrics"
)

func TestPushMetricsDeliversRegistry(t *testing.T) {
	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := metrics.New("trackside")
	m.RowsLoaded.Add(3)

	if err := pushMetrics(srv.URL, m); err != nil {
		t.Fatalf("pushMetrics: %v", err)
	}
	if method != http.MethodPut {
		t.Errorf("method = %s, want PUT", method)
	}
	if path != "/metrics/job/trackside_ingest" {
		t.Errorf("path = %s, want /metrics/job/trackside_ingest", path)
	}
}

func TestPushMetricsSurfacesGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if err := pushMetrics(srv.URL, metrics.New("trackside")); err == nil {
		t.Fatal("expected error from failing gateway")
	}
}

func TestEnvOr(t *testing.T) {
	t.Setenv("QDRANT_COLLECTION", "custom")
	if got := envOr("QDRANT_COLLECTION", "rail_incidents"); got != "custom" {
		t.Fatalf("got %q", got)
	}
	t.Setenv("QDRANT_COLLECTION", "")
	if got := envOr("QDRANT_COLLECTION", "rail_incidents"); got != "rail_incidents" {
		t.Fatalf("got %q", got)
	}
}
