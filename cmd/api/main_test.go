package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/TrackSideAI/trackside-mvp/engine/query"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("QDRANT_URL", "")
	t.Setenv("QDRANT_COLLECTION", "")
	t.Setenv("EMBED_PROVIDER", "")
	t.Setenv("EMBED_POOL_SIZE", "")

	cfg := loadConfig()
	if cfg.Port != "8080" || cfg.QdrantURL != "localhost:6334" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Collection != "rail_incidents" || cfg.Provider != "minilm" || cfg.PoolSize != 4 {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestEnvOrInt(t *testing.T) {
	t.Setenv("TEST_POOL", "9")
	if got := envOrInt("TEST_POOL", 4); got != 9 {
		t.Fatalf("got %d, want 9", got)
	}
	t.Setenv("TEST_POOL", "not-a-number")
	if got := envOrInt("TEST_POOL", 4); got != 4 {
		t.Fatalf("got %d, want fallback 4", got)
	}
}

func TestFindSolutionRequiresDescription(t *testing.T) {
	h := handleFindSolution(query.New(query.Config{}))
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/find-solution", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSearchByEmbeddingRejectsBadBody(t *testing.T) {
	h := handleSearchByEmbedding(query.New(query.Config{}))
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/search-by-embedding", strings.NewReader("{not json")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSearchMultimodalRequiresText(t *testing.T) {
	h := handleSearchMultimodal(query.New(query.Config{}))
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/search-multimodal", strings.NewReader(`{"image_urls":["a.jpg"]}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAddIncidentRejectsBadBody(t *testing.T) {
	h := handleAddIncident(query.New(query.Config{}))
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/add-incident", strings.NewReader("nope")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"success":false`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}
