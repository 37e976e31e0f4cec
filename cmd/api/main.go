// Package main implements the Trackside query API server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/TrackSideAI/trackside-mvp/engine/domain"
	"github.com/TrackSideAI/trackside-mvp/engine/embed"
	"github.com/TrackSideAI/trackside-mvp/engine/query"
	"github.com/TrackSideAI/trackside-mvp/engine/semantic"
	"github.com/TrackSideAI/trackside-mvp/pkg/events"
	"github.com/TrackSideAI/trackside-mvp/pkg/metrics"
	"github.com/TrackSideAI/trackside-mvp/pkg/mid"
	"github.com/TrackSideAI/trackside-mvp/pkg/resilience"
)

// Config holds all environment-based configuration.
type Config struct {
	Port       string
	QdrantURL  string
	Collection string
	CORSOrigin string
	NATSURL    string

	Provider   string
	SidecarURL string
	Device     string
	Model      string
	APIKey     string
	PoolSize   int
}

func loadConfig() Config {
	return Config{
		Port:       envOr("PORT", "8080"),
		QdrantURL:  envOr("QDRANT_URL", "localhost:6334"),
		Collection: envOr("QDRANT_COLLECTION", "rail_incidents"),
		CORSOrigin: envOr("CORS_ORIGIN", "*"),
		NATSURL:    os.Getenv("NATS_URL"),
		Provider:   envOr("EMBED_PROVIDER", "minilm"),
		SidecarURL: os.Getenv("EMBED_SIDECAR_URL"),
		Device:     os.Getenv("EMBED_DEVICE"),
		Model:      os.Getenv("EMBED_MODEL"),
		APIKey:     os.Getenv("OPENAI_API_KEY"),
		PoolSize:   envOrInt("EMBED_POOL_SIZE", 4),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Embedding provider ---
	provider, err := embed.New(embed.Config{
		Kind:       cfg.Provider,
		SidecarURL: cfg.SidecarURL,
		Device:     cfg.Device,
		Model:      cfg.Model,
		APIKey:     cfg.APIKey,
	}, logger)
	if err != nil {
		return fmt.Errorf("embedding provider: %w", err)
	}
	// Bound concurrent inference and trip a breaker on repeated failures so
	// a dead sidecar fails fast instead of stacking timeouts.
	guarded := embed.NewGuarded(
		embed.NewPool(provider, cfg.PoolSize),
		resilience.New(resilience.DefaultOpts),
	)

	// --- Qdrant ---
	store, err := semantic.New(cfg.QdrantURL, cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer store.Close()

	// --- NATS (optional) ---
	var publisher *events.Publisher
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("trackside-api"))
		if err != nil {
			logger.Warn("nats unavailable, events disabled", "error", err)
		} else {
			defer nc.Drain()
			publisher = events.NewPublisher(nc)
		}
	}

	m := metrics.New("trackside")
	svc := query.New(query.Config{
		Provider:  guarded,
		Store:     store,
		Logger:    logger,
		Metrics:   m,
		Events:    publisher,
		StoreAddr: cfg.QdrantURL,
	})

	// --- HTTP server ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handleHealth(svc))
	mux.HandleFunc("GET /find-solution", handleFindSolution(svc))
	mux.HandleFunc("POST /search-by-embedding", handleSearchByEmbedding(svc))
	mux.HandleFunc("POST /search-multimodal", handleSearchMultimodal(svc))
	mux.HandleFunc("POST /add-incident", handleAddIncident(svc))
	mux.HandleFunc("GET /embedding-info", handleEmbeddingInfo(svc))
	mux.Handle("GET /metrics", m.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.RequestID(),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("trackside-api"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port, "provider", provider.Name(), "collection", cfg.Collection)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// --- Handlers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func handleHealth(svc *query.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := svc.HealthCheck(r.Context())
		status := http.StatusOK
		if h.Status != "healthy" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, h)
	}
}

type resultsResponse struct {
	Results []query.SolutionResult `json:"results"`
}

func handleFindSolution(svc *query.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		description := r.URL.Query().Get("description")
		if description == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "description is required"})
			return
		}
		writeJSON(w, http.StatusOK, resultsResponse{Results: svc.FindSolution(r.Context(), description)})
	}
}

// SearchByEmbeddingRequest is the JSON body for POST /search-by-embedding.
type SearchByEmbeddingRequest struct {
	Embedding []float32 `json:"embedding"`
	Limit     int       `json:"limit,omitempty"`
}

func handleSearchByEmbedding(svc *query.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SearchByEmbeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		writeJSON(w, http.StatusOK, resultsResponse{
			Results: svc.SearchByEmbedding(r.Context(), req.Embedding, req.Limit),
		})
	}
}

// SearchMultimodalRequest is the JSON body for POST /search-multimodal.
type SearchMultimodalRequest struct {
	Text       string   `json:"text"`
	ImageURLs  []string `json:"image_urls,omitempty"`
	TextWeight *float64 `json:"text_weight,omitempty"`
	Limit      int      `json:"limit,omitempty"`
}

type multimodalResponse struct {
	Results       []query.SolutionResult `json:"results"`
	EmbeddingInfo any                    `json:"embedding_info"`
}

func handleSearchMultimodal(svc *query.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SearchMultimodalRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if req.Text == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
			return
		}
		weight := embed.DefaultTextWeight
		if req.TextWeight != nil {
			weight = *req.TextWeight
		}

		results, info, err := svc.SearchMultimodal(r.Context(), req.Text, req.ImageURLs, weight, req.Limit)
		if err != nil {
			// Explicit not-supported indication, never a silent empty set.
			writeJSON(w, http.StatusOK, multimodalResponse{
				Results:       []query.SolutionResult{},
				EmbeddingInfo: map[string]string{"error": err.Error()},
			})
			return
		}
		writeJSON(w, http.StatusOK, multimodalResponse{Results: results, EmbeddingInfo: info})
	}
}

// AddIncidentResponse is the JSON response for POST /add-incident.
type AddIncidentResponse struct {
	Success       bool   `json:"success"`
	PointID       uint64 `json:"point_id,omitempty"`
	Message       string `json:"message"`
	EmbeddingInfo any    `json:"embedding_info,omitempty"`
}

func handleAddIncident(svc *query.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req query.AddIncidentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, AddIncidentResponse{Success: false, Message: "invalid request body"})
			return
		}

		id, info, err := svc.AddIncident(r.Context(), req)
		if err != nil {
			status := http.StatusInternalServerError
			var verr *domain.ValidationError
			if errors.As(err, &verr) || errors.Is(err, domain.ErrImagesUnsupported) {
				status = http.StatusBadRequest
			}
			writeJSON(w, status, AddIncidentResponse{Success: false, Message: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, AddIncidentResponse{
			Success:       true,
			PointID:       id,
			Message:       "incident recorded",
			EmbeddingInfo: info,
		})
	}
}

func handleEmbeddingInfo(svc *query.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, svc.EmbeddingInfo())
	}
}
