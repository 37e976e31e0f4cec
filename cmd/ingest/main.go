// Package main implements the Trackside batch ingestion CLI: it rebuilds the
// incident knowledge collection from a CSV export.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/TrackSideAI/trackside-mvp/engine/embed"
	"github.com/TrackSideAI/trackside-mvp/engine/ingest"
	"github.com/TrackSideAI/trackside-mvp/engine/semantic"
	"github.com/TrackSideAI/trackside-mvp/pkg/events"
	"github.com/TrackSideAI/trackside-mvp/pkg/metrics"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	var (
		csvPath     = flag.String("csv", "RailIncidentData.csv", "path to the incident CSV export")
		collection  = flag.String("collection", envOr("QDRANT_COLLECTION", "rail_incidents"), "target collection name")
		limit       = flag.Int("limit", 500, "max rows to ingest (0 = all)")
		batchSize   = flag.Int("batch-size", ingest.DefaultUpsertBatch, "points per upsert request")
		embedBatch  = flag.Int("embed-batch", ingest.DefaultEmbedBatch, "narratives per embedding request")
		qdrantURL   = flag.String("qdrant", envOr("QDRANT_URL", "localhost:6334"), "qdrant gRPC address")
		providerArg = flag.String("provider", envOr("EMBED_PROVIDER", "minilm"), "embedding provider: minilm, clip, openai")
		seed        = flag.Int64("seed", 1, "seed for the usage-statistics generator")
	)
	flag.Parse()

	if err := run(*csvPath, *collection, *qdrantURL, *providerArg, *limit, *batchSize, *embedBatch, *seed, logger); err != nil {
		logger.Error("ingestion failed", "err", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run(csvPath, collection, qdrantURL, providerKind string, limit, batchSize, embedBatch int, seed int64, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := embed.New(embed.Config{
		Kind:       providerKind,
		SidecarURL: os.Getenv("EMBED_SIDECAR_URL"),
		Device:     os.Getenv("EMBED_DEVICE"),
		Model:      os.Getenv("EMBED_MODEL"),
		APIKey:     os.Getenv("OPENAI_API_KEY"),
	}, logger)
	if err != nil {
		return fmt.Errorf("embedding provider: %w", err)
	}

	store, err := semantic.New(qdrantURL, collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer store.Close()

	records, err := ingest.LoadCSV(csvPath, limit, logger)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no usable rows in %s", csvPath)
	}

	// Destructive: the collection is rebuilt from scratch at the provider's
	// dimension. Never run against a collection the live API is serving.
	if err := store.CreateOrReplace(ctx, provider.Dimension()); err != nil {
		return err
	}
	logger.Info("collection recreated",
		"collection", collection, "dimension", provider.Dimension(), "provider", provider.Name())

	m := metrics.New("trackside")
	report, err := ingest.Run(ctx, ingest.Deps{
		Provider:    provider,
		Store:       store,
		Logger:      logger,
		Metrics:     m,
		Seed:        seed,
		EmbedBatch:  embedBatch,
		UpsertBatch: batchSize,
	}, records)
	if err != nil {
		return err
	}

	// Batch jobs have no scrape window, so the run's collectors go to the
	// push gateway when one is configured.
	if url := os.Getenv("PUSHGATEWAY_URL"); url != "" {
		if err := pushMetrics(url, m); err != nil {
			logger.Warn("metrics push failed", "gateway", url, "error", err)
		} else {
			logger.Info("metrics pushed", "gateway", url)
		}
	}

	publishCompletion(ctx, collection, report, logger)

	logger.Info("done", "points", report.Points, "skipped", report.Skipped, "batches", report.Batches)
	return nil
}

func pushMetrics(url string, m *metrics.Metrics) error {
	return push.New(url, "trackside_ingest").Gatherer(m.Registry()).Push()
}

// publishCompletion emits the ingest-completed event when a broker is
// configured; without NATS_URL it is a no-op.
func publishCompletion(ctx context.Context, collection string, report ingest.Report, logger *slog.Logger) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		return
	}
	nc, err := nats.Connect(url, nats.Name("trackside-ingest"))
	if err != nil {
		logger.Warn("nats unavailable, completion event skipped", "error", err)
		return
	}
	defer nc.Drain()

	err = events.Publish(ctx, events.NewPublisher(nc), events.SubjectIngestComplete, events.IngestCompleted{
		Collection: collection,
		Points:     report.Points,
		Skipped:    report.Skipped,
		Dimension:  report.Dimension,
		FinishedAt: time.Now().UTC(),
	})
	if err != nil {
		logger.Warn("completion event publish failed", "error", err)
	}
}
