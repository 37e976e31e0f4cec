package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/TrackSideAI/trackside-mvp/engine/domain"
	"github.com/TrackSideAI/trackside-mvp/engine/embed"
	"github.com/TrackSideAI/trackside-mvp/engine/resolution"
	"github.com/TrackSideAI/trackside-mvp/engine/semantic"
	"github.com/TrackSideAI/trackside-mvp/pkg/fn"
	"github.com/TrackSideAI/trackside-mvp/pkg/metrics"
)

const (
	// DefaultUpsertBatch is the number of points per upsert request.
	DefaultUpsertBatch = 100
	// DefaultEmbedBatch is the number of narratives per embedding request.
	DefaultEmbedBatch = 32
)

// Deps holds the external collaborators of an ingestion run.
type Deps struct {
	Provider embed.Provider
	Store    *semantic.Store
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	// Seed fixes the usage-statistics generator so reruns of the same data
	// produce the same collection.
	Seed        int64
	EmbedBatch  int
	UpsertBatch int
}

// Report summarizes a completed (or aborted) run.
type Report struct {
	Loaded    int `json:"loaded"`
	Skipped   int `json:"skipped"`
	Points    int `json:"points"`
	Batches   int `json:"batches"`
	Dimension int `json:"dimension"`
}

// EmbedText is the canonical text form fed to the provider: narrative plus
// the weather code. Query-time inputs use the narrative alone, which stays
// in-distribution because the separator is plain text.
func EmbedText(rec domain.IncidentRecord) string {
	return fmt.Sprintf("%s | Weather: %s", rec.Narrative, rec.Weather)
}

// Run embeds every record, assembles knowledge points, and writes them in
// batches. Per-row failures (embedding errors, bad vectors) skip the row;
// a failed upsert batch aborts the run with the partial report.
func Run(ctx context.Context, deps Deps, records []domain.IncidentRecord) (Report, error) {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	start := time.Now()
	defer func() {
		if deps.Metrics != nil {
			deps.Metrics.IngestDuration.Observe(time.Since(start).Seconds())
		}
	}()

	report := Report{Loaded: len(records), Dimension: deps.Provider.Dimension()}
	if deps.Metrics != nil {
		deps.Metrics.RowsLoaded.Add(float64(len(records)))
	}

	points := buildPoints(ctx, deps, log, records, &report)
	report.Points = len(points)
	if deps.Metrics != nil {
		deps.Metrics.RowsSkipped.Add(float64(report.Skipped))
		deps.Metrics.PointsBuilt.Add(float64(len(points)))
	}
	if len(points) == 0 {
		return report, fmt.Errorf("ingest: no points built from %d records", len(records))
	}

	writeBatch := fn.Traced("ingest.write_batch", func(ctx context.Context, batch []domain.KnowledgePoint) fn.Result[int] {
		if err := deps.Store.Upsert(ctx, batch); err != nil {
			return fn.Err[int](err)
		}
		return fn.Ok(len(batch))
	})

	batch := deps.UpsertBatch
	if batch <= 0 {
		batch = DefaultUpsertBatch
	}
	for i := 0; i < len(points); i += batch {
		end := i + batch
		if end > len(points) {
			end = len(points)
		}
		if _, err := writeBatch(ctx, points[i:end]).Unwrap(); err != nil {
			return report, fmt.Errorf("ingest: batch %d-%d: %w", i+1, end, err)
		}
		report.Batches++
		if deps.Metrics != nil {
			deps.Metrics.BatchesWritten.Inc()
		}
		log.Info("batch written", "from", i+1, "to", end)
	}

	log.Info("ingestion complete",
		"points", report.Points, "skipped", report.Skipped, "batches", report.Batches)
	return report, nil
}

// embeddedChunk pairs a chunk of records with their vectors. A nil vector
// marks a row whose embedding failed even after the per-row retry.
type embeddedChunk struct {
	records []domain.IncidentRecord
	vectors [][]float32
}

// buildPoints embeds records chunk-wise and assembles one knowledge point per
// surviving row. Ids are assigned sequentially from zero.
func buildPoints(ctx context.Context, deps Deps, log *slog.Logger, records []domain.IncidentRecord, report *Report) []domain.KnowledgePoint {
	embedBatch := deps.EmbedBatch
	if embedBatch <= 0 {
		embedBatch = DefaultEmbedBatch
	}
	rng := rand.New(rand.NewSource(deps.Seed))
	dim := deps.Provider.Dimension()

	embedStage := fn.Traced("ingest.embed_chunk", func(ctx context.Context, chunk []domain.IncidentRecord) fn.Result[embeddedChunk] {
		texts := make([]string, len(chunk))
		for j, rec := range chunk {
			texts[j] = EmbedText(rec)
		}
		embedStart := time.Now()
		vectors, err := deps.Provider.EmbedTexts(ctx, texts, embedBatch)
		if deps.Metrics != nil {
			deps.Metrics.EmbedDuration.Observe(time.Since(embedStart).Seconds())
		}
		if err != nil {
			// One poison row must not take its whole chunk with it: retry
			// each row on its own and skip only the rows that still fail.
			log.Warn("embedding chunk failed, retrying rows individually",
				"rows", len(chunk), "error", err)
			vectors = make([][]float32, len(texts))
			for j, text := range texts {
				v, rowErr := deps.Provider.EmbedText(ctx, text)
				if rowErr != nil {
					continue
				}
				vectors[j] = v
			}
		}
		return fn.Ok(embeddedChunk{records: chunk, vectors: vectors})
	})

	assembleStage := fn.Traced("ingest.assemble_points", func(_ context.Context, ec embeddedChunk) fn.Result[[]fn.Result[domain.KnowledgePoint]] {
		results := make([]fn.Result[domain.KnowledgePoint], len(ec.records))
		for j, rec := range ec.records {
			if ec.vectors[j] == nil {
				results[j] = fn.Errf[domain.KnowledgePoint]("ingest: row embedding failed")
				continue
			}
			results[j] = buildPoint(rec, ec.vectors[j], dim, rng)
		}
		return fn.Ok(results)
	})

	buildChunk := fn.Then(embedStage, assembleStage)

	var points []domain.KnowledgePoint
	for i := 0; i < len(records); i += embedBatch {
		end := i + embedBatch
		if end > len(records) {
			end = len(records)
		}
		results, _ := buildChunk(ctx, records[i:end]).Unwrap()
		for j, r := range results {
			point, err := r.Unwrap()
			if err != nil {
				log.Warn("point skipped", "row", i+j+1, "error", err)
				report.Skipped++
				continue
			}
			point.ID = uint64(len(points))
			points = append(points, point)
		}
	}
	return points
}

// buildPoint assembles one knowledge point: heuristic strategy, truncated
// narrative, and seeded usage statistics. The sequential id is assigned by
// the caller once the point survives validation.
func buildPoint(rec domain.IncidentRecord, vector []float32, dim int, rng *rand.Rand) fn.Result[domain.KnowledgePoint] {
	strat := resolution.SelectStrategy(rec.Narrative, rec.Damage)
	point := domain.KnowledgePoint{
		Vector: vector,
		Payload: domain.Payload{
			OriginalLog:      domain.TruncateLog(rec.Narrative),
			Weather:          rec.Weather,
			ResolutionAction: strat.Action,
			ResolutionDetail: strat.Detail,
			DamageAmount:     rec.Damage,
			Statistics: domain.Statistics{
				AvgDelayMins: strat.BaseDelay,
				TimesUsed:    1 + rng.Intn(50),
			},
		},
	}
	if err := domain.ValidatePoint(point, dim); err != nil {
		return fn.Err[domain.KnowledgePoint](err)
	}
	return fn.Ok(point)
}
