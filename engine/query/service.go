// Package query is the live retrieval service: embed an incident
// description, search the knowledge collection, and format resolution
// suggestions. Search paths soft-fail to empty results so transient backend
// trouble degrades to "no suggestions" instead of a request error; the
// append path reports real errors because it mutates the collection.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/TrackSideAI/trackside-mvp/engine/domain"
	"github.com/TrackSideAI/trackside-mvp/engine/embed"
	"github.com/TrackSideAI/trackside-mvp/engine/semantic"
	"github.com/TrackSideAI/trackside-mvp/pkg/events"
	"github.com/TrackSideAI/trackside-mvp/pkg/metrics"
)

// DefaultLimit is the number of suggestions returned when the caller does
// not ask for a specific count.
const DefaultLimit = 3

// SolutionResult is one formatted suggestion.
type SolutionResult struct {
	ID          uint64   `json:"id"`
	Score       float64  `json:"score"`
	Action      string   `json:"action"`
	Detail      string   `json:"detail"`
	AvgDelay    int      `json:"avg_delay"`
	TimesUsed   int      `json:"times_used"`
	OriginalLog string   `json:"original_log"`
	Weather     string   `json:"weather"`
	ImageURLs   []string `json:"image_urls,omitempty"`
}

// AddIncidentRequest is a human-confirmed resolution to append. The action
// and detail arrive from the caller; the heuristic is not re-run.
type AddIncidentRequest struct {
	Description      string   `json:"description"`
	ResolutionAction string   `json:"resolution_action"`
	ResolutionDetail string   `json:"resolution_detail"`
	ImageURLs        []string `json:"image_urls,omitempty"`
	Weather          string   `json:"weather,omitempty"`
	DelayMins        int      `json:"delay_mins,omitempty"`
	Location         string   `json:"location,omitempty"`
	ReportID         string   `json:"report_id,omitempty"`
}

// Info describes the active provider for /embedding-info.
type Info struct {
	Provider           string `json:"provider"`
	SupportsMultimodal bool   `json:"supports_multimodal"`
	Dimension          int    `json:"dimension"`
	Status             string `json:"status"`
}

// Health is the /health body.
type Health struct {
	Status      string   `json:"status"`
	Collections []string `json:"collections,omitempty"`
	DBPath      string   `json:"db_path,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// Config wires a Service.
type Config struct {
	Provider embed.Provider
	Store    *semantic.Store
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Events   *events.Publisher
	// StoreAddr is reported as db_path in health responses.
	StoreAddr string
}

// Service answers retrieval queries and appends confirmed resolutions. One
// instance is shared across requests; everything is safe for concurrent use.
type Service struct {
	provider embed.Provider
	store    *semantic.Store
	log      *slog.Logger
	metrics  *metrics.Metrics
	events   *events.Publisher
	addr     string

	// appendMu serializes appends: the next point id is the current point
	// count, so two concurrent appends must not both read the same count.
	appendMu sync.Mutex
}

// New creates a Service.
func New(cfg Config) *Service {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		provider: cfg.Provider,
		store:    cfg.Store,
		log:      log,
		metrics:  cfg.Metrics,
		events:   cfg.Events,
		addr:     cfg.StoreAddr,
	}
}

// FindSolution embeds the description and returns the closest resolved
// incidents. Internal failures return an empty slice.
func (s *Service) FindSolution(ctx context.Context, description string) []SolutionResult {
	defer s.observe("find_solution", time.Now())

	vector, err := s.provider.EmbedText(ctx, description)
	if err != nil {
		return s.softFail("find_solution", "embed", err)
	}
	return s.search(ctx, "find_solution", vector, DefaultLimit)
}

// SearchByEmbedding searches with a caller-supplied vector. A vector whose
// length differs from the collection dimension yields empty results, not an
// error.
func (s *Service) SearchByEmbedding(ctx context.Context, vector []float32, limit int) []SolutionResult {
	defer s.observe("search_by_embedding", time.Now())

	info, err := s.store.Describe(ctx)
	if err != nil {
		return s.softFail("search_by_embedding", "describe", err)
	}
	if len(vector) != info.Dimension {
		return s.softFail("search_by_embedding", "dimension_mismatch",
			fmt.Errorf("%w: got %d, collection is %d", domain.ErrDimensionMismatch, len(vector), info.Dimension))
	}
	return s.search(ctx, "search_by_embedding", vector, limit)
}

// SearchMultimodal fuses the text with up to three images and searches. It
// errors only when the active provider cannot embed images; internal
// failures soft-fail like the text path.
func (s *Service) SearchMultimodal(ctx context.Context, text string, imageURLs []string, textWeight float64, limit int) ([]SolutionResult, embed.FusionInfo, error) {
	defer s.observe("search_multimodal", time.Now())

	if !s.provider.SupportsImages() {
		return nil, embed.FusionInfo{}, fmt.Errorf("query: %w", domain.ErrImagesUnsupported)
	}
	if s.metrics != nil {
		s.metrics.FusionRequests.Inc()
	}

	vector, info, err := embed.Fuse(ctx, s.provider, text, imageURLs, textWeight, s.log)
	if s.metrics != nil {
		s.metrics.ImagesFetched.Add(float64(info.ImagesProcessed))
		// Attempted, not provided: sources beyond the fusion cap are
		// ignored, not failed.
		s.metrics.ImageFailures.Add(float64(info.ImagesAttempted - info.ImagesProcessed))
	}
	if err != nil {
		return s.softFail("search_multimodal", "fuse", err), info, nil
	}
	return s.search(ctx, "search_multimodal", vector, limit), info, nil
}

// AddIncident appends a confirmed resolution and returns its point id.
// Append requires a multimodal provider, matching the multimodal query
// restriction even when no images are attached.
func (s *Service) AddIncident(ctx context.Context, req AddIncidentRequest) (uint64, embed.FusionInfo, error) {
	if err := domain.ValidateRecord(domain.IncidentRecord{Narrative: req.Description}); err != nil {
		return 0, embed.FusionInfo{}, err
	}
	if err := domain.ValidateResolutionAction(req.ResolutionAction); err != nil {
		return 0, embed.FusionInfo{}, err
	}
	if !s.provider.SupportsImages() {
		return 0, embed.FusionInfo{}, fmt.Errorf("query: add incident: %w", domain.ErrImagesUnsupported)
	}

	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	collection, err := s.store.Describe(ctx)
	if err != nil {
		return 0, embed.FusionInfo{}, fmt.Errorf("query: add incident: %w", err)
	}

	vector, info, err := embed.Fuse(ctx, s.provider, req.Description, req.ImageURLs, embed.DefaultTextWeight, s.log)
	if err != nil {
		return 0, info, fmt.Errorf("query: add incident: %w", err)
	}

	point := domain.KnowledgePoint{
		ID:     collection.Points,
		Vector: vector,
		Payload: domain.Payload{
			OriginalLog:      domain.TruncateLog(req.Description),
			Weather:          req.Weather,
			ResolutionAction: req.ResolutionAction,
			ResolutionDetail: req.ResolutionDetail,
			Statistics:       domain.Statistics{AvgDelayMins: req.DelayMins, TimesUsed: 1},
			ImageURLs:        req.ImageURLs,
			Source:           domain.SourceLiveReport,
			Location:         req.Location,
			ReportID:         req.ReportID,
		},
	}
	if err := domain.ValidatePoint(point, collection.Dimension); err != nil {
		return 0, info, err
	}
	if err := s.store.Upsert(ctx, []domain.KnowledgePoint{point}); err != nil {
		return 0, info, fmt.Errorf("query: add incident: %w", err)
	}

	if s.metrics != nil {
		s.metrics.PointsAdded.Inc()
	}
	if err := events.Publish(ctx, s.events, events.SubjectIncidentAdded, events.IncidentAdded{
		PointID:    point.ID,
		Collection: collection.Name,
		Action:     req.ResolutionAction,
		ImageCount: len(req.ImageURLs),
		AddedAt:    time.Now().UTC(),
	}); err != nil {
		s.log.Warn("incident event publish failed", "error", err)
	}

	s.log.Info("incident added", "point_id", point.ID, "action", req.ResolutionAction, "images", len(req.ImageURLs))
	return point.ID, info, nil
}

// EmbeddingInfo reports the active provider for /embedding-info.
func (s *Service) EmbeddingInfo() Info {
	return Info{
		Provider:           s.provider.Name(),
		SupportsMultimodal: s.provider.SupportsImages(),
		Dimension:          s.provider.Dimension(),
		Status:             "ready",
	}
}

// HealthCheck verifies the store is reachable.
func (s *Service) HealthCheck(ctx context.Context) Health {
	names, err := s.store.ListCollections(ctx)
	if err != nil {
		return Health{Status: "unhealthy", Error: err.Error()}
	}
	return Health{Status: "healthy", Collections: names, DBPath: s.addr}
}

func (s *Service) search(ctx context.Context, endpoint string, vector []float32, limit int) []SolutionResult {
	if limit <= 0 {
		limit = DefaultLimit
	}
	hits, err := s.store.Query(ctx, vector, limit)
	if err != nil {
		return s.softFail(endpoint, "search", err)
	}

	results := make([]SolutionResult, len(hits))
	for i, h := range hits {
		results[i] = SolutionResult{
			ID:          h.ID,
			Score:       roundScore(h.Score),
			Action:      h.Payload.ResolutionAction,
			Detail:      h.Payload.ResolutionDetail,
			AvgDelay:    h.Payload.Statistics.AvgDelayMins,
			TimesUsed:   h.Payload.Statistics.TimesUsed,
			OriginalLog: h.Payload.OriginalLog,
			Weather:     h.Payload.Weather,
			ImageURLs:   h.Payload.ImageURLs,
		}
	}
	return results
}

// softFail logs the failure and returns the empty result set the caller will
// serve. The metric keeps the failure diagnosable despite the 200 response.
func (s *Service) softFail(endpoint, reason string, err error) []SolutionResult {
	s.log.Error("query soft-failed", "endpoint", endpoint, "reason", reason, "error", err)
	if s.metrics != nil {
		s.metrics.QuerySoftFail.WithLabelValues(reason).Inc()
	}
	return []SolutionResult{}
}

func (s *Service) observe(endpoint string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.Queries.WithLabelValues(endpoint).Inc()
	s.metrics.QueryDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func roundScore(score float32) float64 {
	return math.Round(float64(score)*1000) / 1000
}
