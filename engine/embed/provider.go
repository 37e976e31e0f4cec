// Package embed turns incident text and photographs into fixed-length unit
// vectors. One Provider is selected at process start and shared, by
// reference, between the ingestion pipeline and the query service so that
// ingest-time and query-time vectors live in the same space. Vectors from
// different providers are never comparable.
package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Provider is the embedding contract every variant implements. Dimension is
// fixed and known before the first embedding call; all returned vectors are
// L2-normalized so cosine similarity reduces to a dot product.
type Provider interface {
	// Name identifies the variant for diagnostics and /embedding-info.
	Name() string
	// Dimension is the fixed output vector length.
	Dimension() int
	// SupportsImages reports whether the provider can embed images.
	SupportsImages() bool
	// EmbedText embeds one text. Deterministic for a fixed model version.
	EmbedText(ctx context.Context, text string) ([]float32, error)
	// EmbedTexts embeds a batch, internally chunked by batchSize. The result
	// is element-for-element identical to calling EmbedText on each input;
	// batching is a performance optimization, not a semantic change.
	EmbedTexts(ctx context.Context, texts []string, batchSize int) ([][]float32, error)
}

// ImageEmbedder is implemented by dual-modality providers. Source is an
// http(s) URL or a local file path.
type ImageEmbedder interface {
	EmbedImage(ctx context.Context, source string) ([]float32, error)
}

// ErrImageEmbed marks a recoverable per-image failure: the image is skipped,
// never fatal to a batch or fusion call.
var ErrImageEmbed = errors.New("image embedding failed")

// Config selects and configures the active provider. Exactly one provider is
// active per deployment.
type Config struct {
	// Kind is one of "minilm", "clip", "openai".
	Kind string
	// SidecarURL is the local inference sidecar base URL (minilm, clip).
	SidecarURL string
	// Device overrides device selection for local providers ("cpu", "cuda",
	// "mps"). When set, the preferred device is never probed.
	Device string
	// Model names the remote model (openai). Defaults per variant.
	Model string
	// APIKey is the remote API credential (openai). Missing key is a fatal
	// configuration error at construction.
	APIKey string
	// Dimension overrides the variant's default vector length.
	Dimension int
}

// New constructs the configured provider. Selection happens once here;
// everything downstream is written against the Provider interface.
func New(cfg Config, log *slog.Logger) (Provider, error) {
	if log == nil {
		log = slog.Default()
	}
	switch cfg.Kind {
	case "minilm", "":
		return NewMiniLM(cfg, log), nil
	case "clip":
		return NewCLIP(cfg, log), nil
	case "openai":
		return NewOpenAI(cfg, log)
	default:
		return nil, fmt.Errorf("embed: unknown provider kind %q", cfg.Kind)
	}
}
