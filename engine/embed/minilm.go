package embed

import (
	"context"
	"log/slog"
)

// MiniLMDimension is the all-MiniLM-L6-v2 output length.
const MiniLMDimension = 384

// MiniLM is the local single-modality text encoder, served by a
// sentence-transformers inference sidecar.
type MiniLM struct {
	sidecar *sidecarClient
}

// NewMiniLM creates the MiniLM provider. Weights load lazily on first use.
func NewMiniLM(cfg Config, log *slog.Logger) *MiniLM {
	dim := cfg.Dimension
	if dim == 0 {
		dim = MiniLMDimension
	}
	url := cfg.SidecarURL
	if url == "" {
		url = "http://localhost:8089"
	}
	return &MiniLM{sidecar: newSidecarClient(url, cfg.Device, dim, log)}
}

func (m *MiniLM) Name() string         { return "minilm" }
func (m *MiniLM) Dimension() int       { return m.sidecar.dim }
func (m *MiniLM) SupportsImages() bool { return false }

// EmbedText embeds a single text.
func (m *MiniLM) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.sidecar.embedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedTexts embeds texts in chunks of batchSize.
func (m *MiniLM) EmbedTexts(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	return embedChunked(ctx, m.sidecar, texts, batchSize)
}

// embedChunked runs batched sidecar embedding in bounded chunks. Shared by
// the local providers.
func embedChunked(ctx context.Context, c *sidecarClient, texts []string, batchSize int) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = 32
	}
	out := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := c.embedTexts(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}
