package embed

import (
	"context"
	"fmt"
	"log/slog"
)

// CLIPDimension is the ViT-L-14 output length, shared by its text and image
// towers.
const CLIPDimension = 768

// CLIP is the local dual-modality contrastive encoder (OpenCLIP sidecar).
// Text and image embeddings land in one space, which is what makes the
// multimodal fusion in Fuse meaningful.
type CLIP struct {
	sidecar *sidecarClient
	fetcher *imageFetcher
}

// NewCLIP creates the CLIP provider. Weights load lazily on first use;
// device selection follows SelectDevice unless cfg.Device overrides it.
func NewCLIP(cfg Config, log *slog.Logger) *CLIP {
	dim := cfg.Dimension
	if dim == 0 {
		dim = CLIPDimension
	}
	url := cfg.SidecarURL
	if url == "" {
		url = "http://localhost:8090"
	}
	return &CLIP{
		sidecar: newSidecarClient(url, cfg.Device, dim, log),
		fetcher: newImageFetcher(),
	}
}

func (c *CLIP) Name() string         { return "openclip" }
func (c *CLIP) Dimension() int       { return c.sidecar.dim }
func (c *CLIP) SupportsImages() bool { return true }

// EmbedText embeds a single text.
func (c *CLIP) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.sidecar.embedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedTexts embeds texts in chunks of batchSize.
func (c *CLIP) EmbedTexts(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	return embedChunked(ctx, c.sidecar, texts, batchSize)
}

// EmbedImage fetches (URL) or reads (path) the image and embeds it. Failures
// wrap ErrImageEmbed: the caller skips the image and carries on.
func (c *CLIP) EmbedImage(ctx context.Context, source string) ([]float32, error) {
	b64, err := c.fetcher.fetchBase64(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageEmbed, err)
	}
	vec, err := c.sidecar.embedImage(ctx, b64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageEmbed, err)
	}
	return vec, nil
}
