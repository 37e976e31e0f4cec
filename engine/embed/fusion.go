package embed

import (
	"context"
	"log/slog"

	"github.com/TrackSideAI/trackside-mvp/pkg/fn"
)

// MaxFusionImages caps how many images a single fusion request will embed.
// Extra sources are ignored, not an error.
const MaxFusionImages = 3

// DefaultTextWeight is the text share of a fused vector.
const DefaultTextWeight = 0.6

// FusionInfo reports how a fused vector was produced. ImagesAttempted counts
// the sources actually handed to the image embedder (after the cap), so
// callers can tell ignored extras from real failures.
type FusionInfo struct {
	TextWeight      float64 `json:"text_weight"`
	ImageWeight     float64 `json:"image_weight"`
	ImagesProvided  int     `json:"images_provided"`
	ImagesAttempted int     `json:"-"`
	ImagesProcessed int     `json:"images_processed"`
	Method          string  `json:"fusion_method"`
	Dimension       int     `json:"dimension"`
}

// Fuse embeds text and up to MaxFusionImages images with p and blends them
// into one vector: textWeight*text + (1-textWeight)*mean(images), then
// re-normalized. The weight is applied exactly as supplied; values outside
// [0, 1] extrapolate away from the image mean instead of clamping. Image
// failures are recoverable; when none survive (or none were given) the text
// embedding is returned unchanged, so a pure-text call through Fuse is
// identical to EmbedText.
func Fuse(ctx context.Context, p Provider, text string, images []string, textWeight float64, log *slog.Logger) ([]float32, FusionInfo, error) {
	info := FusionInfo{
		TextWeight:     textWeight,
		ImageWeight:    1 - textWeight,
		ImagesProvided: len(images),
		Method:         "text_only",
		Dimension:      p.Dimension(),
	}

	textVec, err := p.EmbedText(ctx, text)
	if err != nil {
		return nil, info, err
	}

	ie, ok := p.(ImageEmbedder)
	if !ok || len(images) == 0 || textWeight == 1 {
		return textVec, info, nil
	}
	if len(images) > MaxFusionImages {
		images = images[:MaxFusionImages]
	}
	info.ImagesAttempted = len(images)

	results := fn.ParMapResult(ctx, images, MaxFusionImages, func(ctx context.Context, src string) fn.Result[[]float32] {
		return fn.FromPair(ie.EmbedImage(ctx, src))
	})
	for i, r := range results {
		if r.IsErr() {
			_, err := r.Unwrap()
			log.Warn("image embedding skipped", "source", images[i], "error", err)
		}
	}
	vecs := fn.Values(results)
	info.ImagesProcessed = len(vecs)
	if len(vecs) == 0 {
		return textVec, info, nil
	}

	// Mean the image vectors without re-normalizing; unit length is only
	// restored after the weighted blend.
	dim := len(textVec)
	avg := make([]float64, dim)
	for _, v := range vecs {
		for i, x := range v {
			avg[i] += float64(x)
		}
	}
	n := float64(len(vecs))
	fused := make([]float32, dim)
	for i := range fused {
		fused[i] = float32(textWeight*float64(textVec[i]) + (1-textWeight)*(avg[i]/n))
	}

	info.Method = "weighted_average"
	return Normalize(fused), info, nil
}
