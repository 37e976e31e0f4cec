package embed

import (
	"context"

	"github.com/TrackSideAI/trackside-mvp/pkg/resilience"
)

// Guarded runs a Provider's text-embedding calls through a circuit breaker.
// Image embedding is deliberately not guarded: per-image failures are already
// recoverable and must not trip the breaker for text queries.
type Guarded struct {
	p Provider
	b *resilience.Breaker
}

// NewGuarded wraps p with breaker b.
func NewGuarded(p Provider, b *resilience.Breaker) *Guarded {
	return &Guarded{p: p, b: b}
}

func (g *Guarded) Name() string         { return g.p.Name() }
func (g *Guarded) Dimension() int       { return g.p.Dimension() }
func (g *Guarded) SupportsImages() bool { return g.p.SupportsImages() }

func (g *Guarded) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return resilience.Do(ctx, g.b, func(ctx context.Context) ([]float32, error) {
		return g.p.EmbedText(ctx, text)
	})
}

func (g *Guarded) EmbedTexts(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	return resilience.Do(ctx, g.b, func(ctx context.Context) ([][]float32, error) {
		return g.p.EmbedTexts(ctx, texts, batchSize)
	})
}

// EmbedImage passes through to the wrapped provider.
func (g *Guarded) EmbedImage(ctx context.Context, source string) ([]float32, error) {
	ie, ok := g.p.(ImageEmbedder)
	if !ok {
		return nil, ErrImageEmbed
	}
	return ie.EmbedImage(ctx, source)
}
