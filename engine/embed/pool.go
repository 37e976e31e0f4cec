package embed

import "context"

// Pool bounds concurrent inference on a Provider. Model inference blocks for
// tens to hundreds of milliseconds; without a bound a request burst would
// serialize the whole service on the backend. Excess callers queue on the
// semaphore and respect context cancellation.
type Pool struct {
	p   Provider
	sem chan struct{}
}

// NewPool wraps p with at most size concurrent inference calls.
func NewPool(p Provider, size int) *Pool {
	if size <= 0 {
		size = 4
	}
	return &Pool{p: p, sem: make(chan struct{}, size)}
}

func (p *Pool) acquire(ctx context.Context) error {
	select {
	case p.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) release() { <-p.sem }

func (p *Pool) Name() string         { return p.p.Name() }
func (p *Pool) Dimension() int       { return p.p.Dimension() }
func (p *Pool) SupportsImages() bool { return p.p.SupportsImages() }

func (p *Pool) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if err := p.acquire(ctx); err != nil {
		return nil, err
	}
	defer p.release()
	return p.p.EmbedText(ctx, text)
}

func (p *Pool) EmbedTexts(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	if err := p.acquire(ctx); err != nil {
		return nil, err
	}
	defer p.release()
	return p.p.EmbedTexts(ctx, texts, batchSize)
}

// EmbedImage delegates when the wrapped provider embeds images. Each image
// holds one pool slot, so sibling images in a fusion call still proceed.
func (p *Pool) EmbedImage(ctx context.Context, source string) ([]float32, error) {
	ie, ok := p.p.(ImageEmbedder)
	if !ok {
		return nil, ErrImageEmbed
	}
	if err := p.acquire(ctx); err != nil {
		return nil, err
	}
	defer p.release()
	return ie.EmbedImage(ctx, source)
}
