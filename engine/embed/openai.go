package embed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/TrackSideAI/trackside-mvp/engine/domain"
	openai "github.com/sashabaranov/go-openai"
)

// openAIDefaultDimension is the text-embedding-3-small output length.
const openAIDefaultDimension = 1536

// embeddingAPI is the slice of the OpenAI client we use; narrowed for tests.
type embeddingAPI interface {
	CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// OpenAI is the remote API text encoder. It has no image tower, so
// multimodal queries and live appends are rejected when it is active.
type OpenAI struct {
	client embeddingAPI
	model  openai.EmbeddingModel
	dim    int
	log    *slog.Logger
}

// NewOpenAI creates the remote provider. A missing API key is a fatal
// configuration error: it surfaces here, at startup, not on first query.
func NewOpenAI(cfg Config, log *slog.Logger) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embed: openai provider: %w: OPENAI_API_KEY", domain.ErrMissingCredential)
	}
	model := cfg.Model
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	dim := cfg.Dimension
	if dim == 0 {
		dim = openAIDefaultDimension
	}
	return &OpenAI{
		client: openai.NewClient(cfg.APIKey),
		model:  openai.EmbeddingModel(model),
		dim:    dim,
		log:    log,
	}, nil
}

func (o *OpenAI) Name() string         { return "openai" }
func (o *OpenAI) Dimension() int       { return o.dim }
func (o *OpenAI) SupportsImages() bool { return false }

// EmbedText embeds a single text.
func (o *OpenAI) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := o.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedTexts embeds texts in chunks of batchSize.
func (o *OpenAI) EmbedTexts(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = 32
	}
	out := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := o.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (o *OpenAI) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input:      texts,
		Model:      o.model,
		Dimensions: o.dim,
	})
	if err != nil {
		return nil, fmt.Errorf("embed: openai: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embed: openai returned %d vectors for %d texts", len(resp.Data), len(texts))
	}
	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		if len(d.Embedding) != o.dim {
			return nil, fmt.Errorf("embed: unexpected vector length %d, want %d", len(d.Embedding), o.dim)
		}
		out[i] = Normalize(d.Embedding)
	}
	return out, nil
}
