package embed

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/TrackSideAI/trackside-mvp/engine/domain"
	openai "github.com/sashabaranov/go-openai"
)

type mockEmbeddingAPI struct {
	calls []int // batch sizes seen
	fail  error
}

func (m *mockEmbeddingAPI) CreateEmbeddings(_ context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	if m.fail != nil {
		return openai.EmbeddingResponse{}, m.fail
	}
	r := req.Convert()
	texts := r.Input.([]string)
	m.calls = append(m.calls, len(texts))
	data := make([]openai.Embedding, len(texts))
	for i := range texts {
		v := make([]float32, r.Dimensions)
		v[0] = 2 // unnormalized on purpose
		data[i] = openai.Embedding{Embedding: v}
	}
	return openai.EmbeddingResponse{Data: data}, nil
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	_, err := NewOpenAI(Config{Kind: "openai"}, slog.Default())
	if !errors.Is(err, domain.ErrMissingCredential) {
		t.Fatalf("got %v, want ErrMissingCredential", err)
	}
}

func TestOpenAIBatchingAndNormalization(t *testing.T) {
	mock := &mockEmbeddingAPI{}
	o := &OpenAI{client: mock, model: openai.SmallEmbedding3, dim: 8, log: slog.Default()}

	vecs, err := o.EmbedTexts(context.Background(), []string{"a", "b", "c", "d", "e"}, 2)
	if err != nil {
		t.Fatalf("EmbedTexts: %v", err)
	}
	if len(vecs) != 5 {
		t.Fatalf("got %d vectors, want 5", len(vecs))
	}
	if len(mock.calls) != 3 || mock.calls[0] != 2 || mock.calls[2] != 1 {
		t.Fatalf("batch sizes %v, want [2 2 1]", mock.calls)
	}
	for i, v := range vecs {
		if v[0] != 1 {
			t.Fatalf("vector %d not normalized: %v", i, v[0])
		}
	}
}

func TestOpenAIPropagatesAPIError(t *testing.T) {
	mock := &mockEmbeddingAPI{fail: errors.New("rate limited")}
	o := &OpenAI{client: mock, model: openai.SmallEmbedding3, dim: 8, log: slog.Default()}
	if _, err := o.EmbedText(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
}

func TestOpenAIDoesNotSupportImages(t *testing.T) {
	o := &OpenAI{dim: 8}
	if o.SupportsImages() {
		t.Fatal("remote text provider must report no image support")
	}
	if _, ok := any(o).(ImageEmbedder); ok {
		t.Fatal("remote text provider must not implement ImageEmbedder")
	}
}
