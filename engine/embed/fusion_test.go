package embed

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync/atomic"
	"testing"
)

// fakeProvider is an in-memory dual-modality provider with deterministic
// vectors.
type fakeProvider struct {
	dim       int
	noImages  bool
	imageVecs map[string][]float32
	imageErr  map[string]error

	imageCalls atomic.Int64
}

func (f *fakeProvider) Name() string         { return "fake" }
func (f *fakeProvider) Dimension() int       { return f.dim }
func (f *fakeProvider) SupportsImages() bool { return !f.noImages }

func (f *fakeProvider) EmbedText(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, f.dim)
	v[len(text)%f.dim] = 1
	return v, nil
}

func (f *fakeProvider) EmbedTexts(ctx context.Context, texts []string, _ int) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := f.EmbedText(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeProvider) EmbedImage(_ context.Context, source string) ([]float32, error) {
	f.imageCalls.Add(1)
	if err, ok := f.imageErr[source]; ok {
		return nil, err
	}
	if v, ok := f.imageVecs[source]; ok {
		return v, nil
	}
	return nil, ErrImageEmbed
}

func unit(dim, axis int) []float32 {
	v := make([]float32, dim)
	v[axis] = 1
	return v
}

func TestFuseNoImagesReturnsTextEmbedding(t *testing.T) {
	p := &fakeProvider{dim: 4}
	ctx := context.Background()

	text, _ := p.EmbedText(ctx, "points failure")
	fused, info, err := Fuse(ctx, p, "points failure", nil, 0.7, slog.Default())
	if err != nil {
		t.Fatalf("Fuse: %v", err)
	}
	for i := range text {
		if fused[i] != text[i] {
			t.Fatalf("component %d: fused %v, text %v", i, fused[i], text[i])
		}
	}
	if info.Method != "text_only" || info.ImagesProcessed != 0 {
		t.Fatalf("info = %+v, want text_only with 0 processed", info)
	}
}

func TestFuseFullTextWeightIgnoresImages(t *testing.T) {
	p := &fakeProvider{dim: 4, imageVecs: map[string][]float32{"a.jpg": unit(4, 1)}}
	ctx := context.Background()

	text, _ := p.EmbedText(ctx, "landslip")
	fused, info, err := Fuse(ctx, p, "landslip", []string{"a.jpg"}, 1.0, slog.Default())
	if err != nil {
		t.Fatalf("Fuse: %v", err)
	}
	for i := range text {
		if fused[i] != text[i] {
			t.Fatalf("component %d: fused %v, text %v", i, fused[i], text[i])
		}
	}
	if n := p.imageCalls.Load(); n != 0 {
		t.Fatalf("embedded %d images with text weight 1.0, want 0", n)
	}
	if info.Method != "text_only" {
		t.Fatalf("method %q, want text_only", info.Method)
	}
}

func TestFuseWeightedAverage(t *testing.T) {
	// Text lands on axis 0 ("xxxx" has length 4, 4%4=0); both images on axis 1.
	p := &fakeProvider{dim: 4, imageVecs: map[string][]float32{
		"a.jpg": unit(4, 1),
		"b.jpg": unit(4, 1),
	}}
	fused, info, err := Fuse(context.Background(), p, "xxxx", []string{"a.jpg", "b.jpg"}, 0.7, slog.Default())
	if err != nil {
		t.Fatalf("Fuse: %v", err)
	}
	if info.Method != "weighted_average" || info.ImagesProcessed != 2 {
		t.Fatalf("info = %+v", info)
	}
	// Pre-normalization the blend is (0.7, 0.3, 0, 0).
	norm := math.Hypot(0.7, 0.3)
	if math.Abs(float64(fused[0])-0.7/norm) > 1e-6 || math.Abs(float64(fused[1])-0.3/norm) > 1e-6 {
		t.Fatalf("fused = %v", fused)
	}
	if n := Dot(fused, fused); math.Abs(n-1) > 1e-6 {
		t.Fatalf("fused norm^2 = %v, want 1", n)
	}
}

func TestFuseAppliesOutOfRangeWeight(t *testing.T) {
	// Text on axis 0, image on axis 1. A weight of 1.5 extrapolates: the
	// pre-normalization blend is 1.5*text - 0.5*image = (1.5, -0.5, 0, 0).
	p := &fakeProvider{dim: 4, imageVecs: map[string][]float32{"a.jpg": unit(4, 1)}}
	fused, info, err := Fuse(context.Background(), p, "xxxx", []string{"a.jpg"}, 1.5, slog.Default())
	if err != nil {
		t.Fatalf("Fuse: %v", err)
	}
	if info.TextWeight != 1.5 || info.ImageWeight != -0.5 {
		t.Fatalf("info weights = %v/%v, want 1.5/-0.5 as supplied", info.TextWeight, info.ImageWeight)
	}
	norm := math.Hypot(1.5, 0.5)
	if math.Abs(float64(fused[0])-1.5/norm) > 1e-6 || math.Abs(float64(fused[1])+0.5/norm) > 1e-6 {
		t.Fatalf("fused = %v, want (%v, %v, 0, 0)", fused, 1.5/norm, -0.5/norm)
	}
}

func TestFuseSkipsFailedImages(t *testing.T) {
	p := &fakeProvider{
		dim:       4,
		imageVecs: map[string][]float32{"good.jpg": unit(4, 2)},
		imageErr:  map[string]error{"bad.jpg": errors.New("404")},
	}
	_, info, err := Fuse(context.Background(), p, "fire", []string{"bad.jpg", "good.jpg"}, 0.5, slog.Default())
	if err != nil {
		t.Fatalf("Fuse: %v", err)
	}
	if info.ImagesProvided != 2 || info.ImagesAttempted != 2 || info.ImagesProcessed != 1 {
		t.Fatalf("info = %+v, want 2 provided, 2 attempted, 1 processed", info)
	}
	if info.Method != "weighted_average" {
		t.Fatalf("method %q", info.Method)
	}
}

func TestFuseAllImagesFailFallsBackToText(t *testing.T) {
	p := &fakeProvider{dim: 4, imageErr: map[string]error{"x.jpg": errors.New("timeout")}}
	ctx := context.Background()

	text, _ := p.EmbedText(ctx, "collision")
	fused, info, err := Fuse(ctx, p, "collision", []string{"x.jpg"}, 0.7, slog.Default())
	if err != nil {
		t.Fatalf("Fuse: %v", err)
	}
	for i := range text {
		if fused[i] != text[i] {
			t.Fatalf("component %d differs from text embedding", i)
		}
	}
	if info.Method != "text_only" || info.ImagesProcessed != 0 {
		t.Fatalf("info = %+v", info)
	}
}

func TestFuseCapsImageCount(t *testing.T) {
	p := &fakeProvider{dim: 4, imageVecs: map[string][]float32{
		"1.jpg": unit(4, 1), "2.jpg": unit(4, 1), "3.jpg": unit(4, 1), "4.jpg": unit(4, 1), "5.jpg": unit(4, 1),
	}}
	_, info, err := Fuse(context.Background(), p, "debris", []string{"1.jpg", "2.jpg", "3.jpg", "4.jpg", "5.jpg"}, 0.7, slog.Default())
	if err != nil {
		t.Fatalf("Fuse: %v", err)
	}
	if info.ImagesProcessed != MaxFusionImages {
		t.Fatalf("processed %d images, want %d", info.ImagesProcessed, MaxFusionImages)
	}
	if info.ImagesProvided != 5 || info.ImagesAttempted != MaxFusionImages {
		t.Fatalf("info = %+v, want 5 provided and %d attempted", info, MaxFusionImages)
	}
}

func TestFuseTextOnlyProviderIgnoresImages(t *testing.T) {
	p := &fakeProvider{dim: 4, noImages: true}
	// A Provider without the ImageEmbedder half never sees image sources.
	var textOnly Provider = struct{ Provider }{p}
	fused, info, err := Fuse(context.Background(), textOnly, "flood", []string{"a.jpg"}, 0.7, slog.Default())
	if err != nil {
		t.Fatalf("Fuse: %v", err)
	}
	if fused == nil || info.Method != "text_only" {
		t.Fatalf("info = %+v", info)
	}
}
