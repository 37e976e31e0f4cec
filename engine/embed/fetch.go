package embed

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// fetchTimeout bounds a single image download.
const fetchTimeout = 10 * time.Second

// maxImageBytes caps a fetched image; incident photos past this are junk.
const maxImageBytes = 20 << 20

// imageFetcher retrieves image bytes from URLs or local paths. Fetches are
// rate limited so a burst of multimodal queries cannot hammer an external
// image host.
type imageFetcher struct {
	client  *http.Client
	limiter *rate.Limiter
}

func newImageFetcher() *imageFetcher {
	return &imageFetcher{
		client:  &http.Client{Timeout: fetchTimeout},
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 5),
	}
}

// fetchBase64 returns the image bytes base64-encoded, ready for the sidecar.
func (f *imageFetcher) fetchBase64(ctx context.Context, source string) (string, error) {
	data, err := f.fetch(ctx, source)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func (f *imageFetcher) fetch(ctx context.Context, source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return f.fetchURL(ctx, source)
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", source, err)
	}
	return data, nil
}

func (f *imageFetcher) fetchURL(ctx context.Context, url string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image %s: status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("fetch image %s: %w", url, err)
	}
	return data, nil
}
