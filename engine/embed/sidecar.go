package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// sidecarClient talks to a local model-inference sidecar over HTTP. The
// sidecar owns the weights; this client owns device selection, lazy warmup,
// and normalization. Warmup happens once per process on first use.
type sidecarClient struct {
	baseURL string
	device  string // explicit override, may be empty
	dim     int    // configured dimension, verified at warmup
	client  *http.Client
	log     *slog.Logger

	once    sync.Once
	loadErr error
	loaded  warmupResponse
}

func newSidecarClient(baseURL, device string, dim int, log *slog.Logger) *sidecarClient {
	return &sidecarClient{
		baseURL: baseURL,
		device:  device,
		dim:     dim,
		client:  &http.Client{Timeout: 120 * time.Second}, // first warmup loads weights
		log:     log,
	}
}

type warmupRequest struct {
	Device string `json:"device"`
}

type warmupResponse struct {
	Model      string   `json:"model"`
	Dimension  int      `json:"dimension"`
	Modalities []string `json:"modalities"`
}

type embedRequest struct {
	Texts []string `json:"texts"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

type embedImageRequest struct {
	Data string `json:"data"` // base64-encoded image bytes
}

type embedImageResponse struct {
	Embedding []float32 `json:"embedding"`
}

// ProbeDevice implements DeviceProber.
func (c *sidecarClient) ProbeDevice(ctx context.Context) (DeviceInfo, error) {
	var info DeviceInfo
	if err := c.getJSON(ctx, "/device", &info); err != nil {
		return DeviceInfo{}, err
	}
	return info, nil
}

// load performs the one-time warmup: select a device, ask the sidecar to
// load weights on it, and verify the reported dimension.
func (c *sidecarClient) load(ctx context.Context) error {
	c.once.Do(func() {
		device := SelectDevice(ctx, c.device, c)
		var resp warmupResponse
		if err := c.postJSON(ctx, "/warmup", warmupRequest{Device: device}, &resp); err != nil {
			c.loadErr = fmt.Errorf("embed: sidecar warmup: %w", err)
			return
		}
		if resp.Dimension != c.dim {
			c.loadErr = fmt.Errorf("embed: sidecar reports dimension %d, expected %d", resp.Dimension, c.dim)
			return
		}
		c.loaded = resp
		c.log.Info("embedding model loaded", "model", resp.Model, "device", device, "dimension", resp.Dimension)
	})
	return c.loadErr
}

// embedTexts embeds one chunk of texts and normalizes each vector.
func (c *sidecarClient) embedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if err := c.load(ctx); err != nil {
		return nil, err
	}
	var resp embedResponse
	if err := c.postJSON(ctx, "/embed", embedRequest{Texts: texts}, &resp); err != nil {
		return nil, fmt.Errorf("embed: sidecar embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embed: sidecar returned %d vectors for %d texts", len(resp.Embeddings), len(texts))
	}
	out := make([][]float32, len(resp.Embeddings))
	for i, v := range resp.Embeddings {
		if len(v) != c.dim {
			return nil, fmt.Errorf("embed: unexpected vector length %d, want %d", len(v), c.dim)
		}
		out[i] = Normalize(v)
	}
	return out, nil
}

// embedImage embeds pre-fetched image bytes (base64) and normalizes.
func (c *sidecarClient) embedImage(ctx context.Context, b64 string) ([]float32, error) {
	if err := c.load(ctx); err != nil {
		return nil, err
	}
	var resp embedImageResponse
	if err := c.postJSON(ctx, "/embed/image", embedImageRequest{Data: b64}, &resp); err != nil {
		return nil, fmt.Errorf("embed: sidecar embed image: %w", err)
	}
	if len(resp.Embedding) != c.dim {
		return nil, fmt.Errorf("embed: unexpected image vector length %d, want %d", len(resp.Embedding), c.dim)
	}
	return Normalize(resp.Embedding), nil
}

func (c *sidecarClient) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *sidecarClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *sidecarClient) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sidecar %s: status %d: %s", req.URL.Path, resp.StatusCode, bytes.TrimSpace(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
