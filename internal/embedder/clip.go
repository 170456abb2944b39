package embedder

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"docsift/internal/domain"
)

// CLIP talks to a CLIP inference server that embeds texts and images into
// a shared space. The server exposes GET /health and POST /embed.
type CLIP struct {
	baseURL string
	model   string
	client  *http.Client

	mu    sync.Mutex
	ready bool
}

// NewCLIP creates a client for the CLIP server at baseURL.
func NewCLIP(baseURL, model string, timeout time.Duration) *CLIP {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &CLIP{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

// Model returns the configured model name.
func (c *CLIP) Model() string { return c.model }

type clipRequest struct {
	Model  string   `json:"model"`
	Texts  []string `json:"texts,omitempty"`
	Images []string `json:"images,omitempty"`
}

type clipResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Acquire checks once that the server is reachable.
func (c *CLIP) Acquire(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ready {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("%w: clip url %q: %v", domain.ErrConfiguration, c.baseURL, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: clip health: %v", domain.ErrEmbedding, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: clip health returned %d", domain.ErrEmbedding, resp.StatusCode)
	}
	c.ready = true
	return nil
}

// EmbedCrossModalText embeds a text query into the image space.
func (c *CLIP) EmbedCrossModalText(ctx context.Context, text string) ([]float32, error) {
	return c.embedOne(ctx, clipRequest{Model: c.model, Texts: []string{text}})
}

// EmbedImage embeds a decoded image.
func (c *CLIP) EmbedImage(ctx context.Context, img image.Image) ([]float32, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: encode image: %v", domain.ErrEmbedding, err)
	}
	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())
	return c.embedOne(ctx, clipRequest{Model: c.model, Images: []string{encoded}})
}

func (c *CLIP) embedOne(ctx context.Context, body clipRequest) ([]float32, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal clip request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: build clip request: %v", domain.ErrEmbedding, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: clip embed request: %v", domain.ErrEmbedding, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: clip embed returned %d: %s", domain.ErrEmbedding, resp.StatusCode, string(respBody))
	}

	var result clipResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode clip response: %v", domain.ErrEmbedding, err)
	}
	if len(result.Embeddings) != 1 {
		return nil, fmt.Errorf("%w: expected 1 embedding, got %d", domain.ErrEmbedding, len(result.Embeddings))
	}
	return Normalize(result.Embeddings[0]), nil
}
