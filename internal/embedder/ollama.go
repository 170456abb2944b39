package embedder

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ollama/ollama/api"

	"docsift/internal/domain"
)

// DefaultBatchSize is how many texts are sent per /api/embed request.
const DefaultBatchSize = 32

// Ollama embeds text through an Ollama server.
type Ollama struct {
	client    *api.Client
	model     string
	batchSize int

	mu    sync.Mutex
	ready bool
}

// NewOllama creates an embedder targeting the given Ollama instance.
func NewOllama(baseURL, model string, timeout time.Duration, batchSize int) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: ollama url %q: %v", domain.ErrConfiguration, baseURL, err)
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Ollama{
		client:    api.NewClient(u, &http.Client{Timeout: timeout}),
		model:     model,
		batchSize: batchSize,
	}, nil
}

// Model returns the configured model name.
func (e *Ollama) Model() string { return e.model }

// Acquire checks once that the model is pulled on the server. Calls after a
// successful check return immediately.
func (e *Ollama) Acquire(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ready {
		return nil
	}

	list, err := e.client.List(ctx)
	if err != nil {
		return fmt.Errorf("%w: list ollama models: %v", domain.ErrEmbedding, err)
	}
	for _, m := range list.Models {
		if sameModel(m.Name, e.model) || sameModel(m.Model, e.model) {
			e.ready = true
			return nil
		}
	}
	return fmt.Errorf("%w: model %q not found, run: ollama pull %s", domain.ErrConfiguration, e.model, e.model)
}

// sameModel compares names ignoring an implicit ":latest" tag.
func sameModel(have, want string) bool {
	return strings.TrimSuffix(have, ":latest") == strings.TrimSuffix(want, ":latest")
}

// EmbedTexts returns one normalized vector per text, in input order.
func (e *Ollama) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		batch := texts[start:end]

		resp, err := e.client.Embed(ctx, &api.EmbedRequest{
			Model: e.model,
			Input: batch,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: ollama embed: %v", domain.ErrEmbedding, err)
		}
		if len(resp.Embeddings) != len(batch) {
			return nil, fmt.Errorf("%w: expected %d embeddings, got %d", domain.ErrEmbedding, len(batch), len(resp.Embeddings))
		}
		for _, v := range resp.Embeddings {
			out = append(out, Normalize(v))
		}
	}
	return out, nil
}

// EmbedQuery embeds a single text.
func (e *Ollama) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}
