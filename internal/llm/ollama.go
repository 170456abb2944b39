package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"docsift/internal/domain"
)

const systemPrompt = `You answer questions about a single image. Describe only what is visible. Keep answers short and concrete. If the image does not show enough to answer, say so.`

// VisionChat asks an Ollama vision model about images.
type VisionChat struct {
	client *api.Client
	model  string
}

// NewVisionChat creates a chat client targeting the given Ollama instance and model.
func NewVisionChat(baseURL, model string, timeout time.Duration) (*VisionChat, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: ollama url %q: %v", domain.ErrConfiguration, baseURL, err)
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &VisionChat{
		client: api.NewClient(u, &http.Client{Timeout: timeout}),
		model:  model,
	}, nil
}

// Model returns the configured model name.
func (c *VisionChat) Model() string { return c.model }

// BuildMessages constructs the message list for one question about image.
func BuildMessages(image []byte, question string) []api.Message {
	return []api.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: question, Images: []api.ImageData{image}},
	}
}

// Ask sends the image at path and question to the model and returns its
// answer.
func (c *VisionChat) Ask(ctx context.Context, path, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", domain.ErrExtraction, path, err)
	}

	stream := false
	var answer strings.Builder
	err = c.client.Chat(ctx, &api.ChatRequest{
		Model:    c.model,
		Messages: BuildMessages(data, question),
		Stream:   &stream,
	}, func(resp api.ChatResponse) error {
		answer.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	return strings.TrimSpace(answer.String()), nil
}
