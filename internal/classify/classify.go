// Package classify assigns a document to one of a caller-supplied set of
// topics by comparing embeddings.
package classify

import (
	"context"
	"fmt"

	"docsift/internal/domain"
)

// TextEmbedder embeds texts into L2-normalized vectors, preserving order.
type TextEmbedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Classification is the outcome of Classify. Scores is parallel to the
// candidate labels; it is nil when classification was skipped.
type Classification struct {
	Label   string
	Score   float64
	Scores  []float64
	Skipped bool
}

// Classifier scores summaries against topic descriptions.
type Classifier struct {
	embedder TextEmbedder
	topics   domain.TopicTable
}

// New creates a classifier. A nil table means every label describes itself.
func New(embedder TextEmbedder, topics domain.TopicTable) *Classifier {
	return &Classifier{embedder: embedder, topics: topics}
}

// Classify picks the label whose description is most similar to summary.
// With no labels it returns Uncategorized without calling the embedder.
// Ties go to the earliest label.
func (c *Classifier) Classify(ctx context.Context, summary string, labels []string) (Classification, error) {
	if len(labels) == 0 {
		return Classification{Label: domain.Uncategorized, Skipped: true}, nil
	}

	texts := make([]string, 0, len(labels)+1)
	for _, l := range labels {
		texts = append(texts, c.topics.Describe(l))
	}
	texts = append(texts, summary)

	vecs, err := c.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return Classification{}, fmt.Errorf("embed topics: %w", err)
	}
	if len(vecs) != len(texts) {
		return Classification{}, fmt.Errorf("%w: expected %d embeddings, got %d", domain.ErrEmbedding, len(texts), len(vecs))
	}

	summaryVec := vecs[len(labels)]
	scores := make([]float64, len(labels))
	for i := range labels {
		scores[i] = Dot(summaryVec, vecs[i])
	}

	best := Argmax(scores)
	return Classification{
		Label:  labels[best],
		Score:  scores[best],
		Scores: scores,
	}, nil
}

// Argmax returns the index of the largest score, preferring the first index
// on ties. It returns -1 for an empty slice.
func Argmax(scores []float64) int {
	if len(scores) == 0 {
		return -1
	}
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return best
}

// Dot returns the dot product of a and b over their common length. For
// unit vectors this is the cosine similarity.
func Dot(a, b []float32) float64 {
	n := min(len(a), len(b))
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
