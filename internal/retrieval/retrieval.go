// Package retrieval answers text queries against the paper and image
// collections.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"docsift/internal/domain"
	"docsift/internal/store"
)

// Default result counts per surface.
const (
	DefaultPaperTopK = 5
	DefaultPanelTopK = 3
	DefaultImageTopK = 6

	// SnippetLength is how many characters of a hit are shown in listings.
	SnippetLength = 200
)

// QueryEmbedder embeds query text in the paper space.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// CrossModalEmbedder embeds query text in the image space.
type CrossModalEmbedder interface {
	EmbedCrossModalText(ctx context.Context, text string) ([]float32, error)
}

// Collection is the part of a vector collection search reads from.
type Collection interface {
	CheckModel(ctx context.Context, model string) error
	Query(ctx context.Context, vec []float32, n int) ([]store.Hit, error)
}

// Result is one ranked hit.
type Result struct {
	ID         string
	Filename   string
	Path       string
	PageNumber int
	Topic      string
	Text       string
	Snippet    string
	Score      float64
	Distance   float64
	IsSummary  bool
}

// Config names the models that produced each collection and the default
// result counts.
type Config struct {
	TextModel  string
	ImageModel string
	PaperTopK  int
	ImageTopK  int
}

// Searcher runs paper and image searches.
type Searcher struct {
	cfg    Config
	papers Collection
	images Collection
	text   QueryEmbedder
	clip   CrossModalEmbedder
}

// New creates a searcher. Either side may be nil when unused.
func New(cfg Config, papers Collection, text QueryEmbedder, images Collection, clip CrossModalEmbedder) *Searcher {
	if cfg.PaperTopK <= 0 {
		cfg.PaperTopK = DefaultPaperTopK
	}
	if cfg.ImageTopK <= 0 {
		cfg.ImageTopK = DefaultImageTopK
	}
	return &Searcher{cfg: cfg, papers: papers, images: images, text: text, clip: clip}
}

// SearchPapers returns up to k chunks nearest to query, nearest first.
// k <= 0 uses the configured default.
func (s *Searcher) SearchPapers(ctx context.Context, query string, k int) ([]Result, error) {
	if s.papers == nil || s.text == nil {
		return nil, fmt.Errorf("%w: paper search is not configured", domain.ErrConfiguration)
	}
	if k <= 0 {
		k = s.cfg.PaperTopK
	}
	return s.search(ctx, query, k, s.papers, s.cfg.TextModel, s.text.EmbedQuery)
}

// SearchImages returns up to k images nearest to query in the cross-modal
// space. k <= 0 uses the configured default.
func (s *Searcher) SearchImages(ctx context.Context, query string, k int) ([]Result, error) {
	if s.images == nil || s.clip == nil {
		return nil, fmt.Errorf("%w: image search is not configured", domain.ErrConfiguration)
	}
	if k <= 0 {
		k = s.cfg.ImageTopK
	}
	return s.search(ctx, query, k, s.images, s.cfg.ImageModel, s.clip.EmbedCrossModalText)
}

// Combined holds the results of SearchAll.
type Combined struct {
	Papers []Result
	Images []Result
}

// SearchAll runs the paper and image searches concurrently.
func (s *Searcher) SearchAll(ctx context.Context, query string, paperK, imageK int) (*Combined, error) {
	var out Combined
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.SearchPapers(gctx, query, paperK)
		out.Papers = r
		return err
	})
	g.Go(func() error {
		r, err := s.SearchImages(gctx, query, imageK)
		out.Images = r
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Searcher) search(
	ctx context.Context,
	query string,
	k int,
	c Collection,
	model string,
	embed func(context.Context, string) ([]float32, error),
) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if err := c.CheckModel(ctx, model); err != nil {
		return nil, err
	}

	vec, err := embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := c.Query(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	// Store order is kept as is.
	results := make([]Result, 0, min(len(hits), k))
	for _, h := range hits {
		if len(results) == k {
			break
		}
		results = append(results, fromHit(h))
	}
	return results, nil
}

func fromHit(h store.Hit) Result {
	return Result{
		ID:         h.ID,
		Filename:   h.Metadata.Filename,
		Path:       h.Metadata.Path,
		PageNumber: h.Metadata.PageNumber,
		Topic:      h.Metadata.Topic,
		Text:       h.Document,
		Snippet:    Snippet(h.Document, SnippetLength),
		Score:      1 - h.Distance,
		Distance:   h.Distance,
		IsSummary:  h.Metadata.IsSummary,
	}
}

// Snippet returns the first n characters of text, marking a cut with "...".
func Snippet(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "..."
}
