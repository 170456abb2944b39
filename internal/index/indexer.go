package index

import (
	"context"
	"fmt"
	"image"

	"github.com/sirupsen/logrus"

	"docsift/internal/chunker"
	"docsift/internal/classify"
	"docsift/internal/extract"
	"docsift/internal/logger"
	"docsift/internal/relocate"
	"docsift/internal/store"
)

// TextEmbedder embeds texts into normalized vectors, preserving order.
type TextEmbedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ImageEmbedder embeds decoded images.
type ImageEmbedder interface {
	EmbedImage(ctx context.Context, img image.Image) ([]float32, error)
}

// Classifier picks a topic for a document summary.
type Classifier interface {
	Classify(ctx context.Context, summary string, labels []string) (classify.Classification, error)
}

// Collection is the part of a vector collection ingestion writes to. The
// model check and the write share one transaction; wiped reports that the
// collection held vectors of another model and was cleared first.
type Collection interface {
	Lookup(ctx context.Context, filename string) (store.DocumentSummary, bool, error)
	AddAs(ctx context.Context, model string, entries []store.Entry) (wiped bool, err error)
	ReplaceAs(ctx context.Context, model, filename string, entries []store.Entry) (wiped bool, err error)
}

// MoveFunc relocates src into destDir and returns the final path.
type MoveFunc func(src, destDir, filename string) (string, error)

// Config holds the indexer configuration.
type Config struct {
	ChunkSize       int
	Overlap         int
	SummaryPages    int
	SummaryMaxChars int

	// Topics are the candidate labels used when a call names none.
	Topics []string
	// Move enables relocation of classified papers into topic folders.
	Move bool

	TextModel  string
	ImageModel string

	Ignore      []string
	MaxFileSize int64
}

// Deps are the collaborators an Indexer drives.
type Deps struct {
	Extractor  extract.Extractor
	Text       TextEmbedder
	Images     ImageEmbedder
	Classifier Classifier
	Papers     Collection
	ImageIndex Collection
	Move       MoveFunc
	Log        *logrus.Entry
}

// Indexer ingests papers and images into their collections.
type Indexer struct {
	cfg  Config
	deps Deps
	log  *logrus.Entry
}

// New validates cfg and fills unset dependencies with the defaults.
func New(cfg Config, deps Deps) (*Indexer, error) {
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = chunker.DefaultChunkSize
	}
	if cfg.SummaryPages == 0 {
		cfg.SummaryPages = chunker.DefaultSummaryPages
	}
	if cfg.SummaryMaxChars == 0 {
		cfg.SummaryMaxChars = chunker.DefaultSummaryMaxChars
	}
	if err := chunker.Validate(cfg.ChunkSize, cfg.Overlap); err != nil {
		return nil, err
	}
	if deps.Papers == nil && deps.ImageIndex == nil {
		return nil, fmt.Errorf("indexer needs at least one collection")
	}

	if deps.Extractor == nil {
		deps.Extractor = extract.NewPDFExtractor()
	}
	if deps.Classifier == nil && deps.Text != nil {
		deps.Classifier = classify.New(deps.Text, nil)
	}
	if deps.Move == nil {
		deps.Move = relocate.Move
	}
	log := deps.Log
	if log == nil {
		log = logger.New("index")
	}
	return &Indexer{cfg: cfg, deps: deps, log: log}, nil
}

// Config returns the effective configuration.
func (idx *Indexer) Config() Config { return idx.cfg }
