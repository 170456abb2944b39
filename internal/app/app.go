// Package app builds the objects every docsift surface shares.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"docsift/internal/classify"
	"docsift/internal/config"
	"docsift/internal/embedder"
	"docsift/internal/extract"
	"docsift/internal/index"
	"docsift/internal/llm"
	"docsift/internal/logger"
	"docsift/internal/relocate"
	"docsift/internal/retrieval"
	"docsift/internal/store"
)

// Runtime is constructed once per process and passed to each command.
type Runtime struct {
	Config *config.AppConfig
	Store  *store.SQLiteStore
	Papers *store.Collection
	Images *store.Collection
	Text   *embedder.Ollama
	CLIP   *embedder.CLIP
	Vision *llm.VisionChat

	Indexer  *index.Indexer
	Searcher *retrieval.Searcher
	Log      *logrus.Entry
}

// Open creates the database directory, opens both collections and builds
// the providers. No network call is made until a provider is acquired.
func Open(ctx context.Context, cfg *config.AppConfig) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	papers, err := st.Collection(ctx, store.Papers, cfg.Ollama.TextDimensions)
	if err != nil {
		st.Close()
		return nil, err
	}
	images, err := st.Collection(ctx, store.Images, cfg.CLIP.Dimensions)
	if err != nil {
		st.Close()
		return nil, err
	}

	text, err := embedder.NewOllama(cfg.Ollama.BaseURL, cfg.Ollama.TextModel, cfg.Ollama.Timeout(), cfg.Ollama.BatchSize)
	if err != nil {
		st.Close()
		return nil, err
	}
	clip := embedder.NewCLIP(cfg.CLIP.BaseURL, cfg.CLIP.Model, cfg.CLIP.Timeout())
	vision, err := llm.NewVisionChat(cfg.Ollama.BaseURL, cfg.Ollama.VisionModel, cfg.Ollama.Timeout())
	if err != nil {
		st.Close()
		return nil, err
	}

	idx, err := index.New(index.Config{
		ChunkSize:       cfg.Chunking.ChunkSize,
		Overlap:         cfg.Chunking.OverlapChars(),
		SummaryPages:    cfg.Chunking.SummaryPages,
		SummaryMaxChars: cfg.Chunking.SummaryMaxChars,
		Topics:          cfg.Topics.Candidates,
		Move:            cfg.Ingest.Move(),
		TextModel:       cfg.Ollama.TextModel,
		ImageModel:      cfg.CLIP.Model,
		Ignore:          cfg.Ingest.Ignore,
		MaxFileSize:     int64(cfg.Ingest.MaxFileMB) << 20,
	}, index.Deps{
		Extractor:  extract.NewPDFExtractor(),
		Text:       text,
		Images:     clip,
		Classifier: classify.New(text, cfg.TopicTable()),
		Papers:     papers,
		ImageIndex: images,
		Move:       relocate.Move,
		Log:        logger.New("ingest"),
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	searcher := retrieval.New(retrieval.Config{
		TextModel:  cfg.Ollama.TextModel,
		ImageModel: cfg.CLIP.Model,
		PaperTopK:  cfg.Search.PaperTopK,
		ImageTopK:  cfg.Search.ImageTopK,
	}, papers, text, images, clip)

	return &Runtime{
		Config:   cfg,
		Store:    st,
		Papers:   papers,
		Images:   images,
		Text:     text,
		CLIP:     clip,
		Vision:   vision,
		Indexer:  idx,
		Searcher: searcher,
		Log:      logger.New("app"),
	}, nil
}

// AcquireText verifies the text embedding model is available.
func (r *Runtime) AcquireText(ctx context.Context) error {
	return r.Text.Acquire(ctx)
}

// AcquireImages verifies the CLIP server is available.
func (r *Runtime) AcquireImages(ctx context.Context) error {
	return r.CLIP.Acquire(ctx)
}

// Close releases the database.
func (r *Runtime) Close() error {
	return r.Store.Close()
}
