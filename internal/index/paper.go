package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"docsift/internal/chunker"
	"docsift/internal/domain"
	"docsift/internal/store"
)

// PaperOptions customise one paper ingestion.
type PaperOptions struct {
	// Topics overrides the configured candidate labels.
	Topics []string
	// Root is where topic folders are created; defaults to the file's directory.
	Root string
}

// PaperResult reports how far a paper got through the pipeline.
type PaperResult struct {
	Filename   string
	SourcePath string
	// Path is where the file lives after relocation; it is the stored path.
	Path       string
	Topic      string
	Score      float64
	Classified bool
	Pages      int
	Chunks     int
	State      State
	Err        error
	// RelocationErr is set when the move failed; the paper is still indexed.
	RelocationErr error
	// PreviousPath is set when a same-named paper from another path was replaced.
	PreviousPath string
}

func (r *PaperResult) fail(err error) (*PaperResult, error) {
	r.State = StateFailed
	r.Err = err
	return r, err
}

// IngestPaper runs one PDF through extract, chunk, classify, embed,
// relocate and store. The returned result is non-nil even on error.
func (idx *Indexer) IngestPaper(ctx context.Context, path string, opts PaperOptions) (*PaperResult, error) {
	res := &PaperResult{State: StatePending, Topic: domain.Uncategorized}
	if idx.deps.Papers == nil || idx.deps.Text == nil {
		return res.fail(fmt.Errorf("%w: paper ingestion is not configured", domain.ErrConfiguration))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return res.fail(fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, path, err))
	}
	res.SourcePath, res.Path, res.Filename = abs, abs, filepath.Base(abs)
	log := idx.log.WithField("file", res.Filename)

	if _, err := os.Stat(abs); err != nil {
		return res.fail(fmt.Errorf("%w: %s: %v", domain.ErrExtraction, abs, err))
	}

	pages, err := idx.deps.Extractor.Extract(ctx, abs)
	if err != nil {
		return res.fail(fmt.Errorf("extract %s: %w", res.Filename, err))
	}
	if len(pages) == 0 {
		return res.fail(fmt.Errorf("%s: %w", res.Filename, domain.ErrNoText))
	}
	res.Pages = len(pages)
	res.State = StateExtracted

	chunks, err := chunker.Chunk(pages, idx.cfg.ChunkSize, idx.cfg.Overlap)
	if err != nil {
		return res.fail(err)
	}
	summaryText := chunker.Summarize(pages, idx.cfg.SummaryPages, idx.cfg.SummaryMaxChars)
	summary := chunker.SummaryChunk(pages, summaryText)
	res.Chunks = len(chunks)
	res.State = StateChunked
	log.WithField("chunks", len(chunks)).Debug("chunked")

	labels := opts.Topics
	if labels == nil {
		labels = idx.cfg.Topics
	}
	cls, err := idx.deps.Classifier.Classify(ctx, summaryText, labels)
	if err != nil {
		return res.fail(fmt.Errorf("classify %s: %w", res.Filename, err))
	}
	res.Topic, res.Score, res.Classified = cls.Label, cls.Score, !cls.Skipped
	res.State = StateClassified

	texts := make([]string, 0, len(chunks)+1)
	for _, c := range chunks {
		texts = append(texts, c.Text)
	}
	texts = append(texts, summary.Text)
	vecs, err := idx.deps.Text.EmbedTexts(ctx, texts)
	if err != nil {
		return res.fail(fmt.Errorf("embed %s: %w", res.Filename, err))
	}
	if len(vecs) != len(texts) {
		return res.fail(fmt.Errorf("%w: %s: expected %d embeddings, got %d", domain.ErrEmbedding, res.Filename, len(texts), len(vecs)))
	}
	res.State = StateEmbedded

	if idx.cfg.Move && res.Classified && res.Topic != domain.Uncategorized {
		root := opts.Root
		if root == "" {
			root = filepath.Dir(abs)
		}
		final, err := idx.deps.Move(abs, filepath.Join(root, res.Topic), res.Filename)
		if err != nil {
			res.RelocationErr = err
			log.WithError(err).Warn("relocation failed, keeping original path")
		}
		if final != "" {
			res.Path = final
		}
	}
	res.State = StateRelocated

	prev, found, err := idx.deps.Papers.Lookup(ctx, res.Filename)
	if err != nil {
		return res.fail(fmt.Errorf("%w: lookup %s: %v", domain.ErrIndexWrite, res.Filename, err))
	}
	if found && prev.Path != "" && prev.Path != res.Path {
		res.PreviousPath = prev.Path
		log.WithField("previous_path", prev.Path).Warn("replacing entries of a same-named paper from another location")
	}

	entries := buildEntries(res, chunks, summary, vecs)
	wiped, err := idx.deps.Papers.ReplaceAs(ctx, idx.cfg.TextModel, res.Filename, entries)
	if err != nil {
		if !errors.Is(err, domain.ErrIndexWrite) {
			err = fmt.Errorf("%w: %v", domain.ErrIndexWrite, err)
		}
		return res.fail(fmt.Errorf("store %s: %w", res.Filename, err))
	}
	if wiped {
		log.WithField("model", idx.cfg.TextModel).Warn("embedding model changed, paper collection was cleared")
	}
	res.State = StateStored

	log.WithFields(map[string]any{
		"topic":  res.Topic,
		"chunks": res.Chunks,
		"path":   res.Path,
	}).Info("paper indexed")
	res.State = StateDone
	return res, nil
}

// buildEntries pairs chunks (then the summary) with vecs in order.
func buildEntries(res *PaperResult, chunks []domain.Chunk, summary domain.Chunk, vecs [][]float32) []store.Entry {
	entries := make([]store.Entry, 0, len(chunks)+1)
	meta := func(c domain.Chunk) store.Metadata {
		return store.Metadata{
			Filename:   res.Filename,
			Path:       res.Path,
			PageNumber: c.PageNumber,
			Topic:      res.Topic,
			IsSummary:  c.IsSummary,
		}
	}
	for i, c := range chunks {
		entries = append(entries, store.Entry{
			ID:        domain.ChunkEntryID(res.Filename, c.ChunkID),
			Embedding: vecs[i],
			Metadata:  meta(c),
			Document:  c.Text,
		})
	}
	entries = append(entries, store.Entry{
		ID:        domain.SummaryEntryID(res.Filename),
		Embedding: vecs[len(chunks)],
		Metadata:  meta(summary),
		Document:  summary.Text,
	})
	return entries
}
