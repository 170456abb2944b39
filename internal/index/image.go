package index

import (
	"context"
	"fmt"
	"path/filepath"

	"docsift/internal/domain"
	"docsift/internal/embedder"
	"docsift/internal/store"
)

// ImageResult reports one image ingestion.
type ImageResult struct {
	Filename string
	Path     string
	State    State
	Err      error
}

// IngestImage embeds one image with the cross-modal model and upserts it
// under its filename.
func (idx *Indexer) IngestImage(ctx context.Context, path string) (*ImageResult, error) {
	res := &ImageResult{State: StatePending}
	fail := func(err error) (*ImageResult, error) {
		res.State, res.Err = StateFailed, err
		return res, err
	}
	if idx.deps.ImageIndex == nil || idx.deps.Images == nil {
		return fail(fmt.Errorf("%w: image ingestion is not configured", domain.ErrConfiguration))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fail(fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, path, err))
	}
	res.Path, res.Filename = abs, filepath.Base(abs)

	img, err := embedder.LoadImage(abs)
	if err != nil {
		return fail(err)
	}
	res.State = StateExtracted

	vec, err := idx.deps.Images.EmbedImage(ctx, img)
	if err != nil {
		return fail(fmt.Errorf("embed %s: %w", res.Filename, err))
	}
	res.State = StateEmbedded

	wiped, err := idx.deps.ImageIndex.AddAs(ctx, idx.cfg.ImageModel, []store.Entry{{
		ID:        res.Filename,
		Embedding: vec,
		Metadata:  store.Metadata{Filename: res.Filename, Path: abs},
		Document:  res.Filename,
	}})
	if err != nil {
		return fail(fmt.Errorf("store %s: %w", res.Filename, err))
	}
	if wiped {
		idx.log.WithField("model", idx.cfg.ImageModel).Warn("image embedding model changed, image collection was cleared")
	}

	idx.log.WithField("file", res.Filename).Info("image indexed")
	res.State = StateDone
	return res, nil
}
