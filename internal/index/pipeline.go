package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"docsift/internal/domain"
	"docsift/internal/walker"
)

// ProgressFunc is called after each file of a batch.
type ProgressFunc func(done, total int, file string)

// Failure is a file a batch could not ingest.
type Failure struct {
	Path   string
	Reason string
	Err    error
}

// Stats reports batch results.
type Stats struct {
	RunID         string
	FilesTotal    int
	PapersIndexed int
	PapersFailed  int
	ImagesIndexed int
	ImagesFailed  int
	Skipped       int
	ChunksTotal   int
	Papers        []*PaperResult
	Failures      []Failure
}

// FolderOptions customise a batch ingestion.
type FolderOptions struct {
	Topics     []string
	Recursive  bool
	PapersOnly bool
	ImagesOnly bool
	OnProgress ProgressFunc
}

// IngestFolder ingests every PDF and image under root, one file at a time
// in walk order. The file list is taken before the first move, so papers
// relocated into topic folders are not visited twice. A failed file is
// logged and counted; the rest continue.
func (idx *Indexer) IngestFolder(ctx context.Context, root string, opts FolderOptions) (*Stats, error) {
	stats := &Stats{RunID: uuid.NewString()}
	log := idx.log.WithField("run_id", stats.RunID)

	files, err := walker.Collect(root, walker.Options{
		Ignore:      idx.cfg.Ignore,
		Recursive:   opts.Recursive,
		MaxFileSize: idx.cfg.MaxFileSize,
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	stats.FilesTotal = len(files)
	log.WithField("files", len(files)).Info("ingestion started")

	for i, fi := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		switch {
		case fi.Kind == walker.KindPDF && !opts.ImagesOnly:
			res, err := idx.IngestPaper(ctx, fi.Path, PaperOptions{Topics: opts.Topics, Root: root})
			stats.Papers = append(stats.Papers, res)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return stats, err
				}
				stats.PapersFailed++
				stats.Failures = append(stats.Failures, Failure{Path: fi.Path, Reason: FailureReason(err), Err: err})
				log.WithField("file", fi.RelPath).WithError(err).Warn("paper failed")
				break
			}
			stats.PapersIndexed++
			stats.ChunksTotal += res.Chunks

		case fi.Kind == walker.KindImage && !opts.PapersOnly:
			_, err := idx.IngestImage(ctx, fi.Path)
			switch {
			case errors.Is(err, domain.ErrUnsupportedType):
				stats.Skipped++
				log.WithField("file", fi.RelPath).Debug("image format not supported")
			case err != nil:
				if errors.Is(err, context.Canceled) {
					return stats, err
				}
				stats.ImagesFailed++
				stats.Failures = append(stats.Failures, Failure{Path: fi.Path, Reason: FailureReason(err), Err: err})
				log.WithField("file", fi.RelPath).WithError(err).Warn("image failed")
			default:
				stats.ImagesIndexed++
			}

		default:
			stats.Skipped++
			log.WithFields(map[string]any{"file": fi.RelPath, "mime": fi.MIME}).Debug("skipped")
		}

		if opts.OnProgress != nil {
			opts.OnProgress(i+1, len(files), fi.RelPath)
		}
	}

	log.WithFields(map[string]any{
		"papers_ok":     stats.PapersIndexed,
		"papers_failed": stats.PapersFailed,
		"images_ok":     stats.ImagesIndexed,
		"images_failed": stats.ImagesFailed,
		"skipped":       stats.Skipped,
	}).Info("ingestion finished")
	return stats, nil
}

// IndexImages indexes one image, or every image directly inside a folder.
func (idx *Indexer) IndexImages(ctx context.Context, path string, isDir bool) (*Stats, error) {
	if !isDir {
		stats := &Stats{RunID: uuid.NewString(), FilesTotal: 1}
		if _, err := idx.IngestImage(ctx, path); err != nil {
			stats.ImagesFailed++
			stats.Failures = append(stats.Failures, Failure{Path: path, Reason: FailureReason(err), Err: err})
			return stats, err
		}
		stats.ImagesIndexed++
		return stats, nil
	}
	return idx.IngestFolder(ctx, path, FolderOptions{ImagesOnly: true})
}
