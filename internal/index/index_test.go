package index

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsift/internal/classify"
	"docsift/internal/domain"
	"docsift/internal/logger"
	"docsift/internal/relocate"
	"docsift/internal/store"
)

// fakeExtractor returns pages by file name.
type fakeExtractor struct {
	pages map[string][]domain.Page
	err   error
}

func (f *fakeExtractor) Extract(_ context.Context, path string) ([]domain.Page, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pages[filepath.Base(path)], nil
}

// fakeEmbedder maps texts containing "graph" near the SGG description and
// everything else near RL.
type fakeEmbedder struct {
	calls [][]string
	err   error
	// failOn makes the n-th call (1-based) fail.
	failOn int
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if f.err != nil && (f.failOn == 0 || f.failOn == len(f.calls)) {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if strings.Contains(strings.ToLower(t), "graph") {
			out[i] = []float32{1, 0, 0}
		} else {
			out[i] = []float32{0, 1, 0}
		}
	}
	return out, nil
}

type fakeImageEmbedder struct {
	calls int
}

func (f *fakeImageEmbedder) EmbedImage(context.Context, image.Image) ([]float32, error) {
	f.calls++
	return []float32{0, 0, 1}, nil
}

// fakeCollection records writes.
type fakeCollection struct {
	replaced map[string][]store.Entry
	added    []store.Entry
	existing map[string]store.DocumentSummary
	err      error
}

func newFakeCollection() *fakeCollection {
	return &fakeCollection{replaced: map[string][]store.Entry{}, existing: map[string]store.DocumentSummary{}}
}

func (f *fakeCollection) Lookup(_ context.Context, filename string) (store.DocumentSummary, bool, error) {
	d, ok := f.existing[filename]
	return d, ok, nil
}

func (f *fakeCollection) AddAs(_ context.Context, _ string, entries []store.Entry) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.added = append(f.added, entries...)
	return false, nil
}

func (f *fakeCollection) ReplaceAs(_ context.Context, _, filename string, entries []store.Entry) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.replaced[filename] = entries
	return false, nil
}

type harness struct {
	idx    *Indexer
	ext    *fakeExtractor
	emb    *fakeEmbedder
	imgs   *fakeImageEmbedder
	papers *fakeCollection
	images *fakeCollection
	moves  []string
}

func newHarness(t *testing.T, cfg Config, move MoveFunc) *harness {
	t.Helper()
	h := &harness{
		ext:    &fakeExtractor{pages: map[string][]domain.Page{}},
		emb:    &fakeEmbedder{},
		imgs:   &fakeImageEmbedder{},
		papers: newFakeCollection(),
		images: newFakeCollection(),
	}
	if move == nil {
		move = relocate.Move
	}
	recording := func(src, destDir, filename string) (string, error) {
		h.moves = append(h.moves, src)
		return move(src, destDir, filename)
	}
	idx, err := New(cfg, Deps{
		Extractor:  h.ext,
		Text:       h.emb,
		Images:     h.imgs,
		Classifier: classify.New(h.emb, testTopics),
		Papers:     h.papers,
		ImageIndex: h.images,
		Move:       recording,
		Log:        logger.Discard(),
	})
	require.NoError(t, err)
	h.idx = idx
	return h
}

func touch(t *testing.T, path string, data []byte) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

var testTopics = domain.TopicTable{
	"SGG": "Scene Graph Generation in Computer Vision and Images",
	"RL":  "Reinforcement Learning and Multi-Agent Systems",
}

func TestIngestPaper_ClassifiesMovesAndStores(t *testing.T) {
	root := t.TempDir()
	src := touch(t, filepath.Join(root, "inbox", "paper.pdf"), []byte("%PDF-1.4"))

	h := newHarness(t, Config{ChunkSize: 100, Overlap: 50, Move: true, TextModel: "m"}, nil)
	h.ext.pages["paper.pdf"] = []domain.Page{
		{Number: 1, Text: "scene graph " + strings.Repeat("x", 238)},
	}

	res, err := h.idx.IngestPaper(context.Background(), src, PaperOptions{Topics: []string{"SGG", "RL"}, Root: root})
	require.NoError(t, err)

	want := filepath.Join(root, "SGG", "paper.pdf")
	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, "SGG", res.Topic)
	assert.InDelta(t, 1.0, res.Score, 1e-6)
	assert.Equal(t, want, res.Path)
	assert.Equal(t, src, res.SourcePath)
	assert.Equal(t, 5, res.Chunks)
	assert.FileExists(t, want)
	assert.NoFileExists(t, src)

	entries := h.papers.replaced["paper.pdf"]
	require.Len(t, entries, 6)
	for i, e := range entries[:5] {
		assert.Equal(t, domain.ChunkEntryID("paper.pdf", i), e.ID)
		assert.False(t, e.Metadata.IsSummary)
	}
	summary := entries[5]
	assert.Equal(t, "paper.pdf_summary", summary.ID)
	assert.True(t, summary.Metadata.IsSummary)
	assert.Equal(t, 1, summary.Metadata.PageNumber)
	for _, e := range entries {
		assert.Equal(t, want, e.Metadata.Path, "stored path is the final location")
		assert.Equal(t, "SGG", e.Metadata.Topic)
		assert.Equal(t, "paper.pdf", e.Metadata.Filename)
	}

	// One call classifies, one call embeds every chunk plus the summary.
	require.Len(t, h.emb.calls, 2)
	assert.Len(t, h.emb.calls[1], 6)
}

func TestIngestPaper_NoTextAbortsBeforeEmbedding(t *testing.T) {
	root := t.TempDir()
	src := touch(t, filepath.Join(root, "scan.pdf"), []byte("%PDF-1.4"))

	h := newHarness(t, Config{Move: true, Topics: []string{"SGG"}}, nil)
	// An all-whitespace document collapses to no pages.
	h.ext.pages["scan.pdf"] = nil

	res, err := h.idx.IngestPaper(context.Background(), src, PaperOptions{Root: root})
	require.ErrorIs(t, err, domain.ErrNoText)

	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, "no-text", FailureReason(res.Err))
	assert.Empty(t, h.emb.calls, "no embedding call")
	assert.Empty(t, h.papers.replaced)
	assert.Empty(t, h.moves)
	assert.FileExists(t, src)
}

func TestIngestPaper_NoCandidatesStaysUncategorized(t *testing.T) {
	root := t.TempDir()
	src := touch(t, filepath.Join(root, "a.pdf"), []byte("%PDF"))

	h := newHarness(t, Config{Move: true}, nil)
	h.ext.pages["a.pdf"] = []domain.Page{{Number: 3, Text: "short text"}}

	res, err := h.idx.IngestPaper(context.Background(), src, PaperOptions{})
	require.NoError(t, err)

	assert.Equal(t, domain.Uncategorized, res.Topic)
	assert.False(t, res.Classified)
	assert.Equal(t, src, res.Path)
	assert.Empty(t, h.moves)
	require.Len(t, h.emb.calls, 1, "only the chunk embedding call")

	entries := h.papers.replaced["a.pdf"]
	require.Len(t, entries, 2)
	assert.Equal(t, 3, entries[0].Metadata.PageNumber)
	assert.Equal(t, domain.Uncategorized, entries[1].Metadata.Topic)
}

func TestIngestPaper_SingleCandidateAlwaysChosen(t *testing.T) {
	root := t.TempDir()
	src := touch(t, filepath.Join(root, "cooking.pdf"), []byte("%PDF"))

	h := newHarness(t, Config{Move: true}, nil)
	h.ext.pages["cooking.pdf"] = []domain.Page{{Number: 1, Text: "a recipe for soup"}}

	res, err := h.idx.IngestPaper(context.Background(), src, PaperOptions{Topics: []string{"SGG"}, Root: root})
	require.NoError(t, err)
	assert.Equal(t, "SGG", res.Topic)
	assert.Equal(t, filepath.Join(root, "SGG", "cooking.pdf"), res.Path)
}

func TestIngestPaper_SamePathIgnoringCaseIsNotMoved(t *testing.T) {
	root := t.TempDir()
	src := touch(t, filepath.Join(root, "sgg", "graph.pdf"), []byte("%PDF"))

	h := newHarness(t, Config{Move: true}, nil)
	h.ext.pages["graph.pdf"] = []domain.Page{{Number: 1, Text: "graph text"}}

	res, err := h.idx.IngestPaper(context.Background(), src, PaperOptions{Topics: []string{"SGG"}, Root: root})
	require.NoError(t, err)

	assert.Equal(t, src, res.Path)
	assert.NoError(t, res.RelocationErr)
	assert.FileExists(t, src)
	assert.Equal(t, src, h.papers.replaced["graph.pdf"][0].Metadata.Path)
}

func TestIngestPaper_RelocationFailureIsNonFatal(t *testing.T) {
	root := t.TempDir()
	src := touch(t, filepath.Join(root, "a.pdf"), []byte("%PDF"))

	failing := func(src, _, _ string) (string, error) {
		return src, domain.ErrRelocation
	}
	h := newHarness(t, Config{Move: true}, failing)
	h.ext.pages["a.pdf"] = []domain.Page{{Number: 1, Text: "policy gradients"}}

	res, err := h.idx.IngestPaper(context.Background(), src, PaperOptions{Topics: []string{"RL"}})
	require.NoError(t, err)

	assert.Equal(t, StateDone, res.State)
	assert.ErrorIs(t, res.RelocationErr, domain.ErrRelocation)
	assert.Equal(t, src, res.Path)
	assert.Equal(t, src, h.papers.replaced["a.pdf"][0].Metadata.Path)
	assert.Equal(t, "RL", h.papers.replaced["a.pdf"][0].Metadata.Topic)
}

func TestIngestPaper_SameNameInTopicFolderIsNotOverwritten(t *testing.T) {
	root := t.TempDir()
	first := touch(t, filepath.Join(root, "a", "paper.pdf"), []byte("%PDF first"))
	second := touch(t, filepath.Join(root, "b", "paper.pdf"), []byte("%PDF second"))

	h := newHarness(t, Config{Move: true}, nil)
	h.ext.pages["paper.pdf"] = []domain.Page{{Number: 1, Text: "scene graph"}}
	opts := PaperOptions{Topics: []string{"SGG", "RL"}, Root: root}

	res, err := h.idx.IngestPaper(context.Background(), first, opts)
	require.NoError(t, err)
	moved := filepath.Join(root, "SGG", "paper.pdf")
	assert.Equal(t, moved, res.Path)

	res, err = h.idx.IngestPaper(context.Background(), second, opts)
	require.NoError(t, err)
	assert.ErrorIs(t, res.RelocationErr, domain.ErrRelocation)
	assert.Equal(t, second, res.Path)

	data, err := os.ReadFile(moved)
	require.NoError(t, err)
	assert.Equal(t, "%PDF first", string(data))
	data, err = os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, "%PDF second", string(data))
}

func TestIngestPaper_MoveDisabled(t *testing.T) {
	root := t.TempDir()
	src := touch(t, filepath.Join(root, "a.pdf"), []byte("%PDF"))

	h := newHarness(t, Config{Move: false}, nil)
	h.ext.pages["a.pdf"] = []domain.Page{{Number: 1, Text: "graph"}}

	res, err := h.idx.IngestPaper(context.Background(), src, PaperOptions{Topics: []string{"SGG", "RL"}})
	require.NoError(t, err)
	assert.Equal(t, "SGG", res.Topic)
	assert.Equal(t, src, res.Path)
	assert.Empty(t, h.moves)
}

func TestIngestPaper_EmbeddingFailureWritesNothing(t *testing.T) {
	root := t.TempDir()
	src := touch(t, filepath.Join(root, "a.pdf"), []byte("%PDF"))

	h := newHarness(t, Config{Move: true}, nil)
	h.emb.err = domain.ErrEmbedding
	h.emb.failOn = 2
	h.ext.pages["a.pdf"] = []domain.Page{{Number: 1, Text: "graph"}}

	res, err := h.idx.IngestPaper(context.Background(), src, PaperOptions{Topics: []string{"SGG"}, Root: root})
	require.ErrorIs(t, err, domain.ErrEmbedding)
	assert.Equal(t, StateFailed, res.State)
	assert.Empty(t, h.papers.replaced)
	assert.Empty(t, h.moves, "relocation happens after embedding")
	assert.FileExists(t, src)
}

func TestIngestPaper_IndexWriteFailure(t *testing.T) {
	root := t.TempDir()
	src := touch(t, filepath.Join(root, "a.pdf"), []byte("%PDF"))

	h := newHarness(t, Config{}, nil)
	h.papers.err = errors.New("disk full")
	h.ext.pages["a.pdf"] = []domain.Page{{Number: 1, Text: "text"}}

	res, err := h.idx.IngestPaper(context.Background(), src, PaperOptions{})
	require.ErrorIs(t, err, domain.ErrIndexWrite)
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, "index-write", FailureReason(err))
}

func TestIngestPaper_ExtractionErrors(t *testing.T) {
	h := newHarness(t, Config{}, nil)

	_, err := h.idx.IngestPaper(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"), PaperOptions{})
	assert.ErrorIs(t, err, domain.ErrExtraction)

	src := touch(t, filepath.Join(t.TempDir(), "broken.pdf"), []byte("junk"))
	h.ext.err = domain.ErrExtraction
	res, err := h.idx.IngestPaper(context.Background(), src, PaperOptions{})
	assert.ErrorIs(t, err, domain.ErrExtraction)
	assert.Equal(t, StateFailed, res.State)
	assert.Empty(t, h.emb.calls)
}

func TestIngestPaper_ReportsReplacedLocation(t *testing.T) {
	root := t.TempDir()
	src := touch(t, filepath.Join(root, "a.pdf"), []byte("%PDF"))

	h := newHarness(t, Config{}, nil)
	h.papers.existing["a.pdf"] = store.DocumentSummary{Filename: "a.pdf", Path: "/elsewhere/a.pdf"}
	h.ext.pages["a.pdf"] = []domain.Page{{Number: 1, Text: "text"}}

	res, err := h.idx.IngestPaper(context.Background(), src, PaperOptions{})
	require.NoError(t, err)
	assert.Equal(t, "/elsewhere/a.pdf", res.PreviousPath)
}

func TestNew_RejectsBadChunking(t *testing.T) {
	_, err := New(Config{ChunkSize: 50, Overlap: 50}, Deps{Papers: newFakeCollection()})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func writePNG(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	require.NoError(t, f.Close())
	return path
}

func TestIngestImage(t *testing.T) {
	path := writePNG(t, filepath.Join(t.TempDir(), "cat.png"))
	h := newHarness(t, Config{}, nil)

	res, err := h.idx.IngestImage(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)

	require.Len(t, h.images.added, 1)
	e := h.images.added[0]
	assert.Equal(t, "cat.png", e.ID)
	assert.Equal(t, "cat.png", e.Document)
	assert.Equal(t, store.Metadata{Filename: "cat.png", Path: path}, e.Metadata)
}

func TestIngestFolder_ContinuesPastFailures(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "good.pdf"), []byte("%PDF-1.4\n"))
	touch(t, filepath.Join(root, "blank.pdf"), []byte("%PDF-1.4\n"))
	writePNG(t, filepath.Join(root, "figs", "cat.png"))
	touch(t, filepath.Join(root, "notes.txt"), []byte("hello"))

	h := newHarness(t, Config{Move: true}, nil)
	h.ext.pages["good.pdf"] = []domain.Page{{Number: 1, Text: "scene graph"}}

	var progress []int
	stats, err := h.idx.IngestFolder(context.Background(), root, FolderOptions{
		Topics:     []string{"SGG", "RL"},
		Recursive:  true,
		OnProgress: func(done, total int, _ string) { progress = append(progress, done) },
	})
	require.NoError(t, err)

	assert.NotEmpty(t, stats.RunID)
	assert.Equal(t, 4, stats.FilesTotal)
	assert.Equal(t, 1, stats.PapersIndexed)
	assert.Equal(t, 1, stats.PapersFailed)
	assert.Equal(t, 1, stats.ImagesIndexed)
	assert.Equal(t, 0, stats.ImagesFailed)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, []int{1, 2, 3, 4}, progress)

	require.Len(t, stats.Failures, 1)
	assert.Equal(t, "no-text", stats.Failures[0].Reason)
	assert.FileExists(t, filepath.Join(root, "SGG", "good.pdf"))
	assert.Contains(t, h.papers.replaced, "good.pdf")
	assert.Len(t, h.images.added, 1)
}

func TestIngestFolder_Cancelled(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.pdf"), []byte("%PDF-1.4\n"))
	h := newHarness(t, Config{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stats, err := h.idx.IngestFolder(ctx, root, FolderOptions{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats.PapersIndexed)
}

func TestIndexImages_FolderIsNotRecursive(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "a.png"))
	writePNG(t, filepath.Join(root, "nested", "b.png"))
	touch(t, filepath.Join(root, "paper.pdf"), []byte("%PDF-1.4\n"))

	h := newHarness(t, Config{}, nil)
	stats, err := h.idx.IndexImages(context.Background(), root, true)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.ImagesIndexed)
	assert.Equal(t, 1, stats.Skipped)
	assert.Empty(t, h.papers.replaced)
}

func TestIngestPaper_FailedPaperLeavesOtherModelsEntries(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(filepath.Join(t.TempDir(), "lib.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	papers, err := st.Collection(ctx, store.Papers, 3)
	require.NoError(t, err)
	_, err = papers.EnsureModel(ctx, "old-model")
	require.NoError(t, err)
	require.NoError(t, papers.Add(ctx, []store.Entry{{
		ID:        domain.ChunkEntryID("old.pdf", 0),
		Embedding: []float32{1, 0, 0},
		Metadata:  store.Metadata{Filename: "old.pdf", PageNumber: 1},
		Document:  "old text",
	}}))

	root := t.TempDir()
	ext := &fakeExtractor{pages: map[string][]domain.Page{
		"good.pdf": {{Number: 1, Text: "scene graph generation"}},
	}}
	emb := &fakeEmbedder{}
	idx, err := New(Config{ChunkSize: 100, Overlap: 10, TextModel: "new-model"}, Deps{
		Extractor:  ext,
		Text:       emb,
		Classifier: classify.New(emb, testTopics),
		Papers:     papers,
		Log:        logger.Discard(),
	})
	require.NoError(t, err)

	count := func() int {
		n, err := papers.Count(ctx)
		require.NoError(t, err)
		return n
	}

	scanned := touch(t, filepath.Join(root, "scanned.pdf"), []byte("%PDF-1.4"))
	_, err = idx.IngestPaper(ctx, scanned, PaperOptions{})
	require.ErrorIs(t, err, domain.ErrNoText)
	assert.Empty(t, emb.calls)
	assert.Equal(t, 1, count())

	good := touch(t, filepath.Join(root, "good.pdf"), []byte("%PDF-1.4"))
	emb.err = errors.New("connection refused")
	_, err = idx.IngestPaper(ctx, good, PaperOptions{})
	require.Error(t, err)
	assert.Equal(t, 1, count())
	model, err := papers.Model(ctx)
	require.NoError(t, err)
	assert.Equal(t, "old-model", model)

	// A paper that makes it to the write switches the collection over.
	emb.err = nil
	res, err := idx.IngestPaper(ctx, good, PaperOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Chunks)
	assert.Equal(t, 2, count())
	model, err = papers.Model(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new-model", model)
	_, found, err := papers.Lookup(ctx, "old.pdf")
	require.NoError(t, err)
	assert.False(t, found)
}
