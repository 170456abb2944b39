package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsift/internal/index"
	"docsift/internal/retrieval"
	"docsift/internal/store"
)

type fakeRuntime struct {
	papers   []retrieval.Result
	images   []retrieval.Result
	docs     []store.DocumentSummary
	lastK    int
	topic    string
	ingested index.PaperOptions
	err      error
}

func (f *fakeRuntime) SearchPapers(_ context.Context, _ string, k int) ([]retrieval.Result, error) {
	f.lastK = k
	return f.papers, f.err
}

func (f *fakeRuntime) SearchImages(_ context.Context, _ string, k int) ([]retrieval.Result, error) {
	f.lastK = k
	return f.images, f.err
}

func (f *fakeRuntime) Documents(_ context.Context, topic string) ([]store.DocumentSummary, error) {
	f.topic = topic
	return f.docs, f.err
}

func (f *fakeRuntime) IngestPaper(_ context.Context, path string, opts index.PaperOptions) (*index.PaperResult, error) {
	f.ingested = opts
	if f.err != nil {
		return &index.PaperResult{}, f.err
	}
	return &index.PaperResult{Filename: "p.pdf", Topic: "SGG", Score: 0.8, Chunks: 3, Path: "/lib/SGG/p.pdf"}, nil
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestSearchPapersHandler(t *testing.T) {
	f := &fakeRuntime{papers: []retrieval.Result{
		{Filename: "a.pdf", PageNumber: 2, Topic: "RL", Score: 0.9, Text: "policy gradients"},
		{Filename: "a.pdf", PageNumber: 1, Topic: "RL", Score: 0.7, Text: "summary", IsSummary: true},
	}}
	h := makeSearchPapersHandler(f)

	res, err := h(context.Background(), call(map[string]any{"query": "policy"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Zero(t, f.lastK, "omitted k defers to the configured top-k")

	out := text(t, res)
	assert.Contains(t, out, "Result 1: `a.pdf`")
	assert.Contains(t, out, "**Page:** 2")
	assert.Contains(t, out, "[SUMMARY MATCH]")

	res, err = h(context.Background(), call(map[string]any{"query": "x", "k": float64(2)}))
	require.NoError(t, err)
	assert.Equal(t, 2, f.lastK)
	assert.False(t, res.IsError)
}

func TestSearchHandlers_RejectEmptyQuery(t *testing.T) {
	f := &fakeRuntime{}
	for _, h := range []func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		makeSearchPapersHandler(f), makeSearchImagesHandler(f),
	} {
		res, err := h(context.Background(), call(map[string]any{"query": "  "}))
		require.NoError(t, err)
		assert.True(t, res.IsError)
	}
}

func TestSearchImagesHandler_ReportsErrors(t *testing.T) {
	f := &fakeRuntime{err: errors.New("clip down")}
	res, err := makeSearchImagesHandler(f)(context.Background(), call(map[string]any{"query": "cat"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "clip down")
	assert.Zero(t, f.lastK)
}

func TestListPapersHandler(t *testing.T) {
	f := &fakeRuntime{docs: []store.DocumentSummary{{Filename: "a.pdf", Topic: "SGG", Chunks: 4, Path: "/lib/SGG/a.pdf"}}}
	res, err := makeListPapersHandler(f)(context.Background(), call(map[string]any{"topic": "sgg"}))
	require.NoError(t, err)
	assert.Equal(t, "sgg", f.topic)
	out := text(t, res)
	assert.Contains(t, out, "Indexed papers (1, topic: sgg)")
	assert.Contains(t, out, "**a.pdf** (SGG, 4 chunks)")
}

func TestIngestPaperHandler_Topics(t *testing.T) {
	f := &fakeRuntime{}
	h := makeIngestPaperHandler(f, "/lib")

	res, err := h(context.Background(), call(map[string]any{"path": "/in/p.pdf"}))
	require.NoError(t, err)
	assert.Nil(t, f.ingested.Topics, "omitted topics use configured candidates")
	assert.Equal(t, "/lib", f.ingested.Root)
	assert.Contains(t, text(t, res), "**Topic:** SGG")

	_, err = h(context.Background(), call(map[string]any{"path": "/in/p.pdf", "topics": "", "root": "/other"}))
	require.NoError(t, err)
	assert.NotNil(t, f.ingested.Topics)
	assert.Empty(t, f.ingested.Topics, "explicit empty topics disable classification")
	assert.Equal(t, "/other", f.ingested.Root)

	_, err = h(context.Background(), call(map[string]any{"path": "/in/p.pdf", "topics": "SGG, RL"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"SGG", "RL"}, f.ingested.Topics)
}

func TestIngestPaperHandler_Errors(t *testing.T) {
	f := &fakeRuntime{err: errors.New("no extractable text")}
	h := makeIngestPaperHandler(f, "")

	res, err := h(context.Background(), call(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = h(context.Background(), call(map[string]any{"path": "x.pdf"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "no extractable text")
}
