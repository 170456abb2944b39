package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsift/internal/domain"
)

func TestCollapsePages(t *testing.T) {
	raw := []string{
		"  Title\n\nof the   paper\t",
		"   \n\t  ",
		"",
		"third\r\npage",
	}

	pages := CollapsePages(raw)

	require.Len(t, pages, 2)
	assert.Equal(t, domain.Page{Number: 1, Text: "Title of the paper"}, pages[0])
	assert.Equal(t, domain.Page{Number: 4, Text: "third page"}, pages[1])
}

func TestCollapsePages_AllWhitespace(t *testing.T) {
	pages := CollapsePages([]string{" ", "\n\n", "\t"})
	assert.Empty(t, pages)
}

func TestCollapsePages_NoPages(t *testing.T) {
	assert.Empty(t, CollapsePages(nil))
}

func TestPDFExtractor_ReadsPagesInOrder(t *testing.T) {
	// testdata/three_pages.pdf: page 2 only draws spaces.
	pages, err := NewPDFExtractor().Extract(context.Background(), filepath.Join("testdata", "three_pages.pdf"))
	require.NoError(t, err)

	assert.Equal(t, []domain.Page{
		{Number: 1, Text: "Scene graphs in vision"},
		{Number: 3, Text: "Third page text"},
	}, pages)
}

func TestPDFExtractor_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPDFExtractor().Extract(ctx, filepath.Join("testdata", "three_pages.pdf"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPDFExtractor_MissingFile(t *testing.T) {
	_, err := NewPDFExtractor().Extract(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExtraction)
}

func TestPDFExtractor_NotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	require.NoError(t, os.WriteFile(path, []byte("this is not a pdf"), 0o644))

	pages, err := NewPDFExtractor().Extract(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExtraction)
	assert.Nil(t, pages)
}
