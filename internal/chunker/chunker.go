// Package chunker splits extracted pages into overlapping, page-tagged
// chunks and builds the summary text used for classification.
package chunker

import (
	"fmt"
	"strings"

	"docsift/internal/domain"
)

// Default window parameters, in characters.
const (
	DefaultChunkSize = 500
	DefaultOverlap   = 50
)

// Default summary parameters.
const (
	DefaultSummaryPages    = 2
	DefaultSummaryMaxChars = 2000
)

// Validate reports whether size and overlap describe a window that advances.
func Validate(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrConfiguration, size)
	}
	if overlap < 0 {
		return fmt.Errorf("%w: chunk overlap must not be negative, got %d", domain.ErrConfiguration, overlap)
	}
	if overlap >= size {
		return fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", domain.ErrConfiguration, overlap, size)
	}
	return nil
}

// Chunk slices each page with a window of size characters that advances by
// size-overlap. Pages no longer than size become a single chunk. ChunkIDs
// run from 0 across the whole document.
func Chunk(pages []domain.Page, size, overlap int) ([]domain.Chunk, error) {
	if err := Validate(size, overlap); err != nil {
		return nil, err
	}

	step := size - overlap
	var chunks []domain.Chunk
	next := 0

	for _, p := range pages {
		text := []rune(p.Text)
		if len(text) <= size {
			chunks = append(chunks, domain.Chunk{
				Text:       p.Text,
				PageNumber: p.Number,
				ChunkID:    next,
			})
			next++
			continue
		}

		for start := 0; start < len(text); start += step {
			end := min(start+size, len(text))
			chunks = append(chunks, domain.Chunk{
				Text:       string(text[start:end]),
				PageNumber: p.Number,
				ChunkID:    next,
			})
			next++
		}
	}

	return chunks, nil
}

// Summarize joins the text of the first maxPages pages with single spaces and
// truncates the result to maxChars characters.
func Summarize(pages []domain.Page, maxPages, maxChars int) string {
	maxPages = max(maxPages, 0)
	maxChars = max(maxChars, 0)
	if maxPages > len(pages) {
		maxPages = len(pages)
	}
	parts := make([]string, 0, maxPages)
	for _, p := range pages[:maxPages] {
		parts = append(parts, p.Text)
	}
	summary := []rune(strings.Join(parts, " "))
	if len(summary) > maxChars {
		summary = summary[:maxChars]
	}
	return string(summary)
}

// SummaryChunk wraps summary text as the document's summary chunk. It is
// tagged with the first extracted page and is not part of the chunk
// sequence.
func SummaryChunk(pages []domain.Page, text string) domain.Chunk {
	page := 1
	if len(pages) > 0 {
		page = pages[0].Number
	}
	return domain.Chunk{
		Text:       text,
		PageNumber: page,
		IsSummary:  true,
	}
}
