// Package extract reads page-ordered text out of PDF documents.
package extract

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"docsift/internal/domain"
)

// Extractor returns the non-empty pages of a document in reading order.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]domain.Page, error)
}

// PDFExtractor extracts plain text from PDF files.
type PDFExtractor struct{}

// NewPDFExtractor creates a PDF text extractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

var _ Extractor = (*PDFExtractor)(nil)

// Extract reads every page of the PDF at path. Whitespace is collapsed and
// blank pages are dropped, so page numbers in the result may have gaps.
// A document without any text yields an empty slice and a nil error.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (pages []domain.Page, err error) {
	if _, statErr := os.Stat(path); statErr != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrExtraction, path, statErr)
	}

	// The pdf package panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: %s: malformed pdf: %v", domain.ErrExtraction, path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrExtraction, path, err)
	}
	defer f.Close()

	raw := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			raw = append(raw, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %s page %d: %v", domain.ErrExtraction, path, i, err)
		}
		raw = append(raw, text)
	}

	return CollapsePages(raw), nil
}

// CollapsePages turns raw per-page text (index 0 is page 1) into Pages with
// single-space whitespace, skipping pages that end up empty.
func CollapsePages(raw []string) []domain.Page {
	pages := make([]domain.Page, 0, len(raw))
	for i, text := range raw {
		collapsed := strings.Join(strings.Fields(text), " ")
		if collapsed == "" {
			continue
		}
		pages = append(pages, domain.Page{Number: i + 1, Text: collapsed})
	}
	return pages
}
