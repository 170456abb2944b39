// Package domain holds the types shared by the ingestion and retrieval
// pipelines.
package domain

import "fmt"

// Uncategorized is the topic of a document that was not classified.
const Uncategorized = "Uncategorized"

// Page is the collapsed text of one document page. Number starts at 1.
type Page struct {
	Number int
	Text   string
}

// Chunk is a bounded slice of a document's text. PageNumber is the page the
// chunk begins on; ChunkID is the document-wide order.
type Chunk struct {
	Text       string
	PageNumber int
	ChunkID    int
	IsSummary  bool
}

// Document is a PDF after chunking and classification.
type Document struct {
	Filename   string
	SourcePath string
	Topic      string
	Chunks     []Chunk
	Summary    Chunk
}

// ChunkEntryID returns the index id of a regular chunk.
func ChunkEntryID(filename string, chunkID int) string {
	return fmt.Sprintf("%s_chunk_%d", filename, chunkID)
}

// SummaryEntryID returns the index id of a document's summary chunk.
func SummaryEntryID(filename string) string {
	return filename + "_summary"
}
