package domain

import "errors"

// Pipeline errors. Callers wrap them with context and match with errors.Is.
var (
	// ErrExtraction indicates a source file could not be opened or parsed.
	ErrExtraction = errors.New("extraction failed")

	// ErrNoText indicates a document parsed fine but has no extractable text
	// (for example a scanned PDF without an OCR layer).
	ErrNoText = errors.New("no extractable text")

	// ErrConfiguration indicates invalid parameters, such as a chunk overlap
	// that is not smaller than the chunk size, or a query against a collection
	// built with a different embedding model.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrEmbedding indicates the embedding provider failed.
	ErrEmbedding = errors.New("embedding provider failed")

	// ErrRelocation indicates a classified file could not be moved.
	// It is never fatal to indexing.
	ErrRelocation = errors.New("relocation failed")

	// ErrIndexWrite indicates entries could not be written to the vector index.
	ErrIndexWrite = errors.New("index write failed")

	// ErrInvalidInput indicates malformed caller input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a file kind the pipeline does not handle.
	ErrUnsupportedType = errors.New("unsupported type")
)
