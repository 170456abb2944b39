package index

import (
	"errors"

	"docsift/internal/domain"
)

// State is a document's position in the ingestion pipeline.
type State int

const (
	StatePending State = iota
	StateExtracted
	StateChunked
	StateClassified
	StateEmbedded
	StateRelocated
	StateStored
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateExtracted:
		return "extracted"
	case StateChunked:
		return "chunked"
	case StateClassified:
		return "classified"
	case StateEmbedded:
		return "embedded"
	case StateRelocated:
		return "relocated"
	case StateStored:
		return "stored"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FailureReason maps a pipeline error to a short reason for reports.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrNoText):
		return "no-text"
	case errors.Is(err, domain.ErrExtraction):
		return "extraction"
	case errors.Is(err, domain.ErrUnsupportedType):
		return "unsupported"
	case errors.Is(err, domain.ErrConfiguration):
		return "configuration"
	case errors.Is(err, domain.ErrEmbedding):
		return "embedding"
	case errors.Is(err, domain.ErrIndexWrite):
		return "index-write"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid-input"
	default:
		return "error"
	}
}
