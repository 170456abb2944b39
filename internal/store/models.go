package store

// Collection names.
const (
	Papers = "papers"
	Images = "images"
)

// Metadata is stored alongside every entry.
type Metadata struct {
	Filename   string
	Path       string
	PageNumber int
	Topic      string
	IsSummary  bool
}

// Entry is one vector with its metadata and source text.
type Entry struct {
	ID        string
	Embedding []float32
	Metadata  Metadata
	Document  string
}

// Hit is an entry returned by a nearest-neighbour query.
type Hit struct {
	ID       string
	Document string
	Metadata Metadata
	Distance float64
}

// DocumentSummary aggregates the entries of one indexed file.
type DocumentSummary struct {
	Filename string
	Path     string
	Topic    string
	Chunks   int
}
