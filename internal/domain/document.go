package domain

import "strconv"

// Metadata keys carried by documents, chunks and store entries.
const (
	MetadataSource         = "source"
	MetadataStartIndex     = "start_index"
	MetadataEmbeddingModel = "embedding_model"
)

// Document is the raw text of one input file.
type Document struct {
	Content  string
	Metadata map[string]string
}

// Source returns the file path the document was loaded from.
func (d Document) Source() string {
	return d.Metadata[MetadataSource]
}

// Chunk is a span of a document's content. StartIndex is a rune offset
// into the parent document, or -1 when the span could not be located.
type Chunk struct {
	Content    string
	StartIndex int
	Metadata   map[string]string
}

// EntryMetadata returns the metadata persisted alongside the chunk.
func (c Chunk) EntryMetadata() map[string]string {
	m := make(map[string]string, len(c.Metadata)+1)
	for k, v := range c.Metadata {
		m[k] = v
	}
	m[MetadataStartIndex] = strconv.Itoa(c.StartIndex)
	return m
}

// StoreEntry is one persisted row of the vector store.
type StoreEntry struct {
	ID        string
	Content   string
	Embedding []float32
	Metadata  map[string]string
}

// QueryResult is a retrieved entry with its relevance score in [0,1].
type QueryResult struct {
	ID       string
	Content  string
	Metadata map[string]string
	Score    float64
}

// Source returns the result's source path and whether one was recorded.
func (r QueryResult) Source() (string, bool) {
	if r.Metadata == nil {
		return "", false
	}
	s, ok := r.Metadata[MetadataSource]
	return s, ok
}

// Answer is the output of the query pipeline. A nil element of Sources
// means the retrieved chunk carried no source metadata.
type Answer struct {
	Response string    `json:"response"`
	Sources  []*string `json:"sources"`
}

// NewAnswer builds an Answer whose Sources is never nil.
func NewAnswer(response string, sources []*string) *Answer {
	if sources == nil {
		sources = []*string{}
	}
	return &Answer{Response: response, Sources: sources}
}
