package models

// Chunk represents a parsed chunk with metadata
type Chunk struct {
	Content    string
	PageNumber int
	ChunkID    int
}

// ChunkEmbedding pairs a chunk with its embedding vector and provenance
type ChunkEmbedding struct {
	Content        string
	Embedding      []float32
	SourceFilename string
	PageNumber     int
	ChunkID        int
}

// Source is a cited chunk returned alongside a generated answer
type Source struct {
	Source  string `json:"source"`
	Content string `json:"content"`
}
