package store

import (
	"context"

	"docqa/internal/models"
)

// SearchResult is a retrieved chunk with its similarity to the query.
type SearchResult struct {
	Content        string
	SourceFilename string
	PageNumber     int
	ChunkID        int
	Similarity     float32
}

// Store holds the active document corpus. There is exactly one corpus
// at a time: Replace swaps it wholesale, so answers never mix chunks
// from different uploads.
type Store interface {
	// Replace discards the current corpus and stores docs in its place.
	Replace(ctx context.Context, docs []models.ChunkEmbedding) error
	// Search returns the k chunks most similar to queryEmbedding,
	// most similar first. k larger than the corpus is not an error.
	Search(ctx context.Context, queryEmbedding []float32, k int) ([]SearchResult, error)
	// Count reports the number of chunks in the corpus.
	Count(ctx context.Context) (int, error)
}
