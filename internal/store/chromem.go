package store

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"docqa/internal/models"
)

const compress = false

// ChromemStore persists the corpus in a chromem-go database on disk.
type ChromemStore struct {
	mu            sync.Mutex
	db            *chromem.DB
	collection    *chromem.Collection
	name          string
	dbPath        string
	encryptionKey string
}

// NewChromemStore opens (or creates) a persistent chromem database at
// dbPath and binds the named collection. inMemory is for tests.
func NewChromemStore(dbPath, collectionName string, inMemory bool, encryptionKey string) (*ChromemStore, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
	}

	s := &ChromemStore{
		db:            db,
		name:          collectionName,
		dbPath:        dbPath,
		encryptionKey: encryptionKey,
	}
	c, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %v", err)
	}
	s.collection = c
	return s, nil
}

// Replace drops the collection and recreates it with docs.
func (s *ChromemStore) Replace(ctx context.Context, docs []models.ChunkEmbedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DeleteCollection(s.name); err != nil {
		return fmt.Errorf("failed to drop collection: %v", err)
	}
	c, err := s.db.GetOrCreateCollection(s.name, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to create/get collection: %v", err)
	}
	s.collection = c

	if len(docs) == 0 {
		return nil
	}

	chromemDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		chromemDocs[i] = chromem.Document{
			ID:        fmt.Sprintf("%s-%d-%d", doc.SourceFilename, doc.PageNumber, doc.ChunkID),
			Content:   doc.Content,
			Embedding: doc.Embedding,
			Metadata: map[string]string{
				"source": doc.SourceFilename,
				"page":   strconv.Itoa(doc.PageNumber),
				"chunk":  strconv.Itoa(doc.ChunkID),
			},
		}
	}

	if err := c.AddDocuments(ctx, chromemDocs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %v", err)
	}
	return nil
}

// Search performs a similarity query. chromem rejects result counts
// above the collection size, so k is clamped first.
func (s *ChromemStore) Search(ctx context.Context, queryEmbedding []float32, k int) ([]SearchResult, error) {
	if queryEmbedding == nil {
		return nil, fmt.Errorf("query embedding must be provided")
	}

	s.mu.Lock()
	c := s.collection
	s.mu.Unlock()

	count := c.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := c.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: queryEmbedding,
		NResults:       k,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	out := make([]SearchResult, len(results))
	for i, r := range results {
		page, _ := strconv.Atoi(r.Metadata["page"])
		chunk, _ := strconv.Atoi(r.Metadata["chunk"])
		out[i] = SearchResult{
			Content:        r.Content,
			SourceFilename: r.Metadata["source"],
			PageNumber:     page,
			ChunkID:        chunk,
			Similarity:     r.Similarity,
		}
	}
	return out, nil
}

func (s *ChromemStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collection.Count(), nil
}

// Export writes an encrypted snapshot of the collection next to the
// database directory. Requires an encryption key.
func (s *ChromemStore) Export(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.encryptionKey == "" {
		return fmt.Errorf("encryption key is required")
	}
	filePath := filepath.Join(s.dbPath, s.name+".chromem")
	log.Debug().Str("collection", s.name).Str("file", filePath).Msg("Exporting collection")
	if err := s.db.ExportToFile(filePath, compress, s.encryptionKey, s.name); err != nil {
		return fmt.Errorf("failed to export database: %v", err)
	}
	return nil
}
