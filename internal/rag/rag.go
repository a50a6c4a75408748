package rag

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"docqa/internal/config"
	"docqa/internal/embedding"
	"docqa/internal/models"
	"docqa/internal/parser"
	"docqa/internal/store"
)

// ErrNoDocument is returned when a question arrives before any
// document has been successfully ingested in this process.
var ErrNoDocument = errors.New("no document loaded")

// TokenStreamer produces a completion for a prompt, emitting fragments
// through the callback as they are generated.
type TokenStreamer interface {
	Stream(ctx context.Context, prompt string, onToken func(string) error) (string, error)
}

// RAG orchestrates the ingest and ask paths: parse → embed → store on
// upload, retrieve → prompt → generate → cite on a question.
//
// Ingestion takes the write lock and questions take the read lock, so
// an upload can never swap the corpus under an in-flight question.
// Last successful upload wins.
type RAG struct {
	parser   *parser.Parser
	embedder embeddings.Embedder
	store    store.Store
	gen      TokenStreamer
	topK     int

	mu    sync.RWMutex
	ready bool
}

func New(p *parser.Parser, embedder embeddings.Embedder, st store.Store, gen TokenStreamer, cfg *config.RAGConfig) *RAG {
	topK := 5
	if cfg != nil && cfg.TopK > 0 {
		topK = cfg.TopK
	}
	return &RAG{
		parser:   p,
		embedder: embedder,
		store:    st,
		gen:      gen,
		topK:     topK,
	}
}

// ProcessDocument extracts, splits, embeds and stores the file at
// filePath, replacing any previously ingested corpus. It returns the
// number of stored chunks.
func (r *RAG) ProcessDocument(ctx context.Context, filePath string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	chunks, err := r.parser.Parse(filePath)
	if err != nil {
		return 0, err
	}
	log.Info().Str("file", filePath).Int("chunks", len(chunks)).Msg("Document split")

	filename := filepath.Base(filePath)
	chunkEmbeddings, err := embedding.GenerateEmbeddings(ctx, r.embedder, filename, chunks)
	if err != nil {
		return 0, fmt.Errorf("embedding document: %w", err)
	}

	if err := r.store.Replace(ctx, chunkEmbeddings); err != nil {
		return 0, fmt.Errorf("storing document: %w", err)
	}

	r.ready = true
	return len(chunkEmbeddings), nil
}

// Ready reports whether a document has been ingested in this process.
func (r *RAG) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ready
}

// AskStream answers question from the active corpus. Tokens are pushed
// through onToken in generation order; the chunks that grounded the
// prompt are returned as citations once generation completes.
func (r *RAG) AskStream(ctx context.Context, question string, onToken func(string) error) ([]models.Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.ready {
		return nil, ErrNoDocument
	}

	queryEmbedding, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	results, err := r.store.Search(ctx, queryEmbedding, r.topK)
	if err != nil {
		return nil, fmt.Errorf("searching corpus: %w", err)
	}

	prompt := buildPrompt(question, results)

	if _, err := r.gen.Stream(ctx, prompt, onToken); err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	sources := make([]models.Source, len(results))
	for i, res := range results {
		sources[i] = models.Source{
			Source:  res.SourceFilename,
			Content: res.Content,
		}
	}
	return sources, nil
}

func buildPrompt(question string, results []store.SearchResult) string {
	var context strings.Builder
	for i, res := range results {
		if i > 0 {
			context.WriteString("\n\n")
		}
		context.WriteString(res.Content)
	}
	return fmt.Sprintf(models.QAPromptTemplate, context.String(), question)
}
