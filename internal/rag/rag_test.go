package rag

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"docqa/internal/config"
	"docqa/internal/models"
	"docqa/internal/parser"
	"docqa/internal/store"
)

type fakeEmbedder struct {
	embedErr error
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 1, 0}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

type fakeStore struct {
	docs      []models.ChunkEmbedding
	searchErr error
}

func (f *fakeStore) Replace(ctx context.Context, docs []models.ChunkEmbedding) error {
	f.docs = docs
	return nil
}

func (f *fakeStore) Search(ctx context.Context, queryEmbedding []float32, k int) ([]store.SearchResult, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if k > len(f.docs) {
		k = len(f.docs)
	}
	out := make([]store.SearchResult, k)
	for i := 0; i < k; i++ {
		out[i] = store.SearchResult{
			Content:        f.docs[i].Content,
			SourceFilename: f.docs[i].SourceFilename,
			PageNumber:     f.docs[i].PageNumber,
			ChunkID:        f.docs[i].ChunkID,
		}
	}
	return out, nil
}

func (f *fakeStore) Count(ctx context.Context) (int, error) {
	return len(f.docs), nil
}

type fakeGenerator struct {
	tokens     []string
	err        error
	lastPrompt string
}

func (f *fakeGenerator) Stream(ctx context.Context, prompt string, onToken func(string) error) (string, error) {
	f.lastPrompt = prompt
	var full strings.Builder
	for _, token := range f.tokens {
		if err := onToken(token); err != nil {
			return "", err
		}
		full.WriteString(token)
	}
	if f.err != nil {
		return "", f.err
	}
	return full.String(), nil
}

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestRAG(st store.Store, gen TokenStreamer) *RAG {
	cfg := &config.RAGConfig{ChunkSize: 500, ChunkOverlap: 100, TopK: 5}
	return New(parser.New(cfg), &fakeEmbedder{}, st, gen, cfg)
}

func TestAskBeforeIngest(t *testing.T) {
	r := newTestRAG(&fakeStore{}, &fakeGenerator{})
	_, err := r.AskStream(context.Background(), "anything?", func(string) error { return nil })
	if !errors.Is(err, ErrNoDocument) {
		t.Fatalf("expected ErrNoDocument, got %v", err)
	}
	if r.Ready() {
		t.Fatal("pipeline must not be ready before ingest")
	}
}

func TestProcessDocumentAndAsk(t *testing.T) {
	st := &fakeStore{}
	gen := &fakeGenerator{tokens: []string{"Paris ", "is ", "the ", "capital."}}
	r := newTestRAG(st, gen)

	path := writeDoc(t, "france.txt", "The capital of France is Paris.")
	chunks, err := r.ProcessDocument(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessDocument: %v", err)
	}
	if chunks != 1 {
		t.Fatalf("chunks = %d, want 1", chunks)
	}
	if !r.Ready() {
		t.Fatal("pipeline should be ready after ingest")
	}
	if st.docs[0].SourceFilename != "france.txt" {
		t.Fatalf("provenance = %q, want file base name", st.docs[0].SourceFilename)
	}

	var got strings.Builder
	sources, err := r.AskStream(context.Background(), "What is the capital of France?", func(token string) error {
		got.WriteString(token)
		return nil
	})
	if err != nil {
		t.Fatalf("AskStream: %v", err)
	}

	if got.String() != "Paris is the capital." {
		t.Fatalf("token concatenation = %q", got.String())
	}
	if len(sources) != 1 || sources[0].Source != "france.txt" {
		t.Fatalf("unexpected sources: %+v", sources)
	}
	if !strings.Contains(gen.lastPrompt, "The capital of France is Paris.") {
		t.Fatal("prompt missing retrieved context")
	}
	if !strings.Contains(gen.lastPrompt, "What is the capital of France?") {
		t.Fatal("prompt missing question")
	}
}

func TestSecondUploadReplacesCitations(t *testing.T) {
	st := &fakeStore{}
	r := newTestRAG(st, &fakeGenerator{tokens: []string{"ok"}})

	first := writeDoc(t, "first.txt", "Alpha document content.")
	if _, err := r.ProcessDocument(context.Background(), first); err != nil {
		t.Fatal(err)
	}
	second := writeDoc(t, "second.txt", "Beta document content.")
	if _, err := r.ProcessDocument(context.Background(), second); err != nil {
		t.Fatal(err)
	}

	sources, err := r.AskStream(context.Background(), "what?", func(string) error { return nil })
	if err != nil {
		t.Fatal(err)
	}
	for _, src := range sources {
		if src.Source != "second.txt" {
			t.Fatalf("citation from stale corpus: %+v", src)
		}
	}
}

func TestProcessDocumentUnsupported(t *testing.T) {
	r := newTestRAG(&fakeStore{}, &fakeGenerator{})
	_, err := r.ProcessDocument(context.Background(), writeDoc(t, "binary.bin", "junk"))
	if !errors.Is(err, parser.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if r.Ready() {
		t.Fatal("failed ingest must not mark the pipeline ready")
	}
}

func TestAskStreamGenerationError(t *testing.T) {
	st := &fakeStore{}
	gen := &fakeGenerator{tokens: []string{"partial "}, err: errors.New("model unreachable")}
	r := newTestRAG(st, gen)

	if _, err := r.ProcessDocument(context.Background(), writeDoc(t, "doc.txt", "content")); err != nil {
		t.Fatal(err)
	}

	_, err := r.AskStream(context.Background(), "question?", func(string) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "model unreachable") {
		t.Fatalf("expected generation error, got %v", err)
	}
}

func TestAskStreamTokenCallbackError(t *testing.T) {
	st := &fakeStore{}
	gen := &fakeGenerator{tokens: []string{"a", "b"}}
	r := newTestRAG(st, gen)

	if _, err := r.ProcessDocument(context.Background(), writeDoc(t, "doc.txt", "content")); err != nil {
		t.Fatal(err)
	}

	// A failing callback (e.g. client disconnect) aborts generation.
	stop := errors.New("client gone")
	_, err := r.AskStream(context.Background(), "question?", func(string) error { return stop })
	if err == nil || !errors.Is(err, stop) {
		t.Fatalf("expected callback error to propagate, got %v", err)
	}
}
