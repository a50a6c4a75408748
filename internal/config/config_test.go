package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "OLLAMA_HOST", "VECTORSTORE_DIR", "UPLOADS_DIR"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaultsWhenMissing(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("default port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.RAG.ChunkSize != 500 || cfg.RAG.ChunkOverlap != 100 || cfg.RAG.TopK != 5 {
		t.Errorf("unexpected RAG defaults: %+v", cfg.RAG)
	}
	if cfg.Store.Type != StoreChromem {
		t.Errorf("default store type = %q, want %q", cfg.Store.Type, StoreChromem)
	}
	if cfg.ChatLLM.Temperature != 0.3 || cfg.ChatLLM.MaxTokens != 512 {
		t.Errorf("unexpected chat LLM defaults: %+v", cfg.ChatLLM)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: 9001
rag:
  chunk_size: 256
store:
  type: postgres
  postgres:
    dsn: postgres://localhost/test
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 9001 {
		t.Errorf("port = %d, want 9001", cfg.Server.Port)
	}
	if cfg.RAG.ChunkSize != 256 {
		t.Errorf("chunk_size = %d, want 256", cfg.RAG.ChunkSize)
	}
	// Unset fields still fall back to defaults.
	if cfg.RAG.TopK != 5 {
		t.Errorf("top_k = %d, want default 5", cfg.RAG.TopK)
	}
	if cfg.Store.Postgres.VectorSize != 768 {
		t.Errorf("vector_size = %d, want default 768", cfg.Store.Postgres.VectorSize)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7777")
	t.Setenv("OLLAMA_HOST", "http://ollama:11434")
	t.Setenv("VECTORSTORE_DIR", "/data/vectors")
	t.Setenv("UPLOADS_DIR", "/data/uploads")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("port = %d, want 7777", cfg.Server.Port)
	}
	if cfg.EmbedLLM.BaseURL != "http://ollama:11434" || cfg.ChatLLM.BaseURL != "http://ollama:11434" {
		t.Errorf("OLLAMA_HOST not applied: embed=%q chat=%q", cfg.EmbedLLM.BaseURL, cfg.ChatLLM.BaseURL)
	}
	if cfg.Store.Path != "/data/vectors" {
		t.Errorf("store path = %q", cfg.Store.Path)
	}
	if cfg.Server.UploadsDir != "/data/uploads" {
		t.Errorf("uploads dir = %q", cfg.Server.UploadsDir)
	}
}

func TestEnvOverrideInvalidPort(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for invalid PORT")
	}
}
