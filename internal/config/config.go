package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Store backend selectors.
const (
	StoreChromem  = "chromem"
	StorePostgres = "postgres"
)

type ServerConfig struct {
	Port       int    `yaml:"port"`
	UploadsDir string `yaml:"uploads_dir"`
}

type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

type RAGConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	TopK         int `yaml:"top_k"`
}

type PostgresConfig struct {
	DSN        string `yaml:"dsn"`
	Password   string `yaml:"password"`
	VectorSize int    `yaml:"vector_size"`
	Debug      bool   `yaml:"debug"`
}

type StoreConfig struct {
	Type          string         `yaml:"type"`
	Path          string         `yaml:"path"`
	Collection    string         `yaml:"collection"`
	EncryptionKey string         `yaml:"encryption_key"`
	Postgres      PostgresConfig `yaml:"postgres"`
}

type Config struct {
	Server   ServerConfig `yaml:"server"`
	EmbedLLM LLMConfig    `yaml:"embed_llm"`
	ChatLLM  LLMConfig    `yaml:"chat_llm"`
	RAG      RAGConfig    `yaml:"rag"`
	Store    StoreConfig  `yaml:"store"`
}

// LoadConfig reads a config from path. A missing file yields defaults,
// so the server can run with nothing but environment variables.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:       8000,
			UploadsDir: "./uploads",
		},
		EmbedLLM: LLMConfig{
			BaseURL: "http://localhost:11434",
			Model:   "nomic-embed-text",
		},
		ChatLLM: LLMConfig{
			BaseURL:     "http://localhost:11434",
			Model:       "mistral:latest",
			Temperature: 0.3,
			MaxTokens:   512,
		},
		RAG: RAGConfig{
			ChunkSize:    500,
			ChunkOverlap: 100,
			TopK:         5,
		},
		Store: StoreConfig{
			Type:       StoreChromem,
			Path:       "./chromemdb",
			Collection: "documents",
			Postgres: PostgresConfig{
				VectorSize: 768,
			},
		},
	}
}

func applyDefaults(cfg *Config) {
	def := defaultConfig()
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.UploadsDir == "" {
		cfg.Server.UploadsDir = def.Server.UploadsDir
	}
	if cfg.EmbedLLM.BaseURL == "" {
		cfg.EmbedLLM.BaseURL = def.EmbedLLM.BaseURL
	}
	if cfg.EmbedLLM.Model == "" {
		cfg.EmbedLLM.Model = def.EmbedLLM.Model
	}
	if cfg.ChatLLM.BaseURL == "" {
		cfg.ChatLLM.BaseURL = def.ChatLLM.BaseURL
	}
	if cfg.ChatLLM.Model == "" {
		cfg.ChatLLM.Model = def.ChatLLM.Model
	}
	if cfg.ChatLLM.Temperature == 0 {
		cfg.ChatLLM.Temperature = def.ChatLLM.Temperature
	}
	if cfg.ChatLLM.MaxTokens == 0 {
		cfg.ChatLLM.MaxTokens = def.ChatLLM.MaxTokens
	}
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = def.RAG.ChunkSize
	}
	if cfg.RAG.ChunkOverlap == 0 {
		cfg.RAG.ChunkOverlap = def.RAG.ChunkOverlap
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = def.RAG.TopK
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = def.Store.Type
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = def.Store.Path
	}
	if cfg.Store.Collection == "" {
		cfg.Store.Collection = def.Store.Collection
	}
	if cfg.Store.Postgres.VectorSize == 0 {
		cfg.Store.Postgres.VectorSize = def.Store.Postgres.VectorSize
	}
}

// applyEnvOverrides maps the deployment environment onto the config:
// PORT, OLLAMA_HOST, VECTORSTORE_DIR and UPLOADS_DIR take precedence
// over the YAML file.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		cfg.EmbedLLM.BaseURL = v
		cfg.ChatLLM.BaseURL = v
	}
	if v := os.Getenv("VECTORSTORE_DIR"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("UPLOADS_DIR"); v != "" {
		cfg.Server.UploadsDir = v
	}
	return nil
}
