package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"docqa/internal/config"
	"docqa/internal/embedding"
	"docqa/internal/helper"
	"docqa/internal/llm"
	"docqa/internal/parser"
	"docqa/internal/rag"
	"docqa/internal/server"
	"docqa/internal/store"
)

const defaultConfigPath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", defaultConfigPath, "Path to the config file")
	flag.Parse()

	// Optional .env for local development; real deployments set the
	// environment directly.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Error loading .env file")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	log.Debug().Interface("config", cfg).Msg("Loaded config")

	if err := helper.CreateFolder(cfg.Server.UploadsDir); err != nil {
		log.Fatal().Err(err).Msg("Error creating uploads folder")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	embedder, err := embedding.NewOllamaEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	generator, err := llm.NewOllamaGenerator(&cfg.ChatLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing generator")
	}

	var vectorStore store.Store
	var chromemStore *store.ChromemStore
	switch cfg.Store.Type {
	case config.StoreChromem:
		if err := helper.CreateFolder(cfg.Store.Path); err != nil {
			log.Fatal().Err(err).Msg("Error creating vector store folder")
		}
		chromemStore, err = store.NewChromemStore(cfg.Store.Path, cfg.Store.Collection, false, cfg.Store.EncryptionKey)
		if err != nil {
			log.Fatal().Err(err).Msg("Error creating vector store")
		}
		vectorStore = chromemStore
	case config.StorePostgres:
		pgStore, err := store.NewPostgresStore(ctx, &cfg.Store.Postgres)
		if err != nil {
			log.Fatal().Err(err).Msg("Error connecting to database")
		}
		defer pgStore.Close()
		vectorStore = pgStore
	default:
		log.Fatal().Str("type", cfg.Store.Type).Msg("Unknown store type")
	}

	pipeline := rag.New(parser.New(&cfg.RAG), embedder, vectorStore, generator, &cfg.RAG)

	srv := server.New(pipeline, cfg.Server.UploadsDir, cfg.Server.Port)
	if err := srv.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}

	// Encrypted corpus snapshot on clean shutdown, when configured.
	if chromemStore != nil && cfg.Store.EncryptionKey != "" {
		if err := chromemStore.Export(context.Background()); err != nil {
			log.Error().Err(err).Msg("Error exporting collection")
		}
	}
}
