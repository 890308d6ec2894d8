package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"docsearch/internal/chunker"
	"docsearch/internal/config"
	"docsearch/internal/embedding"
	"docsearch/internal/generation"
	"docsearch/internal/rag"
	"docsearch/internal/server"
	"docsearch/internal/vectorstore"
	"docsearch/internal/vectorstore/chromemdb"
	"docsearch/internal/vectorstore/pgstore"
)

const shutdownTimeout = 10 * time.Second

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", "./configs/config.yaml", "Path to the config file")
	flag.Parse()

	// Secrets come from the environment; a .env file is optional.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	log.Debug().Interface("config", cfg).Msg("Loaded config")

	ctx := context.Background()

	var store vectorstore.Store
	switch cfg.Store.Type {
	case "postgres":
		pg, err := pgstore.New(ctx, cfg.Store.DSN, cfg.Store.Dimension, cfg.Store.Debug)
		if err != nil {
			log.Fatal().Err(err).Msg("Error connecting to Postgres store")
		}
		defer pg.Close()
		store = pg
	default:
		cs, err := chromemdb.New(cfg.Store.Path, cfg.Store.Collection)
		if err != nil {
			log.Fatal().Err(err).Msg("Error opening chromem store")
		}
		store = cs
	}

	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	var generator generation.Generator
	if cfg.Generation.Key != "" {
		generator, err = generation.NewOpenAI(cfg.Generation)
		if err != nil {
			log.Fatal().Err(err).Msg("Error initializing generation client")
		}
	} else {
		log.Warn().Str("env", cfg.Generation.KeyEnv).Msg("No generation credential set, answers use the local fallback")
	}

	ch, err := chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		log.Fatal().Err(err).Msg("Error configuring chunker")
	}

	svc := rag.NewService(ch, embedder, store, generator)

	gin.SetMode(gin.ReleaseMode)
	router := server.NewRouter(server.NewHandler(svc))

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Forced shutdown")
	}
	log.Info().Msg("Server stopped")
}
