package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"medichat-backend/internal/config"
	"medichat-backend/internal/core"
	"medichat-backend/internal/db"
	httpserver "medichat-backend/internal/http"
	"medichat-backend/internal/llm"
	"medichat-backend/internal/patient"
	"medichat-backend/internal/session"
	"medichat-backend/internal/vector"

	_ "github.com/lib/pq"
)

func main() {
	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL must be set")
	}

	// Open database connection
	dbConn, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbConn.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	if err := db.Migrate(context.Background(), dbConn); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	repo := db.NewRepository(dbConn)

	// OpenAI collaborator: chat, summaries and embeddings
	llmClient := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.ChatModel, cfg.SummaryModel, cfg.EmbedModel)

	index := vector.NewIndex(llmClient, vector.NewPostgresStore(dbConn))
	patients := patient.NewService(repo, index, llmClient)

	var store session.Store
	switch cfg.SessionBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(context.Background()).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("failed to ping redis")
		}
		store = session.NewRedisStore(client)
	default:
		store = session.NewMemoryStore()
	}

	processor := core.NewProcessor(store, llmClient, patients, cfg.MismatchPolicy, cfg.LLMTimeout)
	symptoms := core.NewSymptomChecker(llmClient)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: httpserver.NewServer(patients, processor, symptoms, cfg.VectorTopK),
	}

	g, gctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("session_backend", cfg.SessionBackend).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		select {
		case <-sig:
		case <-gctx.Done():
			return nil
		}
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
