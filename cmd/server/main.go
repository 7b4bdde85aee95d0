package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"listingsearch/internal/config"
	"listingsearch/internal/handler"
	"listingsearch/internal/observability"
	"listingsearch/internal/repository"
	"listingsearch/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("listing search starting",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)
	for _, w := range cfg.Warnings {
		logger.Warn("configuration value ignored", zap.String("detail", w))
	}

	gin.SetMode(cfg.Server.GinMode)

	// Database backend; connections open on first query
	backend, err := repository.New(cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to create database backend", zap.Error(err))
	}
	defer backend.Close()

	var guard *repository.StatementGuard
	if cfg.Search.SQLGuard {
		guard = repository.NewStatementGuard(repository.SchemaTables...)
	}
	executor := repository.NewExecutor(backend, guard, time.Duration(cfg.Database.Timeout)*time.Second, logger)

	logger.Info("database backend configured",
		zap.String("backend", backend.Name()),
		zap.String("dialect", string(backend.Dialect())),
		zap.Bool("sql_guard", guard != nil),
	)

	generator, err := newGenerator(cfg.Generation)
	if err != nil {
		logger.Fatal("failed to create text-generation client", zap.Error(err))
	}
	logger.Info("text-generation client initialized",
		zap.String("provider", generator.Name()),
		zap.String("model", cfg.Generation.Model),
		zap.String("api_base", cfg.Generation.APIBase),
	)

	// Initialize services
	prompt := service.BuildPrompt(service.DescribeSchema(service.Schema), backend.Dialect())
	synthesizer := service.NewSQLSynthesizer(generator, prompt, time.Duration(cfg.Generation.Timeout)*time.Second, logger)
	normalizer := service.NewNormalizer(cfg.Search.PlaceholderImage)
	media := service.NewMediaResolver(cfg.Media, logger)
	searchService := service.NewSearchService(synthesizer, executor, normalizer, media,
		service.SearchOptions{ExposeSQL: cfg.Search.ExposeSQL}, logger)

	routes := handler.Routes{
		Search:         handler.NewSearchHandler(searchService),
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}

	var similarityReady func() bool
	if cfg.Similarity.Enabled {
		similarity, closeIndex, err := newSimilarityService(context.Background(), cfg, executor, normalizer, logger)
		if err != nil {
			logger.Fatal("failed to create similarity service", zap.Error(err))
		}
		defer closeIndex()

		routes.Similarity = handler.NewSimilarityHandler(similarity, 50)
		similarityReady = similarity.IsReady

		// Warm the index in the background; requests build it on demand otherwise
		go func() {
			if err := similarity.Initialize(context.Background()); err != nil {
				logger.Warn("similarity index warm-up failed", zap.Error(err))
			}
		}()
	} else {
		logger.Info("similarity search disabled")
	}

	routes.Health = handler.NewHealthHandler(backend.Name(), backend.Dialect(), similarityReady, handler.BuildInfo{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
	})

	router := handler.NewRouter(routes, logger)
	setupStaticFiles(router, cfg.Server.StaticDir, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		logger.Info("starting server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newGenerator(cfg config.GenerationConfig) (service.Generator, error) {
	switch cfg.Provider {
	case "openai":
		return service.NewOpenAIClient(service.OpenAIOptions{
			APIKey:      cfg.APIKey,
			APIBase:     cfg.APIBase,
			ChatModel:   cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}), nil
	case "ollama":
		return service.NewOllamaClient(cfg.APIBase, cfg.Model, cfg.Temperature, cfg.Timeout)
	default:
		return service.NewGeminiClient(cfg), nil
	}
}

func newSimilarityService(
	ctx context.Context,
	cfg *config.Config,
	executor service.QueryExecutor,
	normalizer *service.Normalizer,
	logger *zap.Logger,
) (*service.SimilarityService, func(), error) {
	sim := cfg.Similarity

	var embedder service.Embedder
	switch sim.Provider {
	case "ollama":
		client, err := service.NewOllamaClient(sim.APIBase, sim.Model, 0, sim.Timeout)
		if err != nil {
			return nil, nil, err
		}
		embedder = client
	default:
		embedder = service.NewOpenAIClient(service.OpenAIOptions{
			APIKey:         sim.APIKey,
			APIBase:        sim.APIBase,
			EmbeddingModel: sim.Model,
			Dimensions:     sim.Dimensions,
			BatchSize:      sim.BatchSize,
			Timeout:        sim.Timeout,
		})
	}

	var index service.VectorIndex = service.NewMemoryIndex()
	closeIndex := func() {}
	if sim.Index == "pgvector" {
		pg, err := repository.NewPgvectorIndex(ctx, sim.PgvectorDSN, logger)
		if err != nil {
			return nil, nil, err
		}
		index = pg
		closeIndex = func() { pg.Close() }
	}

	logger.Info("similarity search enabled",
		zap.String("provider", sim.Provider),
		zap.String("model", sim.Model),
		zap.String("index", sim.Index),
	)

	svc := service.NewSimilarityService(executor, normalizer, embedder, index, sim.BatchSize, sim.DefaultTopK, logger)
	return svc, closeIndex, nil
}
