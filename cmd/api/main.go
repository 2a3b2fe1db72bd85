package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zackedds/no-rulez-web/internal/config"
	"github.com/zackedds/no-rulez-web/internal/engine"
	"github.com/zackedds/no-rulez-web/internal/handlers"
	"github.com/zackedds/no-rulez-web/internal/logger"
	"github.com/zackedds/no-rulez-web/internal/metrics"
	"github.com/zackedds/no-rulez-web/internal/middleware"
	"github.com/zackedds/no-rulez-web/internal/services"
	"github.com/zackedds/no-rulez-web/internal/storage"
	"github.com/zackedds/no-rulez-web/pkg/prompts"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting NO RULEZ API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"model_name", cfg.ModelName,
		"images", cfg.ImagesEnabled(),
		"content_rating", cfg.ContentRating)

	llmService, closeLLM, err := newLLMService(cfg, log)
	if err != nil {
		log.Error("Failed to set up LLM provider", "error", err, "provider", cfg.LLMProvider)
		os.Exit(1)
	}
	defer closeLLM()

	redisService, err := services.NewRedisService(cfg.RedisURL, log)
	if err != nil {
		log.Error("Invalid Redis configuration", "error", err)
		os.Exit(1)
	}
	cacheCtx, cacheCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cacheCancel()

	if err := redisService.WaitForConnection(cacheCtx); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("Redis connection established successfully")

	// Initialize the model on startup
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	if err := llmService.InitModel(ctx, cfg.ModelName); err != nil {
		log.Error("Failed to initialize LLM model", "error", err, "model", cfg.ModelName)
		os.Exit(1)
	}

	catalog, err := loadCatalog(cfg.PromptsFile)
	if err != nil {
		log.Error("Failed to load prompt catalog", "error", err, "file", cfg.PromptsFile)
		os.Exit(1)
	}

	m := metrics.New()
	opts := engine.Options{
		Metrics:       m,
		Tokens:        services.NewTokenCounter(cfg.ModelName, log),
		Catalog:       catalog,
		ContentRating: cfg.ContentRating,
	}
	if cfg.ImagesEnabled() {
		opts.Images = services.NewReplicateService(
			cfg.ReplicateAPIToken,
			cfg.ReplicateModelURL,
			cfg.ImageTimeout,
			cfg.ImagePollAttempts,
			cfg.ImagePollInterval,
			log)
		log.Info("Scene images enabled", "model_url", cfg.ReplicateModelURL)
	}

	games := storage.NewGameStore(redisService, cfg.GameTTL, log)
	battle := engine.New(games, llmService, log, opts)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(redisService, llmService, cfg.ImagesEnabled(), log)
	mux.Handle("/health", healthHandler)
	mux.Handle("/metrics", m.Handler())

	handlers.NewGameHandler(battle, log).Register(mux)
	handlers.NewRefereeHandler(battle, log).Register(mux)
	mux.Handle("/api/image", handlers.NewImageHandler(battle, log))

	handler := middleware.Logger(mux)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: a turn waits on the referee and possibly an image.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := redisService.Close(); err != nil {
		log.Error("Error closing Redis connection", "error", err)
	}

	log.Info("Server exited")
}

// newLLMService builds the configured provider. The returned func releases
// any client resources.
func newLLMService(cfg *config.Config, log *slog.Logger) (services.LLMService, func(), error) {
	noop := func() {}

	switch cfg.LLMProvider {
	case config.ProviderDeepSeek:
		log.Info("Using DeepSeek LLM provider", "base_url", cfg.LLMBaseURL)
		return services.NewDeepSeekService(cfg.DeepSeekAPIKey, cfg.LLMBaseURL, cfg.ModelName, cfg.LLMTimeout, log), noop, nil
	case config.ProviderAnthropic:
		log.Info("Using Anthropic LLM provider")
		return services.NewAnthropicService(cfg.AnthropicAPIKey, cfg.ModelName, cfg.LLMTimeout, log), noop, nil
	case config.ProviderGemini:
		svc, err := services.NewGeminiService(context.Background(), cfg.GeminiAPIKey, cfg.ModelName, cfg.LLMTimeout, log)
		if err != nil {
			return nil, noop, err
		}
		log.Info("Using Gemini LLM provider")
		return svc, func() {
			if err := svc.Close(); err != nil {
				log.Error("Error closing Gemini client", "error", err)
			}
		}, nil
	case config.ProviderOllama:
		svc, err := services.NewOllamaService(cfg.OllamaHost, cfg.ModelName, cfg.LLMTimeout, log)
		if err != nil {
			return nil, noop, err
		}
		log.Info("Using Ollama LLM provider", "host", cfg.OllamaHost)
		return svc, noop, nil
	default:
		return nil, noop, fmt.Errorf("unsupported LLM provider %q", cfg.LLMProvider)
	}
}

func loadCatalog(path string) (*prompts.Catalog, error) {
	if path == "" {
		return prompts.Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return prompts.Parse(data)
}
