package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/xaenox/jarvis/internal/assistant"
	"github.com/xaenox/jarvis/internal/bot"
	"github.com/xaenox/jarvis/internal/responder"
	"github.com/xaenox/jarvis/internal/scheduler"
	"github.com/xaenox/jarvis/internal/storage"
	"github.com/xaenox/jarvis/pkg/config"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Initialize storage
	var store storage.Storage
	if cfg.Storage.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("Using SQLite storage", zap.String("data_dir", cfg.Storage.DataDir))
		store, err = storage.NewSQLiteStorage(cfg.Storage.DataDir)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// Pick the response collaborator
	var resp responder.Responder
	if cfg.OpenAI.APIKey != "" {
		logger.Info("Using OpenAI responder", zap.String("model", cfg.OpenAI.Model))
		resp = responder.NewOpenAIResponder(
			cfg.OpenAI.APIKey,
			cfg.OpenAI.Model,
			cfg.OpenAI.MaxTokens,
			cfg.OpenAI.Temperature,
			logger,
		)
	} else {
		logger.Info("Using local responder")
		resp = responder.NewLocalResponder()
	}

	svc := assistant.New(store, resp, assistant.Config{
		SearchLimit: cfg.Assistant.SearchLimit,
		MaxTags:     cfg.Assistant.MaxTags,
		MemoryTags:  cfg.Assistant.MemoryTags,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Recompute daily stats on schedule
	sched := scheduler.New(svc, cfg.Stats.Schedule, logger)
	if err := sched.Start(ctx); err != nil {
		logger.Fatal("Failed to start scheduler", zap.Error(err))
	}

	if cfg.Telegram.Enabled {
		b, err := bot.New(cfg.Telegram.Token, svc, logger)
		if err != nil {
			logger.Fatal("Failed to create bot", zap.Error(err))
		}
		if err := b.Start(ctx); err != nil && ctx.Err() == nil {
			logger.Fatal("Bot error", zap.Error(err))
		}
	} else {
		logger.Info("Telegram frontend disabled, running store and scheduler only")
		<-ctx.Done()
	}

	logger.Info("Shutting down")
}
