package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/celiscope/celiscope/internal/account"
	"github.com/celiscope/celiscope/internal/ai"
	"github.com/celiscope/celiscope/internal/auth"
	"github.com/celiscope/celiscope/internal/config"
	"github.com/celiscope/celiscope/internal/goal"
	"github.com/celiscope/celiscope/internal/media"
	"github.com/celiscope/celiscope/internal/notify"
	"github.com/celiscope/celiscope/internal/store"
	"github.com/celiscope/celiscope/internal/weekly"
)

// app holds the wired services shared by the commands.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	repo   store.Repository

	ai       *ai.Service
	storage  media.Storage
	tokens   *auth.TokenManager
	auth     *auth.Service
	accounts *account.Service
	goals    *goal.Service
	reports  *weekly.Service
	hub      *notify.Hub
	notifier *notify.Notifier
}

// newApp loads configuration and wires every service. The caller must
// call close.
func newApp(ctx context.Context) (*app, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := config.NewLogger(os.Stdout, level)
	slog.SetDefault(logger)

	repo, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	if err := repo.Ping(ctx); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("database health check: %w", err)
	}
	slog.Info("Database connected")

	a := &app{cfg: cfg, logger: logger, repo: repo}
	loc := cfg.Location()

	a.ai, err = ai.New(ctx, cfg.AIClient(), ai.WithObserver(ai.NewLogObserver(logger)))
	if err != nil {
		var cfgErr *ai.ConfigurationError
		if !errors.As(err, &cfgErr) {
			_ = repo.Close()
			return nil, fmt.Errorf("initialize ai: %w", err)
		}
		slog.Warn("AI features disabled", "error", err)
		a.ai = ai.Disabled(err)
	}

	a.storage, err = media.NewS3Storage(ctx, media.S3Config{
		Region:    cfg.S3.Region,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		Bucket:    cfg.S3.Bucket,
		Endpoint:  cfg.S3.Endpoint,
	})
	if err != nil {
		slog.Warn("Image uploads disabled", "error", err)
		a.storage = media.DisabledStorage{}
	}

	sender, err := notify.NewTelegramSender(cfg.Telegram.BotToken)
	if err != nil {
		slog.Error("Telegram unavailable, notifications limited to websocket", "error", err)
		sender = &notify.TelegramSender{}
	}

	a.tokens = auth.NewTokenManager(cfg.Auth.AccessSecret, cfg.Auth.RefreshSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	a.auth = auth.NewService(repo, a.tokens, cfg.Telegram.BotToken, cfg.Telegram.VerifyInitData)
	a.accounts = account.NewService(repo, a.storage, cfg.Telegram.BotUsername)
	a.goals = goal.NewService(repo, a.ai, a.storage, cfg.PlaceholderImageURL)
	a.reports = weekly.NewService(repo, a.ai, loc)
	a.hub = notify.NewHub(a.tokens, cfg.CORSOrigins)
	a.notifier = notify.NewNotifier(repo, sender, a.hub, loc)
	return a, nil
}

func (a *app) close() {
	a.hub.Close()
	if err := a.ai.Close(); err != nil {
		slog.Error("Failed to close AI client", "error", err)
	}
	if err := a.repo.Close(); err != nil {
		slog.Error("Failed to close repository", "error", err)
	}
}
