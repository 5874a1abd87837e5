package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/celiscope/celiscope/internal/account"
	"github.com/celiscope/celiscope/internal/api"
	"github.com/celiscope/celiscope/internal/middleware"
	"github.com/celiscope/celiscope/internal/scheduler"
)

func newServeCmd() *cobra.Command {
	var noScheduler bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the notification scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, !noScheduler)
		},
	}
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "do not start the cron jobs")
	return cmd
}

func serve(ctx context.Context, withScheduler bool) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	cfg := a.cfg
	slog.Info("Starting server", "port", cfg.Port, "env", cfg.Env, "version", version)

	limiter := middleware.NewRateLimiter(cfg.AI.RateLimit, cfg.AI.RateWindow)
	defer limiter.Stop()

	router := api.NewRouter(
		api.RouterConfig{
			Tokens:        a.tokens,
			CORSOrigins:   cfg.CORSOrigins,
			Notifications: a.hub,
		},
		api.NewHealthHandler(a.repo),
		api.NewAuthHandler(a.auth, api.CookieConfig{
			Domain: cfg.CookieDomain,
			Secure: cfg.IsProduction(),
			MaxAge: cfg.Auth.RefreshTTL,
		}),
		api.NewUserHandler(a.accounts),
		api.NewGoalHandler(a.goals),
		api.NewFriendshipHandler(account.NewFriendships(a.repo)),
		api.NewSettingsHandler(account.NewSettings(a.repo)),
		api.NewAIHandler(a.ai, a.reports, a.accounts, a.notifier, limiter.Middleware),
	)

	// Websocket connections outlive WriteTimeout, so none is set.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if withScheduler && cfg.Scheduler.Enabled {
		sched := scheduler.New(a.repo, a.notifier, a.reports, cfg.Location())
		if err := sched.Start(ctx, cfg.Scheduler.WeeklyReportOnStart); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer sched.Stop()
	} else {
		slog.Info("Scheduler disabled")
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("Shutting down gracefully...")
	a.hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	slog.Info("Server stopped successfully")
	return nil
}
