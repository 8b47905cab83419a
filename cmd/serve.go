package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"intent-orchestrator/internal/logger"
	"intent-orchestrator/internal/middleware"
	"intent-orchestrator/internal/routes"
	"intent-orchestrator/internal/usecase/troubleshoot"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := setup(ctx, false)
		if err != nil {
			return err
		}
		defer logger.Sync()
		defer func() {
			if err := a.Close(); err != nil {
				logger.Error("Failed to close backends", zap.Error(err))
			}
		}()

		cfg := a.Config
		logger.Info("Starting application", zap.String("environment", cfg.Server.Environment))

		limiter := middleware.NewRateLimiter(cfg.RateLimit.GeneralRPS, cfg.RateLimit.GeneralBurst)
		go limiter.RunSweeper(ctx)

		if interval := cfg.Troubleshoot.FleetCheckInterval; interval > 0 {
			go a.Troubleshoot.StartFleetCheckJob(ctx, interval, troubleshoot.DefaultFleetLimit, a.Publisher())
		}

		router := routes.SetupRoutes(cfg, routes.Dependencies{
			Troubleshoot: a.Troubleshoot,
			Orchestrator: a.Orchestrator,
			Health:       a.Health,
			Limiter:      limiter,
		})

		addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
		server := &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			// fleet checks and LLM round trips can take a while
			WriteTimeout: 2 * time.Minute,
			IdleTimeout:  60 * time.Second,
		}

		serveErr := make(chan error, 1)
		go func() {
			logger.Info("Server starting", zap.String("address", addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		select {
		case err := <-serveErr:
			return err
		case <-ctx.Done():
		}
		logger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}

		logger.Info("Server exited properly")
		return nil
	},
}
