package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"vrc-auth-service/app/config"
	"vrc-auth-service/app/di"
	"vrc-auth-service/app/metrics"
	"vrc-auth-service/app/utils/logger"
)

const janitorInterval = time.Minute

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	appLogger, err := logger.New(cfg.LogLevel)
	if err != nil {
		slog.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}

	appLogger.Info("starting auth service",
		"version", getVersion(),
		"port", cfg.Port,
		"log_level", cfg.LogLevel)

	metrics.Register()

	container, err := di.NewContainer(cfg, appLogger)
	if err != nil {
		appLogger.Error("failed to initialize dependency container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	e := container.CreateRouter()

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		appLogger.Info("server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	// Janitor: the attempt registry expires entries through per-attempt
	// timers; the sweep reconciles after suspend/resume.
	g.Go(func() error {
		ticker := time.NewTicker(janitorInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				container.LoginUsecase.SweepExpiredAttempts()
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		appLogger.Info("server shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		appLogger.Error("service exited with error", "error", err)
		os.Exit(1)
	}

	appLogger.Info("server exited")
}

// getVersion returns the application version
func getVersion() string {
	if version := os.Getenv("VERSION"); version != "" {
		return version
	}
	return "dev"
}
