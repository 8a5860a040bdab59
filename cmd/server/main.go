package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hongminglow/story-be/internal/config"
	"github.com/hongminglow/story-be/internal/logging"
	"github.com/hongminglow/story-be/internal/ratelimit"
	"github.com/hongminglow/story-be/internal/server"
	"github.com/hongminglow/story-be/internal/storage"
	"github.com/hongminglow/story-be/internal/storage/postgres"
	"github.com/hongminglow/story-be/internal/storage/sqlite"
	"github.com/hongminglow/story-be/internal/telemetry"
)

const serviceName = "story-be"

func main() {
	envLoaded := godotenv.Load() == nil

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(serviceName, logging.ParseLevel(cfg.LogLevel))
	slog.SetDefault(logger)
	if !envLoaded {
		logger.Info("no .env file found; relying on existing environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OTelEndpoint, cfg.OTelEnabled)
	if err != nil {
		logger.Error("init tracing", "error", err)
		os.Exit(1)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("init database", "driver", cfg.DatabaseDriver, "error", err)
		os.Exit(1)
	}

	limiter := newLimiter(cfg, logger)
	srv, err := server.New(cfg, store, limiter, logger)
	if err != nil {
		logger.Error("init server", "error", err)
		limiter.Close()
		store.Close()
		os.Exit(1)
	}

	go func() {
		logger.Info("story backend listening", "addr", cfg.HTTPAddress(), "driver", cfg.DatabaseDriver)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error("graceful shutdown error", "error", err)
	}
	limiter.Close()
	store.Close()
	if err := shutdownTracing(ctxShutdown); err != nil {
		logger.Error("tracing shutdown error", "error", err)
	}
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	if cfg.DatabaseDriver == config.DriverSQLite {
		return sqlite.Open(ctx, cfg.DatabaseURL)
	}
	return postgres.NewStore(ctx, cfg.DatabaseURL)
}

// newLimiter uses Redis when configured and the in-process limiter when Redis
// is unset or unreachable.
func newLimiter(cfg config.Config, logger *slog.Logger) ratelimit.Limiter {
	if cfg.RateLimitRedisAddr == "" {
		return ratelimit.NewMemory()
	}
	limiter, err := ratelimit.NewRedis(cfg.RateLimitRedisAddr, cfg.RateLimitRedisPassword, cfg.RateLimitRedisDB, logger)
	if err != nil {
		logger.Warn("redis rate limiter unavailable; using in-memory limiter", "addr", cfg.RateLimitRedisAddr, "error", err)
		return ratelimit.NewMemory()
	}
	return limiter
}
