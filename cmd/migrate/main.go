package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/hongminglow/story-be/internal/logging"
	"github.com/hongminglow/story-be/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()

	var (
		dsn    = flag.String("database-url", os.Getenv("DATABASE_URL"), "Postgres connection string")
		target = flag.Int64("to", 0, "target version for down")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: migrate [flags] up|status|down\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := logging.New("story-migrate", logging.ParseLevel(os.Getenv("LOG_LEVEL")))
	if strings.TrimSpace(*dsn) == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(2)
	}
	command := flag.Arg(0)
	if command == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := run(ctx, *dsn, command, *target, logger); err != nil {
		logger.Error("migrate failed", "command", command, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, dsn, command string, target int64, logger *slog.Logger) error {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()

	db := stdlib.OpenDBFromPool(pool)
	defer func(db *sql.DB) { _ = db.Close() }(db)

	migrator, err := postgres.NewMigrator(db)
	if err != nil {
		return err
	}

	switch command {
	case "up":
		if err := migrator.Up(ctx); err != nil {
			return err
		}
		logger.Info("migrations applied")
	case "status":
		statuses, err := migrator.Status(ctx)
		if err != nil {
			return err
		}
		for _, st := range statuses {
			logger.Info("migration",
				"version", st.Source.Version,
				"path", st.Source.Path,
				"state", string(st.State),
				"applied_at", st.AppliedAt,
			)
		}
	case "down":
		if err := migrator.Down(ctx, target); err != nil {
			return err
		}
		logger.Info("migrations rolled back", "to", target)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
	return nil
}
