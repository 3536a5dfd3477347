// Command propdesk-seed runs migrations and the system role seed once
// and exits. Intended for deploy pipelines; the server can also seed on
// startup.
package main

import (
	"context"
	"database/sql"
	"flag"
	"os"

	_ "github.com/lib/pq"

	"github.com/propdesk/propdesk/pkg/observability"
	"github.com/propdesk/propdesk/pkg/rbac"
)

func main() {
	dbURL := flag.String("db-url", getEnv("PROPDESK_POSTGRES_URL", "postgres://localhost/propdesk?sslmode=disable"), "PostgreSQL connection URL")
	skipMigrations := flag.Bool("skip-migrations", false, "Seed without running migrations first")
	flag.Parse()

	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
	ctx := context.Background()

	db, err := sql.Open("postgres", *dbURL)
	if err != nil {
		logger.WithError(err).Error("Failed to open database")
		os.Exit(1)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		logger.WithError(err).Error("Failed to ping database")
		os.Exit(1)
	}

	if !*skipMigrations {
		if err := rbac.RunMigrations(ctx, db, logger); err != nil {
			logger.WithError(err).Error("Migrations failed")
			os.Exit(1)
		}
	}

	store := rbac.NewStore(db)
	if err := rbac.Seed(ctx, store, logger); err != nil {
		logger.WithError(err).Error("Seed failed")
		os.Exit(1)
	}

	logger.Info("Seed complete")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
