package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/safar/go-sql-shop/internal/config"
	"github.com/safar/go-sql-shop/internal/database"
	"github.com/safar/go-sql-shop/internal/logger"
	"github.com/safar/go-sql-shop/migrations"
)

func main() {
	log := logger.New(logger.Options{Service: "migrations", Level: "info"})

	if len(os.Args) < 2 {
		log.Error("usage: go run scripts/run_migrations.go [up|down]")
		os.Exit(2)
	}
	direction := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}
	log = log.With("env", cfg.Log.Env)

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		log.Error("connect to database", slog.Any("err", err))
		os.Exit(1)
	}
	defer db.Close()

	applied, err := migrations.Run(context.Background(), db, direction)
	for _, name := range applied {
		log.Info("ran migration", slog.String("file", name))
	}
	if err != nil {
		log.Error("migrate", slog.String("direction", direction), slog.Any("err", err))
		db.Close()
		os.Exit(1)
	}

	log.Info("migrations complete", slog.Int("count", len(applied)), slog.String("direction", direction))
}
