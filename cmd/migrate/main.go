package main

import (
	"flag"
	"log/slog"
	"os"

	"truckbooks/internal/platform/config"
	"truckbooks/internal/platform/db"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	steps := flag.Int("steps", 0, "number of migrations to apply; 0 applies all")
	flag.Parse()

	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	if err := db.MigrateSteps(cfg.DatabaseURL, cfg.MigrationsDir, *direction, *steps); err != nil {
		slog.Error("migration failed", "direction", *direction, "steps", *steps, "err", err)
		os.Exit(1)
	}
	slog.Info("migrations applied", "direction", *direction, "steps", *steps)
}
