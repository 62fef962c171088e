package db

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"truckbooks/internal/domain/auth"
	"truckbooks/internal/platform/config"
)

// Seed creates the owner account on first start.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	email := strings.TrimSpace(cfg.SeedOwnerEmail)
	if email == "" || strings.TrimSpace(cfg.SeedOwnerPassword) == "" {
		return nil
	}
	hash, err := auth.HashPassword(cfg.SeedOwnerPassword)
	if err != nil {
		return err
	}
	created, err := auth.NewStore(pool).EnsureUser(ctx, strings.ToLower(email), hash, auth.RoleOwner)
	if err != nil {
		return err
	}
	if created {
		slog.Info("seeded owner account", "email", email)
	}
	return nil
}
