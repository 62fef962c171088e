package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		DatabaseURL:        "postgres://localhost/truckbooks",
		Environment:        "development",
		TokenTTL:           time.Hour,
		MaxBodyBytes:       4096,
		RateLimitPerMinute: 60,
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/truckbooks")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("EMAIL_ENABLED", "true")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "not-a-number")

	cfg := Load()
	assert.Equal(t, "postgres://db/truckbooks", cfg.DatabaseURL)
	assert.Equal(t, 2525, cfg.SMTPPort)
	assert.True(t, cfg.EmailEnabled)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.Equal(t, "storage/statements", cfg.DocumentDir)
	assert.Equal(t, 90, cfg.RetentionDays)
	assert.Equal(t, 24*time.Hour, cfg.RetentionInterval)
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	cfg := validConfig()
	cfg.DatabaseURL = " "
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Environment = "production"
	cfg.JWTSecret = "secret"
	assert.ErrorContains(t, cfg.Validate(), "DATA_ENCRYPTION_KEY")

	cfg.DataEncryptionKey = "key"
	cfg.RunSeed = true
	assert.ErrorContains(t, cfg.Validate(), "SEED_OWNER_PASSWORD")

	cfg = validConfig()
	cfg.EmailEnabled = true
	assert.ErrorContains(t, cfg.Validate(), "SMTP_HOST")

	cfg = validConfig()
	cfg.MaxBodyBytes = 10
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.RetentionDays = -1
	assert.ErrorContains(t, cfg.Validate(), "RETENTION_DAYS")
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, Config{LogLevel: "DEBUG"}.SlogLevel())
	assert.Equal(t, slog.LevelWarn, Config{LogLevel: "warning"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, Config{}.SlogLevel())
}
