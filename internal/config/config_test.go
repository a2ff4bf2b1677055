package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsAndEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "test-secret", cfg.JWT.Secret)
	assert.Equal(t, 24*time.Hour, cfg.JWT.TTL)
	assert.True(t, cfg.Pricing.LongStayDiscountEnabled)
	assert.Equal(t, 90, cfg.Pricing.LongStayMinDays)
	assert.InDelta(t, 0.10, cfg.Pricing.LongStayRate, 1e-9)
	assert.Equal(t, "@daily", cfg.Jobs.BookingCompletionSpec)
	assert.Equal(t, "ses", cfg.Email.Driver)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 5, cfg.RabbitMQ.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.RabbitMQ.RetryDelay)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("jwt:\n  secret: from-file\npricing:\n  long_stay_min_days: 60\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.JWT.Secret)
	assert.Equal(t, 60, cfg.Pricing.LongStayMinDays)
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := LoadConfig(t.TempDir())
	assert.Error(t, err)
}
