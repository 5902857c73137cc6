package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "token")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, StoreFile, cfg.StoreDriver)
	assert.Equal(t, "data/dj_config.json", cfg.StoragePath)
	assert.Equal(t, 2*time.Second, cfg.ConfigDebounce)
	assert.Equal(t, 5*time.Minute, cfg.InactivityTimeout)
	assert.Equal(t, 80, cfg.DefaultVolume)
	assert.Equal(t, "ytsearch", cfg.SearchSource)
	assert.Equal(t, "localhost:2333", cfg.Lavalink.Addr())
	assert.Equal(t, ":8080", cfg.HTTPAddr)
}

func TestParseRequiresToken(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "")
	_, err := Parse()
	assert.Error(t, err)
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "token")
	t.Setenv("STORE_DRIVER", "redis")
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("INACTIVITY_TIMEOUT", "0s")
	t.Setenv("DEFAULT_VOLUME", "4000")
	t.Setenv("LAVALINK_SECURE", "true")
	t.Setenv("LAVALINK_PORT", "443")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, StoreRedis, cfg.StoreDriver)
	assert.Equal(t, "cache:6380", cfg.RedisAddr)
	assert.Zero(t, cfg.InactivityTimeout)
	assert.Equal(t, 1000, cfg.DefaultVolume)
	assert.True(t, cfg.Lavalink.Secure)
	assert.Equal(t, 443, cfg.Lavalink.Port)
}

func TestParseValidatesDriver(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "token")

	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	_, err := Parse()
	assert.ErrorContains(t, err, "DATABASE_URL")

	t.Setenv("STORE_DRIVER", "s3")
	_, err = Parse()
	assert.ErrorContains(t, err, "STORE_DRIVER")
}
