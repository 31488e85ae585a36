package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every key Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	for _, key := range []string{
		"CONFIG_FILE", "PORT", "LOG_LEVEL", "REDIS_ADDR", "REDIS_DB", "HISTORY_QUEUE_NAME",
		"HISTORY_ENABLED", "DATABASE_URL", "PG_HOST", "MAX_ROOMS", "ROOM_CAPACITY",
		"MATCH_MAX_SCAN", "INBOX_SIZE", "SEND_BUFFER", "RELAY_RATE", "RELAY_BURST",
		"TOKEN_EXPIRE_TIME", "TOKEN_PRIVATE_KEY_PATH", "TOKEN_PUBLIC_KEY_PATH",
		"HISTORIAN_BATCH_SIZE", "HISTORIAN_FLUSH_MS",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	expiry, err := cfg.TokenExpiry()
	require.NoError(t, err)
	assert.Equal(t, 72*time.Hour, expiry)
	assert.Equal(t, time.Second, cfg.HistorianFlushInterval())
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
port: "9000"
max_rooms: 10
room_capacity: 8
relay_rate: 30.5
history_enabled: true
`)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("MAX_ROOMS", "25")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port, "yaml overrides default")
	assert.Equal(t, 25, cfg.MaxRooms, "env overrides yaml")
	assert.Equal(t, 8, cfg.RoomCapacity)
	assert.Equal(t, 30.5, cfg.RelayRate)
	assert.True(t, cfg.HistoryEnabled)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr, "untouched keys keep defaults")
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("ROOM_CAPACITY", "lots")
	t.Setenv("HISTORY_ENABLED", "maybe")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.RoomCapacity)
	assert.False(t, cfg.HistoryEnabled)
}

func TestLoadComposesDatabaseURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("PG_HOST", "db")
	t.Setenv("PG_PORT", "")
	t.Setenv("POSTGRES_USER", "u")
	t.Setenv("POSTGRES_PASSWORD", "p")
	t.Setenv("PG_DATABASE", "rooms")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db:5432/rooms", cfg.DatabaseURL)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("bad yaml", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CONFIG_FILE", writeConfig(t, "port: [unterminated"))
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("bad token expiry", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TOKEN_EXPIRE_TIME", "soon")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("half a key pair", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TOKEN_PRIVATE_KEY_PATH", "/keys/id_ed25519")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("non-positive send buffer", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SEND_BUFFER", "-1")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestLoadTokenKeyPaths(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", writeConfig(t, "token_private_key_path: /keys/id_ed25519\n"))
	t.Setenv("TOKEN_PUBLIC_KEY_PATH", "/keys/id_ed25519.pub")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/keys/id_ed25519", cfg.TokenPrivateKeyPath)
	assert.Equal(t, "/keys/id_ed25519.pub", cfg.TokenPublicKeyPath)
}

func TestTokenExpiryNever(t *testing.T) {
	for _, v := range []string{"", "0", "never"} {
		d, err := Config{TokenExpireTime: v}.TokenExpiry()
		require.NoError(t, err)
		assert.Zero(t, d)
	}
}
