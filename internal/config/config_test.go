package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.MessageTTL)
	assert.Equal(t, 2*time.Second, cfg.RevealTTL)
	assert.Equal(t, []string{"*"}, cfg.GetAllowedOrigins())
	assert.False(t, cfg.HostAudio)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SHOWDOWN_PORT", "9090")
	t.Setenv("ENV", "Production")
	t.Setenv("SHOWDOWN_MESSAGE_TTL", "1500ms")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, http://127.0.0.1:3000,")
	t.Setenv("SHOWDOWN_HOST_AUDIO", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 1500*time.Millisecond, cfg.MessageTTL)
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, cfg.GetAllowedOrigins())
	assert.True(t, cfg.HostAudio)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	t.Run("Zero TTL", func(t *testing.T) {
		t.Setenv("SHOWDOWN_REVEAL_TTL", "0s")
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("Malformed duration", func(t *testing.T) {
		t.Setenv("SHOWDOWN_MESSAGE_TTL", "soon")
		_, err := LoadConfig()
		assert.Error(t, err)
	})
}

func TestLoadTUIConfig(t *testing.T) {
	t.Run("Missing file falls back to env", func(t *testing.T) {
		t.Setenv("SHOWDOWN_DECK_FILE", "/tmp/deck.yaml")

		cfg, err := LoadTUIConfig(filepath.Join(t.TempDir(), "absent.yml"))
		require.NoError(t, err)
		assert.Equal(t, "/tmp/deck.yaml", cfg.DeckFile)
		assert.Equal(t, 3*time.Second, cfg.MessageTTL)
		assert.Equal(t, "showdown.log", cfg.Log.File)
		assert.False(t, cfg.Audio.Muted)
	})

	t.Run("Reads yaml file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "showdown.yml")
		require.NoError(t, os.WriteFile(path, []byte(`
message_ttl: 5s
log:
  level: debug
  file: /tmp/showdown-test.log
audio:
  muted: true
  voice: Samantha
`), 0o600))

		cfg, err := LoadTUIConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 5*time.Second, cfg.MessageTTL)
		assert.Equal(t, 2*time.Second, cfg.RevealTTL)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.Equal(t, "/tmp/showdown-test.log", cfg.Log.File)
		assert.True(t, cfg.Audio.Muted)
		assert.Equal(t, "Samantha", cfg.Audio.Voice)
	})

	t.Run("Broken yaml is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "showdown.yml")
		require.NoError(t, os.WriteFile(path, []byte("message_ttl: [oops"), 0o600))

		_, err := LoadTUIConfig(path)
		assert.Error(t, err)
	})
}
