package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "inline", cfg.Queue.Backend)
	assert.Equal(t, int64(5*1024*1024), cfg.Upload.MaxSize)
	assert.Equal(t, 50, cfg.Upload.MinTextLength)
	assert.ElementsMatch(t, []string{MimePDF, MimeDOC, MimeDOCX}, cfg.Upload.AllowedMimeTypes)
	assert.Equal(t, 5*time.Second, cfg.Scorer.MockDelay)
	assert.Equal(t, 2*time.Second, cfg.Poller.Interval)
	assert.Equal(t, 150, cfg.Poller.MaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Watchdog.StaleAfter)
	assert.Empty(t, cfg.Scorer.WebhookURL)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9090
scorer:
  webhook_url: "https://automation.example.com/webhook/cv"
  mock_delay: 1s
redis:
  host: "127.0.0.1"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "https://automation.example.com/webhook/cv", cfg.Scorer.WebhookURL)
	assert.Equal(t, time.Second, cfg.Scorer.MockDelay)
	assert.True(t, cfg.Redis.Enabled())
	// untouched keys keep their defaults
	assert.Equal(t, 50, cfg.Upload.MinTextLength)
}

func TestLoad_PrefersLocalConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  port: 1111\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.local.yaml"), []byte("server:\n  port: 2222\n"), 0644))

	cfg, err := Load(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 2222, cfg.Server.Port)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SCORER_WEBHOOK_URL", "https://env.example.com/hook")
	t.Setenv("QUEUE_BACKEND", "redis")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com/hook", cfg.Scorer.WebhookURL)
	assert.Equal(t, "redis", cfg.Queue.Backend)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateServer(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.ErrorIs(t, cfg.ValidateServer(), ErrMissingJWTSecret)

	cfg.JWT.Secret = "   "
	assert.ErrorIs(t, cfg.ValidateServer(), ErrMissingJWTSecret)

	t.Setenv("JWT_SECRET", "supabase-shared-secret")
	cfg, err = Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.NoError(t, cfg.ValidateServer())
}
