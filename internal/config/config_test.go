package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gemini-chat/internal/gemini"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, gemini.DefaultBaseURL, cfg.Gemini.BaseURL)
	assert.Equal(t, "gemini-2.0-flash", cfg.Gemini.Model)
	assert.Equal(t, 0.7, cfg.Gemini.Temperature)
	assert.Equal(t, 40, cfg.Gemini.TopK)
	assert.Equal(t, 0.95, cfg.Gemini.TopP)
	assert.Equal(t, 1024, cfg.Gemini.MaxOutputTokens)
	assert.Equal(t, 75*time.Millisecond, cfg.Playback.WordInterval)
	assert.Equal(t, "chatbot_history", cfg.Storage.Key)
	assert.Equal(t, "file", cfg.Storage.Backend)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[gemini]
api_key = "from-file"
model = "gemini-1.5-pro"
timeout = "30s"

[playback]
word_interval = "40ms"
instant = true

[storage]
backend = "sqlite"
dir = "/tmp/gemchat-test"
`), 0o644))

	t.Setenv("GEMINI_API_KEY", "from-env")
	t.Setenv("GEMCHAT_UI_THEME", "light")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Gemini.APIKey)
	assert.Equal(t, "gemini-1.5-pro", cfg.Gemini.Model)
	assert.Equal(t, 30*time.Second, cfg.Gemini.Timeout)
	assert.Equal(t, 40*time.Millisecond, cfg.Playback.WordInterval)
	assert.True(t, cfg.Playback.Instant)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "/tmp/gemchat-test", cfg.Storage.Dir)
	assert.Equal(t, "light", cfg.UI.Theme)
	// untouched values keep their defaults
	assert.Equal(t, 40, cfg.Gemini.TopK)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoadInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[gemini\nmodel ="), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing key", func(c *Config) { c.Gemini.APIKey = "" }},
		{"empty model", func(c *Config) { c.Gemini.Model = "" }},
		{"temperature", func(c *Config) { c.Gemini.Temperature = 3 }},
		{"top p", func(c *Config) { c.Gemini.TopP = 1.5 }},
		{"top k", func(c *Config) { c.Gemini.TopK = 0 }},
		{"max tokens", func(c *Config) { c.Gemini.MaxOutputTokens = 0 }},
		{"interval", func(c *Config) { c.Playback.WordInterval = 0 }},
		{"backend", func(c *Config) { c.Storage.Backend = "redis" }},
		{"dir", func(c *Config) { c.Storage.Dir = "" }},
		{"theme", func(c *Config) { c.UI.Theme = "sepia" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			cfg.Gemini.APIKey = "key"
			require.NoError(t, cfg.Validate())

			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".gemchat"), expandHome("~/.gemchat"))
	assert.Equal(t, home, expandHome("~"))
	assert.Equal(t, "/abs/path", expandHome("/abs/path"))
	assert.Equal(t, "", expandHome(""))
}
