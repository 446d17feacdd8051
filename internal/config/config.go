package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"gemini-chat/internal/gemini"
)

// Config holds all application configuration
type Config struct {
	Gemini   GeminiConfig   `toml:"gemini"`
	Playback PlaybackConfig `toml:"playback"`
	Storage  StorageConfig  `toml:"storage"`
	Voice    VoiceConfig    `toml:"voice"`
	UI       UIConfig       `toml:"ui"`
	Log      LogConfig      `toml:"log"`
}

// GeminiConfig configures the remote API
type GeminiConfig struct {
	APIKey            string        `toml:"api_key" env:"GEMINI_API_KEY"`
	BaseURL           string        `toml:"base_url" env:"GEMCHAT_GEMINI_BASE_URL"`
	Model             string        `toml:"model" env:"GEMCHAT_GEMINI_MODEL"`
	Timeout           time.Duration `toml:"timeout" env:"GEMCHAT_GEMINI_TIMEOUT"`
	RequestsPerMinute int           `toml:"requests_per_minute" env:"GEMCHAT_GEMINI_REQUESTS_PER_MINUTE"`

	// Generation parameters, sent unchanged with every request
	Temperature     float64 `toml:"temperature" env:"GEMCHAT_GEMINI_TEMPERATURE"`
	TopK            int     `toml:"top_k" env:"GEMCHAT_GEMINI_TOP_K"`
	TopP            float64 `toml:"top_p" env:"GEMCHAT_GEMINI_TOP_P"`
	MaxOutputTokens int     `toml:"max_output_tokens" env:"GEMCHAT_GEMINI_MAX_OUTPUT_TOKENS"`
}

// PlaybackConfig configures the typing animation
type PlaybackConfig struct {
	WordInterval time.Duration `toml:"word_interval" env:"GEMCHAT_PLAYBACK_WORD_INTERVAL"`
	Instant      bool          `toml:"instant" env:"GEMCHAT_PLAYBACK_INSTANT"`
}

// StorageConfig configures local persistence
type StorageConfig struct {
	Backend string `toml:"backend" env:"GEMCHAT_STORAGE_BACKEND"` // "file" or "sqlite"
	Dir     string `toml:"dir" env:"GEMCHAT_STORAGE_DIR"`
	Key     string `toml:"key" env:"GEMCHAT_STORAGE_KEY"`
}

// VoiceConfig configures speech output and dictation
type VoiceConfig struct {
	Speech           bool   `toml:"speech" env:"GEMCHAT_VOICE_SPEECH"`
	SpeechCommand    string `toml:"speech_command" env:"GEMCHAT_VOICE_SPEECH_COMMAND"`
	DictationCommand string `toml:"dictation_command" env:"GEMCHAT_VOICE_DICTATION_COMMAND"`
}

// UIConfig configures the interactive view
type UIConfig struct {
	Theme string `toml:"theme" env:"GEMCHAT_UI_THEME"` // "auto", "dark" or "light"
}

// LogConfig configures logging
type LogConfig struct {
	Level string `toml:"level" env:"GEMCHAT_LOG_LEVEL"`
	File  string `toml:"file" env:"GEMCHAT_LOG_FILE"`
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Gemini: GeminiConfig{
			BaseURL:           gemini.DefaultBaseURL,
			Model:             "gemini-2.0-flash",
			Timeout:           60 * time.Second,
			RequestsPerMinute: 15,
			Temperature:       0.7,
			TopK:              40,
			TopP:              0.95,
			MaxOutputTokens:   1024,
		},
		Playback: PlaybackConfig{
			WordInterval: 75 * time.Millisecond,
		},
		Storage: StorageConfig{
			Backend: "file",
			Dir:     expandHome("~/.gemchat"),
			Key:     "chatbot_history",
		},
		Voice: VoiceConfig{
			Speech: true,
		},
		UI: UIConfig{
			Theme: "auto",
		},
		Log: LogConfig{
			Level: "info",
			File:  expandHome("~/.gemchat/gemchat.log"),
		},
	}
}

// DefaultPath is where Load looks when no path is given
func DefaultPath() string {
	return expandHome("~/.gemchat/config.toml")
}

// Load reads defaults, then the TOML file at path (if present), then environment overrides
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if !errors.Is(err, os.ErrNotExist) || explicit {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment: %w", err)
	}

	cfg.Storage.Dir = expandHome(cfg.Storage.Dir)
	cfg.Log.File = expandHome(cfg.Log.File)

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("gemini API key is not set (GEMINI_API_KEY or gemini.api_key)")
	}
	if c.Gemini.Model == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	if c.Gemini.Temperature < 0 || c.Gemini.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if c.Gemini.TopP < 0 || c.Gemini.TopP > 1 {
		return fmt.Errorf("top_p must be between 0 and 1")
	}
	if c.Gemini.TopK < 1 {
		return fmt.Errorf("top_k must be at least 1")
	}
	if c.Gemini.MaxOutputTokens < 1 {
		return fmt.Errorf("max_output_tokens must be at least 1")
	}
	if c.Playback.WordInterval <= 0 {
		return fmt.Errorf("word_interval must be positive")
	}
	switch c.Storage.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("storage backend must be \"file\" or \"sqlite\", got %q", c.Storage.Backend)
	}
	if c.Storage.Dir == "" {
		return fmt.Errorf("storage dir cannot be empty")
	}
	switch c.UI.Theme {
	case "auto", "dark", "light":
	default:
		return fmt.Errorf("theme must be auto, dark or light, got %q", c.UI.Theme)
	}
	return nil
}

// expandHome expands the ~ in file paths to the user's home directory
func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
