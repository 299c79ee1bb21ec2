package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	MediaDir  string `toml:"media_dir"`
	LogDir    string `toml:"log_dir"`
	StatePath string `toml:"state_path"`
	APIBind   string `toml:"api_bind"`
	APIToken  string `toml:"api_token"`
}

// Gemini contains connection settings for the Google generative APIs used by
// the vision, imagen, and veo clients.
type Gemini struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	VisionModel    string `toml:"vision_model"`
	ImageModel     string `toml:"image_model"`
	VideoModel     string `toml:"video_model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Qloo contains connection settings for the cultural intelligence API.
type Qloo struct {
	APIKey          string `toml:"api_key"`
	BaseURL         string `toml:"base_url"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	RedisURL        string `toml:"redis_url"`
	CacheTTLMinutes int    `toml:"cache_ttl_minutes"`
}

// Campaign contains orchestration timing knobs.
type Campaign struct {
	PollMaxAttempts int `toml:"poll_max_attempts"`
	PollInitialMS   int `toml:"poll_initial_ms"`
	PollStepMS      int `toml:"poll_step_ms"`
	PollCapMS       int `toml:"poll_cap_ms"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Alchemy.
//
// Configuration sections by subsystem:
//   - Paths: directories, studio state file, and API bind address
//   - Gemini: image analysis plus image/video generation connection settings
//   - Qloo: cultural intelligence connection settings and response cache
//   - Campaign: video operation polling budget
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Gemini   Gemini   `toml:"gemini"`
	Qloo     Qloo     `toml:"qloo"`
	Campaign Campaign `toml:"campaign"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/alchemy/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and vendor keys resolved from the
// environment when the file leaves them empty.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("alchemy.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.MediaDir, c.Paths.LogDir, filepath.Dir(c.Paths.StatePath)}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// SampleConfig returns the embedded reference configuration.
func SampleConfig() string {
	return sampleConfig
}
