package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeGemini()
	c.normalizeQloo()
	c.normalizeCampaign()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.MediaDir) == "" {
		c.Paths.MediaDir = defaultMediaDir
	}
	if c.Paths.MediaDir, err = expandPath(c.Paths.MediaDir); err != nil {
		return fmt.Errorf("paths.media_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StatePath) == "" {
		c.Paths.StatePath = defaultStatePath
	}
	if c.Paths.StatePath, err = expandPath(c.Paths.StatePath); err != nil {
		return fmt.Errorf("paths.state_path: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeGemini() {
	c.Gemini.APIKey = strings.TrimSpace(c.Gemini.APIKey)
	if c.Gemini.APIKey == "" {
		c.Gemini.APIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	}
	c.Gemini.BaseURL = strings.TrimRight(strings.TrimSpace(c.Gemini.BaseURL), "/")
	if c.Gemini.BaseURL == "" {
		c.Gemini.BaseURL = defaultGeminiBaseURL
	}
	if strings.TrimSpace(c.Gemini.VisionModel) == "" {
		c.Gemini.VisionModel = defaultGeminiVisionModel
	}
	if strings.TrimSpace(c.Gemini.ImageModel) == "" {
		c.Gemini.ImageModel = defaultGeminiImageModel
	}
	if strings.TrimSpace(c.Gemini.VideoModel) == "" {
		c.Gemini.VideoModel = defaultGeminiVideoModel
	}
	if c.Gemini.TimeoutSeconds <= 0 {
		c.Gemini.TimeoutSeconds = defaultGeminiTimeout
	}
}

func (c *Config) normalizeQloo() {
	c.Qloo.APIKey = strings.TrimSpace(c.Qloo.APIKey)
	if c.Qloo.APIKey == "" {
		c.Qloo.APIKey = strings.TrimSpace(os.Getenv("QLOO_API_KEY"))
	}
	c.Qloo.BaseURL = strings.TrimRight(strings.TrimSpace(c.Qloo.BaseURL), "/")
	if c.Qloo.BaseURL == "" {
		c.Qloo.BaseURL = defaultQlooBaseURL
	}
	if c.Qloo.TimeoutSeconds <= 0 {
		c.Qloo.TimeoutSeconds = defaultQlooTimeout
	}
	c.Qloo.RedisURL = strings.TrimSpace(c.Qloo.RedisURL)
	if c.Qloo.RedisURL == "" {
		c.Qloo.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	}
	if c.Qloo.CacheTTLMinutes <= 0 {
		c.Qloo.CacheTTLMinutes = defaultQlooCacheTTL
	}
}

func (c *Config) normalizeCampaign() {
	if c.Campaign.PollMaxAttempts <= 0 {
		c.Campaign.PollMaxAttempts = defaultPollMaxAttempts
	}
	if c.Campaign.PollInitialMS <= 0 {
		c.Campaign.PollInitialMS = defaultPollInitialMS
	}
	if c.Campaign.PollStepMS < 0 {
		c.Campaign.PollStepMS = defaultPollStepMS
	}
	if c.Campaign.PollCapMS <= 0 {
		c.Campaign.PollCapMS = defaultPollCapMS
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		trimmed = filepath.Join(home, trimmed[2:])
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}
	return abs, nil
}
