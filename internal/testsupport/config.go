// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"alchemy/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per
// test. It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.MediaDir = filepath.Join(base, "media")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.StatePath = filepath.Join(base, "studio.json")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Gemini.APIKey = "test-gemini"
	cfg.Qloo.APIKey = "test-qloo"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithAPIToken sets the API auth token on the test config.
func WithAPIToken(token string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Paths.APIToken = token
	}
}

// WithPollBudget overrides the campaign polling policy on the test config.
func WithPollBudget(maxAttempts, initialMS, stepMS, capMS int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Campaign.PollMaxAttempts = maxAttempts
		cfg.Campaign.PollInitialMS = initialMS
		cfg.Campaign.PollStepMS = stepMS
		cfg.Campaign.PollCapMS = capMS
	}
}
