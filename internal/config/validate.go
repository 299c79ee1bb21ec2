package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable. Vendor API keys are allowed
// to be empty here; the clients that need them fail at call time instead, so
// a partially configured install can still stream progress and browse assets.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateGemini(); err != nil {
		return err
	}
	if err := c.validateQloo(); err != nil {
		return err
	}
	if err := c.validateCampaign(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.MediaDir == "" {
		return errors.New("paths.media_dir must be set")
	}
	if c.Paths.StatePath == "" {
		return errors.New("paths.state_path must be set")
	}
	if c.Paths.APIBind == "" {
		return errors.New("paths.api_bind must be set")
	}
	if !strings.Contains(c.Paths.APIBind, ":") {
		return fmt.Errorf("paths.api_bind %q must be host:port", c.Paths.APIBind)
	}
	return nil
}

func (c *Config) validateGemini() error {
	if _, err := url.Parse(c.Gemini.BaseURL); err != nil {
		return fmt.Errorf("gemini.base_url: %w", err)
	}
	if c.Gemini.ImageModel == "" {
		return errors.New("gemini.image_model must be set")
	}
	if c.Gemini.VideoModel == "" {
		return errors.New("gemini.video_model must be set")
	}
	return nil
}

func (c *Config) validateQloo() error {
	if _, err := url.Parse(c.Qloo.BaseURL); err != nil {
		return fmt.Errorf("qloo.base_url: %w", err)
	}
	if c.Qloo.RedisURL != "" && !strings.Contains(c.Qloo.RedisURL, "://") {
		return fmt.Errorf("qloo.redis_url %q must be a redis URL (redis://...)", c.Qloo.RedisURL)
	}
	return nil
}

func (c *Config) validateCampaign() error {
	if c.Campaign.PollCapMS < c.Campaign.PollInitialMS {
		return errors.New("campaign.poll_cap_ms must be >= campaign.poll_initial_ms")
	}
	return nil
}
