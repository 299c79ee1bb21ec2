package qloo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"alchemy/internal/logging"
	"alchemy/internal/services"
)

const defaultHTTPTimeout = 30 * time.Second

// Config captures the runtime settings required to talk to the cultural
// intelligence service.
type Config struct {
	APIKey         string
	BaseURL        string
	TimeoutSeconds int
}

// Obsession is one trending theme for a locale.
type Obsession struct {
	Topic string `json:"topic"`
}

// Analysis is the cultural signal summary for one city/country pair.
type Analysis struct {
	Themes struct {
		CurrentObsessions []Obsession `json:"current_obsessions"`
	} `json:"themes"`
	Communication struct {
		TonePreferences []string `json:"tone_preferences"`
	} `json:"communication"`
	Aesthetics struct {
		VisualStyles []string `json:"visual_styles"`
	} `json:"aesthetics"`
	Brands struct {
		LovedBrands []string `json:"loved_brands"`
	} `json:"brands"`
}

// Hints serializes the cue subset used for prompt synthesis.
func (a Analysis) Hints() string {
	hints := struct {
		Aesthetics    any `json:"aesthetics"`
		Communication any `json:"communication"`
		Themes        any `json:"themes"`
	}{a.Aesthetics, a.Communication, a.Themes}
	encoded, err := json.Marshal(hints)
	if err != nil {
		return ""
	}
	return string(encoded)
}

// Cache stores analysis responses keyed by locale. Implementations must be
// safe for concurrent use; failures are advisory and never abort a lookup.
type Cache interface {
	Get(ctx context.Context, key string) (Analysis, bool, error)
	Set(ctx context.Context, key string, analysis Analysis) error
}

// Client wraps the cultural intelligence API with an optional response cache.
type Client struct {
	cfg        Config
	httpClient *http.Client
	cache      Cache
	logger     *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithCache wires a response cache in front of the API.
func WithCache(cache Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithLogger overrides the default no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "qloo")
		}
	}
}

// NewClient constructs a cultural intelligence client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:  strings.TrimSpace(cfg.APIKey),
			BaseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		},
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type lookupRequest struct {
	City          string `json:"city"`
	Country       string `json:"country"`
	AnalysisDepth string `json:"analysisDepth"`
}

type lookupResponse struct {
	Analysis Analysis `json:"analysis"`
	Error    string   `json:"error"`
}

// Lookup fetches cultural signals for a city/country pair, consulting the
// cache first when one is configured.
func (c *Client) Lookup(ctx context.Context, city, country string) (Analysis, error) {
	var empty Analysis
	city = strings.TrimSpace(city)
	country = strings.TrimSpace(country)
	if city == "" && country == "" {
		return empty, errors.New("qloo lookup: city or country required")
	}
	if c.cfg.APIKey == "" {
		return empty, errors.New("qloo lookup: api key required")
	}

	key := cacheKey(city, country)
	if c.cache != nil {
		if cached, ok, err := c.cache.Get(ctx, key); err != nil {
			c.logger.Warn("cache read failed", logging.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	analysis, err := c.fetch(ctx, city, country)
	if err != nil {
		return empty, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, analysis); err != nil {
			c.logger.Warn("cache write failed", logging.Error(err))
		}
	}
	return analysis, nil
}

func (c *Client) fetch(ctx context.Context, city, country string) (Analysis, error) {
	var empty Analysis
	encoded, err := json.Marshal(lookupRequest{City: city, Country: country, AnalysisDepth: "basic"})
	if err != nil {
		return empty, fmt.Errorf("qloo lookup: encode body: %w", err)
	}

	endpoint := c.cfg.BaseURL + "/cultural/intelligence"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return empty, fmt.Errorf("qloo lookup: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return empty, fmt.Errorf("qloo lookup: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return empty, fmt.Errorf("qloo lookup: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return empty, &services.StatusError{Service: "qloo", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var decoded lookupResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return empty, fmt.Errorf("qloo lookup: decode response: %w", err)
	}
	if decoded.Error != "" {
		return empty, fmt.Errorf("qloo lookup: api error: %s", decoded.Error)
	}
	return decoded.Analysis, nil
}

func cacheKey(city, country string) string {
	return strings.ToLower(city) + "|" + strings.ToLower(country)
}
