package imagen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"alchemy/internal/services"
)

const defaultHTTPTimeout = 60 * time.Second

// Config captures the runtime settings required to talk to the image
// generation API.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Image is one generated image.
type Image struct {
	Data     []byte
	MimeType string
}

// Client wraps the Imagen prediction endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
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

// NewClient constructs an image generation client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:  strings.TrimSpace(cfg.APIKey),
			BaseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:   strings.TrimSpace(cfg.Model),
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type predictRequest struct {
	Instances  []instance `json:"instances"`
	Parameters parameters `json:"parameters"`
}

type instance struct {
	Prompt string `json:"prompt"`
}

type parameters struct {
	SampleCount int `json:"sampleCount"`
}

type predictResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MimeType           string `json:"mimeType"`
	} `json:"predictions"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate produces one image for prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (Image, error) {
	var empty Image
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return empty, errors.New("imagen generate: prompt required")
	}
	if c.cfg.APIKey == "" {
		return empty, errors.New("imagen generate: api key required")
	}

	encoded, err := json.Marshal(predictRequest{
		Instances:  []instance{{Prompt: prompt}},
		Parameters: parameters{SampleCount: 1},
	})
	if err != nil {
		return empty, fmt.Errorf("imagen generate: encode body: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:predict", c.cfg.BaseURL, c.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return empty, fmt.Errorf("imagen generate: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return empty, fmt.Errorf("imagen generate: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return empty, fmt.Errorf("imagen generate: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return empty, &services.StatusError{Service: "imagen", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var decoded predictResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return empty, fmt.Errorf("imagen generate: decode response: %w", err)
	}
	if decoded.Error != nil {
		return empty, fmt.Errorf("imagen generate: api error: %s", strings.TrimSpace(decoded.Error.Message))
	}
	if len(decoded.Predictions) == 0 {
		return empty, errors.New("imagen generate: empty predictions")
	}

	first := decoded.Predictions[0]
	data, err := base64.StdEncoding.DecodeString(first.BytesBase64Encoded)
	if err != nil {
		return empty, fmt.Errorf("imagen generate: decode image bytes: %w", err)
	}
	mimeType := strings.TrimSpace(first.MimeType)
	if mimeType == "" {
		mimeType = "image/png"
	}
	return Image{Data: data, MimeType: mimeType}, nil
}
