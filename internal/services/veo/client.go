package veo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"alchemy/internal/services"
)

const defaultHTTPTimeout = 120 * time.Second

// Config captures the runtime settings required to talk to the video
// generation API.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Operation is the state of a long-running video generation job.
type Operation struct {
	Name     string
	Done     bool
	VideoURI string
	Err      error
}

// Client wraps the Veo long-running prediction endpoint.
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

// NewClient constructs a video generation client.
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

type generateRequest struct {
	Instances []instance `json:"instances"`
}

type instance struct {
	Prompt string `json:"prompt"`
	Image  *image `json:"image,omitempty"`
}

type image struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

// Generate starts a video generation job and returns the pending
// operation. imageData may be nil for text-only generation.
func (c *Client) Generate(ctx context.Context, prompt string, imageData []byte, mimeType string) (Operation, error) {
	var empty Operation
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return empty, errors.New("veo generate: prompt required")
	}
	if c.cfg.APIKey == "" {
		return empty, errors.New("veo generate: api key required")
	}

	inst := instance{Prompt: prompt}
	if len(imageData) > 0 {
		if mimeType == "" {
			mimeType = "image/png"
		}
		inst.Image = &image{BytesBase64Encoded: encodeBase64(imageData), MimeType: mimeType}
	}
	encoded, err := json.Marshal(generateRequest{Instances: []instance{inst}})
	if err != nil {
		return empty, fmt.Errorf("veo generate: encode body: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:predictLongRunning", c.cfg.BaseURL, c.cfg.Model)
	body, err := c.post(ctx, endpoint, encoded)
	if err != nil {
		return empty, err
	}

	var decoded struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return empty, fmt.Errorf("veo generate: decode response: %w", err)
	}
	if strings.TrimSpace(decoded.Name) == "" {
		return empty, errors.New("veo generate: missing operation name")
	}
	return Operation{Name: decoded.Name}, nil
}

// Poll refreshes op from the operations endpoint.
func (c *Client) Poll(ctx context.Context, op Operation) (Operation, error) {
	if strings.TrimSpace(op.Name) == "" {
		return op, errors.New("veo poll: operation name required")
	}
	endpoint := fmt.Sprintf("%s/%s", c.cfg.BaseURL, strings.TrimLeft(op.Name, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return op, fmt.Errorf("veo poll: new request: %w", err)
	}
	req.Header.Set("X-Goog-Api-Key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return op, fmt.Errorf("veo poll: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return op, fmt.Errorf("veo poll: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return op, &services.StatusError{Service: "veo", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var decoded operationPayload
	if err := json.Unmarshal(body, &decoded); err != nil {
		return op, fmt.Errorf("veo poll: decode response: %w", err)
	}
	op.Done = decoded.Done
	if decoded.Error != nil {
		op.Err = fmt.Errorf("veo operation failed: %s", strings.TrimSpace(decoded.Error.Message))
		return op, nil
	}
	if decoded.Done {
		op.VideoURI = resolveURI(decoded)
	}
	return op, nil
}

// Download fetches the finished video bytes from uri. The API key is
// passed as a query parameter because operation download links reject
// header auth.
func (c *Client) Download(ctx context.Context, uri string) ([]byte, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, errors.New("veo download: uri required")
	}
	separator := "?"
	if strings.Contains(uri, "?") {
		separator = "&"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri+separator+"key="+c.cfg.APIKey, nil)
	if err != nil {
		return nil, fmt.Errorf("veo download: new request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("veo download: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("veo download: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &services.StatusError{Service: "veo", StatusCode: resp.StatusCode, Body: string(body)}
	}
	if len(body) == 0 {
		return nil, errors.New("veo download: empty body")
	}
	return body, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("veo: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("veo: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("veo: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &services.StatusError{Service: "veo", StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
