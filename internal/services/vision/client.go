package vision

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

const analysisPrompt = `Analyze this image for advertising reuse. Respond with JSON only:
{"summary": "<one sentence>", "subjects": ["..."], "styles": ["..."]}`

// Config captures the runtime settings required to talk to the vision model.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Insights is the structured result of analyzing one image.
type Insights struct {
	Summary  string   `json:"summary"`
	Subjects []string `json:"subjects"`
	Styles   []string `json:"styles"`
}

// Client wraps the Gemini image-understanding endpoint.
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

// NewClient constructs a vision client using the supplied configuration.
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
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Analyze submits image bytes for structured analysis.
func (c *Client) Analyze(ctx context.Context, image []byte, mimeType string) (Insights, error) {
	var empty Insights
	if len(image) == 0 {
		return empty, errors.New("vision analyze: image bytes required")
	}
	if c.cfg.APIKey == "" {
		return empty, errors.New("vision analyze: api key required")
	}
	if mimeType = strings.TrimSpace(mimeType); mimeType == "" {
		mimeType = "image/png"
	}

	payload := generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: analysisPrompt},
				{InlineData: &inlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(image),
				}},
			},
		}},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return empty, fmt.Errorf("vision analyze: encode body: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.cfg.BaseURL, c.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return empty, fmt.Errorf("vision analyze: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return empty, fmt.Errorf("vision analyze: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return empty, fmt.Errorf("vision analyze: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return empty, &services.StatusError{Service: "vision", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return empty, fmt.Errorf("vision analyze: decode response: %w", err)
	}
	if decoded.Error != nil {
		return empty, fmt.Errorf("vision analyze: api error: %s", strings.TrimSpace(decoded.Error.Message))
	}

	text := firstCandidateText(decoded)
	if text == "" {
		return empty, errors.New("vision analyze: empty candidates")
	}
	var insights Insights
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &insights); err != nil {
		// Models occasionally answer in prose; salvage it as the summary.
		insights = Insights{Summary: strings.TrimSpace(text)}
	}
	return insights, nil
}

func firstCandidateText(resp generateResponse) string {
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			if trimmed := strings.TrimSpace(p.Text); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := strings.TrimPrefix(trimmed, "```")
	body = strings.TrimLeft(body, " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = strings.TrimLeft(body[4:], " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}
