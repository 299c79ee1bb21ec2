package apiclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"alchemy/internal/assets"
	"alchemy/internal/campaign"
	"alchemy/internal/progress"
	"alchemy/internal/server"
)

// ErrAPIUnavailable indicates the daemon API could not be reached.
var ErrAPIUnavailable = errors.New("daemon API unavailable")

// Client talks to a running alchemy daemon.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
	// streamHTTP carries no timeout: the progress stream blocks until
	// the caller cancels.
	streamHTTP *http.Client
}

// New builds a client for the daemon bound at bind. token may be empty
// when the daemon runs without authentication.
func New(bind, token string) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, errors.New("api bind address required")
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, err
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	return &Client{
		base:       base,
		token:      token,
		http:       &http.Client{Timeout: 30 * time.Second},
		streamHTTP: &http.Client{},
	}, nil
}

// Status fetches daemon runtime state.
func (c *Client) Status(ctx context.Context) (server.Status, error) {
	var status server.Status
	err := c.getJSON(ctx, "/api/status", nil, &status)
	return status, err
}

// Push publishes one progress message to a session.
func (c *Client) Push(ctx context.Context, session, message string) error {
	payload := map[string]string{"session": session, "message": message}
	var ack struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := c.postJSON(ctx, "/api/progress/push", payload, &ack); err != nil {
		return err
	}
	if !ack.OK {
		return fmt.Errorf("push rejected: %s", ack.Error)
	}
	return nil
}

// StartRun submits a campaign run. The daemon acknowledges immediately;
// progress arrives on the session's stream.
func (c *Client) StartRun(ctx context.Context, req campaign.RunRequest) error {
	var ack struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := c.postJSON(ctx, "/api/campaign/run", req, &ack); err != nil {
		return err
	}
	if !ack.OK {
		return fmt.Errorf("run rejected: %s", ack.Error)
	}
	return nil
}

// Assets lists persisted artifacts, optionally scoped to one session.
func (c *Client) Assets(ctx context.Context, session string) ([]*assets.Asset, error) {
	values := url.Values{}
	if session = strings.TrimSpace(session); session != "" {
		values.Set("session", session)
	}
	var payload struct {
		Assets []*assets.Asset `json:"assets"`
	}
	if err := c.getJSON(ctx, "/api/assets", values, &payload); err != nil {
		return nil, err
	}
	return payload.Assets, nil
}

// Follow subscribes to a session's progress stream and invokes fn for
// each message until ctx is cancelled or the stream ends. Heartbeat
// comments are skipped.
func (c *Client) Follow(ctx context.Context, session string, fn func(progress.Message)) error {
	values := url.Values{}
	if session = strings.TrimSpace(session); session != "" {
		values.Set("session", session)
	}
	endpoint := c.endpoint("/api/progress", values)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.streamHTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAPIUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("progress stream: status %d", resp.StatusCode)
	}

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("progress stream read: %w", err)
		}
		line = strings.TrimRight(line, "\n")
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var msg progress.Message
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg); err != nil {
			continue
		}
		fn(msg)
	}
}

func (c *Client) endpoint(path string, values url.Values) string {
	target := *c.base
	target.Path = path
	if len(values) > 0 {
		target.RawQuery = values.Encode()
	}
	return target.String()
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *Client) getJSON(ctx context.Context, path string, values url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, values), nil)
	if err != nil {
		return err
	}
	c.authorize(req)
	return c.do(req, out, http.StatusOK)
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, nil), bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)
	// Rejections carry a decodable body alongside the 400.
	return c.do(req, out, http.StatusOK, http.StatusBadRequest)
}

func (c *Client) do(req *http.Request, out any, acceptable ...int) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAPIUnavailable, err)
	}
	defer resp.Body.Close()
	accepted := false
	for _, status := range acceptable {
		if resp.StatusCode == status {
			accepted = true
			break
		}
	}
	if !accepted {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
