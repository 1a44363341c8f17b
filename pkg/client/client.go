// Package client provides an HTTP client for a svcdeck daemon's API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Service is one row of the daemon's service table.
type Service struct {
	Name      string `json:"name"`
	Display   string `json:"display"`
	State     string `json:"state"`
	Tentative bool   `json:"tentative"`
}

// Outcome is the terminal result of a synchronous drive request.
type Outcome struct {
	Service string `json:"service"`
	Action  string `json:"action"`
	Outcome string `json:"outcome"`
}

// Client communicates with a svcdeck daemon.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Config holds client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger
}

// DefaultConfig returns default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://127.0.0.1:8440/api",
		Timeout: 30 * time.Second,
	}
}

// New creates a new svcdeck API client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

// Services lists the daemon's service table, optionally narrowed by a
// free-text query with the same semantics as the interactive filter.
func (c *Client) Services(ctx context.Context, query string) ([]Service, error) {
	u := c.baseURL + "/services"
	if query != "" {
		u += "?q=" + url.QueryEscape(query)
	}
	var out []Service
	if err := c.get(ctx, u, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Drive requests an action ("start", "stop", "restart", "uninstall")
// against one service. With wait true it blocks until the daemon
// reports the drive's terminal outcome; otherwise the returned Outcome
// has an empty Outcome field and the drive continues server-side.
func (c *Client) Drive(ctx context.Context, name, action string, wait bool) (Outcome, error) {
	u := fmt.Sprintf("%s/%s?name=%s", c.baseURL, action, url.QueryEscape(name))
	if wait {
		u += "&wait=1"
	}
	var out Outcome
	if err := c.post(ctx, u, &out); err != nil {
		return Outcome{}, err
	}
	out.Service = name
	out.Action = action
	return out, nil
}

// Reload asks the daemon to rebuild its full snapshot table.
func (c *Client) Reload(ctx context.Context) error {
	return c.post(ctx, c.baseURL+"/reload", nil)
}

func (c *Client) get(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("api error (%d): %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("api error (%d): %s", resp.StatusCode, string(body))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}
