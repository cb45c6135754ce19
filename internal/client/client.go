// Package client talks to a running tracker daemon over its HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jandubois/activity-tracker/internal/settings"
	"github.com/jandubois/activity-tracker/internal/trackerlog"
	"github.com/jandubois/activity-tracker/internal/web"
)

// Client communicates with the daemon's web UI.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
	retryDelay []time.Duration
}

// New creates a client for the daemon at baseURL.
func New(baseURL, authToken string) *Client {
	return &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		authToken: authToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		retryDelay: []time.Duration{0, 1 * time.Second, 2 * time.Second, 5 * time.Second},
	}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Body)
}

// Health checks that the daemon is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil)
}

// State returns the daemon's current state.
func (c *Client) State(ctx context.Context) (*web.StateResponse, error) {
	var resp web.StateResponse
	if err := c.do(ctx, http.MethodGet, "/api/state", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ToggleTracking flips tracking on the daemon.
func (c *Client) ToggleTracking(ctx context.Context) (*web.StateResponse, error) {
	var resp web.StateResponse
	if err := c.do(ctx, http.MethodPost, "/api/tracking/toggle", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateSettings applies patch on the daemon.
func (c *Client) UpdateSettings(ctx context.Context, patch settings.Patch) (*web.StateResponse, error) {
	var resp web.StateResponse
	if err := c.do(ctx, http.MethodPatch, "/api/settings", patch, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendEvents pushes events to the daemon, retrying transient failures.
func (c *Client) SendEvents(ctx context.Context, events []trackerlog.Event) (*web.EventsResponse, error) {
	var resp web.EventsResponse
	if err := c.doWithRetry(ctx, http.MethodPost, "/api/events", events, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// OpenLog asks the daemon to open the tracking log in an editor.
func (c *Client) OpenLog(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/log/open", nil, nil)
}

// OpenLogFolder asks the daemon to reveal the tracking log's folder.
func (c *Client) OpenLogFolder(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/log/open-folder", nil, nil)
}

// doWithRetry retries network errors and 5xx responses with backoff.
func (c *Client) doWithRetry(ctx context.Context, method, path string, body, response any) error {
	var lastErr error
	for attempt, delay := range c.retryDelay {
		if delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		lastErr = c.do(ctx, method, path, body, response)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if se, ok := lastErr.(*StatusError); ok && se.StatusCode < 500 {
			return lastErr
		}

		slog.Warn("request failed, retrying", "path", path, "attempt", attempt+1, "error", lastErr)
	}

	return fmt.Errorf("request failed after %d attempts: %w", len(c.retryDelay), lastErr)
}

func (c *Client) do(ctx context.Context, method, path string, body, response any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if response != nil {
		if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}
