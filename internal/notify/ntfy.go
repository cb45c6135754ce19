package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// NtfyChannel publishes to an ntfy.sh or self-hosted ntfy topic.
type NtfyChannel struct {
	ServerURL string
	Topic     string
	Token     string // Optional access token
	client    *http.Client
}

// NtfyConfig configures an ntfy channel.
type NtfyConfig struct {
	ServerURL string
	Topic     string
	Token     string
}

// NewNtfyChannel creates a new ntfy notification channel.
func NewNtfyChannel(cfg NtfyConfig) *NtfyChannel {
	serverURL := cfg.ServerURL
	if serverURL == "" {
		serverURL = "https://ntfy.sh"
	}
	return &NtfyChannel{
		ServerURL: strings.TrimSuffix(serverURL, "/"),
		Topic:     cfg.Topic,
		Token:     cfg.Token,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Type returns the channel type.
func (n *NtfyChannel) Type() string {
	return "ntfy"
}

// Send publishes msg as a plain-text body with ntfy headers.
func (n *NtfyChannel) Send(ctx context.Context, msg *Message) error {
	url := fmt.Sprintf("%s/%s", n.ServerURL, n.Topic)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(msg.Body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Title", msg.Title)
	if len(msg.Tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.Tags, ","))
	}
	switch msg.Priority {
	case PriorityLow:
		req.Header.Set("Priority", "low")
	case PriorityHigh:
		req.Header.Set("Priority", "high")
	default:
		req.Header.Set("Priority", "default")
	}
	if n.Token != "" {
		req.Header.Set("Authorization", "Bearer "+n.Token)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("ntfy returned status %d", resp.StatusCode)
	}
	return nil
}
