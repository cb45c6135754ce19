// Package notify pushes tracking on/off changes to notification services.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/jandubois/activity-tracker/internal/config"
	"github.com/jandubois/activity-tracker/internal/settings"
)

// Channel is a notification channel.
type Channel interface {
	Send(ctx context.Context, msg *Message) error
	Type() string
}

// Message contains notification details.
type Message struct {
	Title    string
	Body     string
	Priority Priority
	Tags     []string
}

// Priority levels for notifications.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

// Channels builds the channels configured in cfg.
func Channels(cfg *config.NotifyConfig) []Channel {
	var channels []Channel
	if cfg.NtfyTopic != "" {
		channels = append(channels, NewNtfyChannel(NtfyConfig{
			ServerURL: cfg.NtfyServer,
			Topic:     cfg.NtfyTopic,
			Token:     cfg.NtfyToken,
		}))
	}
	if cfg.PushoverToken != "" && cfg.PushoverUser != "" {
		channels = append(channels, NewPushoverChannel(PushoverConfig{
			APIToken: cfg.PushoverToken,
			UserKey:  cfg.PushoverUser,
		}))
	}
	return channels
}

// FormatTrackingChange creates the message sent when tracking is turned on
// or off on host.
func FormatTrackingChange(cfg settings.Config, host string) *Message {
	if !cfg.Tracking {
		return &Message{
			Title:    "Tracking paused",
			Body:     fmt.Sprintf("Activity tracking was turned off on %s.", host),
			Priority: PriorityNormal,
			Tags:     []string{"tracking", "off"},
		}
	}

	var sources []string
	if cfg.PollIdeState {
		sources = append(sources, "IDE state")
	}
	if cfg.TrackIdeActions {
		sources = append(sources, "IDE actions")
	}
	if cfg.TrackKeyboard {
		sources = append(sources, "keyboard")
	}
	if cfg.TrackMouse {
		sources = append(sources, "mouse")
	}
	recording := "nothing"
	if len(sources) > 0 {
		recording = strings.Join(sources, ", ")
	}

	return &Message{
		Title:    "Tracking resumed",
		Body:     fmt.Sprintf("Activity tracking is on on %s, recording %s.", host, recording),
		Priority: PriorityLow,
		Tags:     []string{"tracking", "on"},
	}
}
