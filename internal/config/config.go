package config

import (
	"os"
	"path/filepath"
)

// RunConfig holds configuration for the tracker daemon.
type RunConfig struct {
	DatabasePath string // SQLite settings store
	LogDir       string // Directory for the tracking log
	PluginID     string // Settings key namespace
}

// WebConfig holds configuration for the HTTP UI.
type WebConfig struct {
	Port      int
	AuthToken string
}

// ClientConfig holds configuration for commands talking to a running daemon.
type ClientConfig struct {
	URL       string
	AuthToken string
}

// DataDir returns the default directory for the database and tracking log.
// It honours XDG_DATA_HOME and falls back to ~/.local/share.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "activity-tracker")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "activity-tracker"
	}
	return filepath.Join(home, ".local", "share", "activity-tracker")
}

// NotifyConfig holds the push notification channels for tracking changes.
// Channels with missing credentials are skipped.
type NotifyConfig struct {
	NtfyServer    string
	NtfyTopic     string
	NtfyToken     string
	PushoverToken string
	PushoverUser  string
}
