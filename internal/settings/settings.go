// Package settings defines the tracker configuration record and its
// persistence in a namespaced key-value store.
package settings

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// DefaultPluginID is the key namespace used when none is configured.
const DefaultPluginID = "ActivityTracker"

// unsetInt marks an int value as "use the default" when saving.
const unsetInt = math.MinInt32

// Persisted field names. Keys are "<pluginID>-<field>".
const (
	KeyTracking                   = "isTracking"
	KeyPollIdeState               = "pollIdeState"
	KeyPollIdeStateMs             = "pollIdeStateMs"
	KeyTrackIdeActions            = "trackIdeActions"
	KeyTrackKeyboard              = "trackKeyboard"
	KeyTrackMouse                 = "trackMouse"
	KeyMouseMoveEventsThresholdMs = "mouseMoveEventsThresholdMs"
)

// Config is a snapshot of the tracking settings. It is a plain value:
// updates build a new Config and equality is ==.
type Config struct {
	Tracking                   bool `json:"tracking" yaml:"tracking"`
	PollIdeState               bool `json:"poll_ide_state" yaml:"poll_ide_state"`
	PollIdeStateMs             int  `json:"poll_ide_state_ms" yaml:"poll_ide_state_ms"`
	TrackIdeActions            bool `json:"track_ide_actions" yaml:"track_ide_actions"`
	TrackKeyboard              bool `json:"track_keyboard" yaml:"track_keyboard"`
	TrackMouse                 bool `json:"track_mouse" yaml:"track_mouse"`
	MouseMoveEventsThresholdMs int  `json:"mouse_move_events_threshold_ms" yaml:"mouse_move_events_threshold_ms"`
}

// Default is the configuration used for any field missing from the store.
var Default = Config{
	Tracking:                   true,
	PollIdeState:               true,
	PollIdeStateMs:             1000,
	TrackIdeActions:            true,
	TrackKeyboard:              false,
	TrackMouse:                 false,
	MouseMoveEventsThresholdMs: 250,
}

// Validation errors returned by Config.Validate.
var (
	ErrPollInterval       = errors.New("poll_ide_state_ms must be positive")
	ErrMouseMoveThreshold = errors.New("mouse_move_events_threshold_ms must not be negative")
)

// Validate checks field ranges. The controller accepts any Config; callers
// taking input from outside the process validate first.
func (c Config) Validate() error {
	if c.PollIdeStateMs <= 0 {
		return fmt.Errorf("%w: got %d", ErrPollInterval, c.PollIdeStateMs)
	}
	if c.MouseMoveEventsThresholdMs < 0 {
		return fmt.Errorf("%w: got %d", ErrMouseMoveThreshold, c.MouseMoveEventsThresholdMs)
	}
	return nil
}

// WorkerSpec is the part of Config the tracker needs to run.
type WorkerSpec struct {
	PollIdeState             bool
	PollIdeStateInterval     time.Duration
	TrackIdeActions          bool
	TrackKeyboard            bool
	TrackMouse               bool
	MouseMoveEventsThreshold time.Duration
}

// WorkerSpec derives the tracker configuration from c.
func (c Config) WorkerSpec() WorkerSpec {
	return WorkerSpec{
		PollIdeState:             c.PollIdeState,
		PollIdeStateInterval:     time.Duration(c.PollIdeStateMs) * time.Millisecond,
		TrackIdeActions:          c.TrackIdeActions,
		TrackKeyboard:            c.TrackKeyboard,
		TrackMouse:               c.TrackMouse,
		MouseMoveEventsThreshold: time.Duration(c.MouseMoveEventsThresholdMs) * time.Millisecond,
	}
}

// Store is a key-value settings backend.
//
// Getters return def when the key is absent or its value cannot be parsed.
// SetInt removes the key when value equals sentinel.
type Store interface {
	GetBool(ctx context.Context, key string, def bool) bool
	GetInt(ctx context.Context, key string, def int) int
	SetBool(ctx context.Context, key string, value bool) error
	SetInt(ctx context.Context, key string, value, sentinel int) error
}

// Key returns the namespaced store key for a field.
func Key(id, field string) string {
	return id + "-" + field
}

// Keys returns the seven store keys holding the Config for id.
func Keys(id string) []string {
	return []string{
		Key(id, KeyTracking),
		Key(id, KeyPollIdeState),
		Key(id, KeyPollIdeStateMs),
		Key(id, KeyTrackIdeActions),
		Key(id, KeyTrackKeyboard),
		Key(id, KeyTrackMouse),
		Key(id, KeyMouseMoveEventsThresholdMs),
	}
}

// Load reads a Config from store. Each field falls back to Default on its own.
func Load(ctx context.Context, store Store, id string) Config {
	return Config{
		Tracking:                   store.GetBool(ctx, Key(id, KeyTracking), Default.Tracking),
		PollIdeState:               store.GetBool(ctx, Key(id, KeyPollIdeState), Default.PollIdeState),
		PollIdeStateMs:             store.GetInt(ctx, Key(id, KeyPollIdeStateMs), Default.PollIdeStateMs),
		TrackIdeActions:            store.GetBool(ctx, Key(id, KeyTrackIdeActions), Default.TrackIdeActions),
		TrackKeyboard:              store.GetBool(ctx, Key(id, KeyTrackKeyboard), Default.TrackKeyboard),
		TrackMouse:                 store.GetBool(ctx, Key(id, KeyTrackMouse), Default.TrackMouse),
		MouseMoveEventsThresholdMs: store.GetInt(ctx, Key(id, KeyMouseMoveEventsThresholdMs), Default.MouseMoveEventsThresholdMs),
	}
}

// Save writes every field of cfg to store. All keys are attempted even if
// some fail; the failures are joined.
func Save(ctx context.Context, store Store, id string, cfg Config) error {
	var errs []error
	setBool := func(field string, v bool) {
		if err := store.SetBool(ctx, Key(id, field), v); err != nil {
			errs = append(errs, fmt.Errorf("save %s: %w", field, err))
		}
	}
	setInt := func(field string, v int) {
		if err := store.SetInt(ctx, Key(id, field), v, unsetInt); err != nil {
			errs = append(errs, fmt.Errorf("save %s: %w", field, err))
		}
	}

	setBool(KeyTracking, cfg.Tracking)
	setBool(KeyPollIdeState, cfg.PollIdeState)
	setInt(KeyPollIdeStateMs, cfg.PollIdeStateMs)
	setBool(KeyTrackIdeActions, cfg.TrackIdeActions)
	setBool(KeyTrackKeyboard, cfg.TrackKeyboard)
	setBool(KeyTrackMouse, cfg.TrackMouse)
	setInt(KeyMouseMoveEventsThresholdMs, cfg.MouseMoveEventsThresholdMs)

	return errors.Join(errs...)
}
