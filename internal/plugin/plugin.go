// Package plugin holds the controller that owns the tracker settings and
// drives the tracker, the UI observer and the settings store from them.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/jandubois/activity-tracker/internal/settings"
)

// Worker is the tracker the controller starts and stops.
//
// Stop must be safe to call when the worker is not running. Start is only
// called after Stop.
type Worker interface {
	Start(spec settings.WorkerSpec) error
	Stop() error
}

// Observer receives every accepted Config and the current Config on attach.
// An observer that also implements Closed is dropped once Closed reports true.
type Observer interface {
	Update(cfg settings.Config)
}

// LogLocator resolves the current tracking log file.
type LogLocator interface {
	CurrentLogFile() string
}

// Host opens files and folders for the user.
type Host interface {
	OpenInEditor(path string) error
	OpenFolder(path string) error
}

// ErrNoTrackerLog is returned by the log actions when no log is configured.
var ErrNoTrackerLog = errors.New("no tracker log configured")

// WorkerError reports a failed Start or Stop of the worker.
type WorkerError struct {
	Op  string
	Err error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("tracker %s: %v", e.Op, e.Err)
}

func (e *WorkerError) Unwrap() error {
	return e.Err
}

// Controller is the single authority over the current Config.
type Controller struct {
	worker Worker
	store  settings.Store
	id     string
	log    LogLocator
	host   Host

	mu       sync.Mutex
	state    settings.Config
	observer Observer
}

// Option configures a Controller.
type Option func(*Controller)

// WithPluginID sets the store key namespace.
func WithPluginID(id string) Option {
	return func(c *Controller) { c.id = id }
}

// WithTrackerLog sets the log used by OpenTrackingLogFile and OpenTrackingLogFolder.
func WithTrackerLog(l LogLocator) Option {
	return func(c *Controller) { c.log = l }
}

// WithHost sets the host services used to open the tracking log.
func WithHost(h Host) Option {
	return func(c *Controller) { c.host = h }
}

// New creates a Controller. Call Initialize before use.
func New(worker Worker, store settings.Store, opts ...Option) *Controller {
	c := &Controller{
		worker: worker,
		store:  store,
		id:     settings.DefaultPluginID,
		state:  settings.Default,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize loads the Config from the store and applies it, so the worker
// reflects the stored state from the start.
func (c *Controller) Initialize(ctx context.Context) (settings.Config, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = settings.Load(ctx, c.store, c.id)
	slog.Info("settings loaded", "plugin_id", c.id, "tracking", c.state.Tracking)
	return c.state, c.apply(ctx, c.state)
}

// State returns the current Config.
func (c *Controller) State() settings.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// AttachObserver replaces the observer and pushes the current Config to it.
// The returned func clears the slot if it still holds o.
func (c *Controller) AttachObserver(o Observer) (detach func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.observer = o
	c.notify(c.state)

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.observer == o {
			c.observer = nil
		}
	}
}

// Update replaces the Config with fn(current). Nothing happens if the
// result equals the current Config.
func (c *Controller) Update(ctx context.Context, fn func(settings.Config) settings.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.state
	c.state = fn(old)
	if c.state == old {
		return nil
	}
	return c.apply(ctx, c.state)
}

// ToggleTracking flips Tracking.
func (c *Controller) ToggleTracking(ctx context.Context) error {
	return c.Update(ctx, func(cfg settings.Config) settings.Config {
		cfg.Tracking = !cfg.Tracking
		return cfg
	})
}

// EnablePollIdeState sets PollIdeState.
func (c *Controller) EnablePollIdeState(ctx context.Context, value bool) error {
	return c.Update(ctx, func(cfg settings.Config) settings.Config {
		cfg.PollIdeState = value
		return cfg
	})
}

// SetPollIdeStateMs sets PollIdeStateMs.
func (c *Controller) SetPollIdeStateMs(ctx context.Context, ms int) error {
	return c.Update(ctx, func(cfg settings.Config) settings.Config {
		cfg.PollIdeStateMs = ms
		return cfg
	})
}

// EnableTrackIdeActions sets TrackIdeActions.
func (c *Controller) EnableTrackIdeActions(ctx context.Context, value bool) error {
	return c.Update(ctx, func(cfg settings.Config) settings.Config {
		cfg.TrackIdeActions = value
		return cfg
	})
}

// EnableTrackKeyboard sets TrackKeyboard.
func (c *Controller) EnableTrackKeyboard(ctx context.Context, value bool) error {
	return c.Update(ctx, func(cfg settings.Config) settings.Config {
		cfg.TrackKeyboard = value
		return cfg
	})
}

// EnableTrackMouse sets TrackMouse.
func (c *Controller) EnableTrackMouse(ctx context.Context, value bool) error {
	return c.Update(ctx, func(cfg settings.Config) settings.Config {
		cfg.TrackMouse = value
		return cfg
	})
}

// SetMouseMoveEventsThresholdMs sets MouseMoveEventsThresholdMs.
func (c *Controller) SetMouseMoveEventsThresholdMs(ctx context.Context, ms int) error {
	return c.Update(ctx, func(cfg settings.Config) settings.Config {
		cfg.MouseMoveEventsThresholdMs = ms
		return cfg
	})
}

// OpenTrackingLogFile opens the current tracking log in an editor.
func (c *Controller) OpenTrackingLogFile() error {
	if c.log == nil || c.host == nil {
		return ErrNoTrackerLog
	}
	return c.host.OpenInEditor(c.log.CurrentLogFile())
}

// OpenTrackingLogFolder opens the folder containing the tracking log.
func (c *Controller) OpenTrackingLogFolder() error {
	if c.log == nil || c.host == nil {
		return ErrNoTrackerLog
	}
	return c.host.OpenFolder(filepath.Dir(c.log.CurrentLogFile()))
}

// apply runs stop, conditional start, observer push and save, in that order.
// Must be called with mu held.
func (c *Controller) apply(ctx context.Context, cfg settings.Config) error {
	if err := c.worker.Stop(); err != nil {
		return &WorkerError{Op: "stop", Err: err}
	}

	var startErr error
	if cfg.Tracking {
		if err := c.worker.Start(cfg.WorkerSpec()); err != nil {
			startErr = &WorkerError{Op: "start", Err: err}
		}
	}

	c.notify(cfg)

	if err := settings.Save(ctx, c.store, c.id, cfg); err != nil {
		slog.Error("failed to persist settings", "plugin_id", c.id, "error", err)
	}

	slog.Debug("settings applied", "config", cfg)
	return startErr
}

// notify pushes cfg to the observer. Must be called with mu held.
func (c *Controller) notify(cfg settings.Config) {
	if c.observer == nil {
		return
	}
	if closer, ok := c.observer.(interface{ Closed() bool }); ok && closer.Closed() {
		c.observer = nil
		return
	}
	c.observer.Update(cfg)
}
