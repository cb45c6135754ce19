package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jandubois/activity-tracker/internal/settings"
)

const sendTimeout = 15 * time.Second

// Dispatcher sends a message to every channel whenever tracking flips.
type Dispatcher struct {
	host     string
	channels []Channel

	mu   sync.Mutex
	seen bool
	last bool
	wg   sync.WaitGroup
}

// NewDispatcher creates a dispatcher naming host in its messages.
func NewDispatcher(host string, channels ...Channel) *Dispatcher {
	return &Dispatcher{host: host, channels: channels}
}

// Len returns the number of configured channels.
func (d *Dispatcher) Len() int {
	return len(d.channels)
}

// Observe is called with each Config pushed to an observer. The first
// Config sets the baseline; later ones notify only when Tracking changes.
func (d *Dispatcher) Observe(cfg settings.Config) {
	d.mu.Lock()
	changed := d.seen && d.last != cfg.Tracking
	d.seen = true
	d.last = cfg.Tracking
	d.mu.Unlock()

	if !changed || len(d.channels) == 0 {
		return
	}

	msg := FormatTrackingChange(cfg, d.host)
	for _, ch := range d.channels {
		d.wg.Add(1)
		go func(ch Channel) {
			defer d.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			defer cancel()

			if err := ch.Send(ctx, msg); err != nil {
				slog.Error("notification send failed", "channel_type", ch.Type(), "error", err)
				return
			}
			slog.Debug("notification sent", "channel_type", ch.Type(), "tracking", cfg.Tracking)
		}(ch)
	}
}

// Wait blocks until in-flight sends finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
