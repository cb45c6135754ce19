package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jandubois/activity-tracker/internal/config"
	"github.com/jandubois/activity-tracker/internal/settings"
)

type fakeChannel struct {
	mu   sync.Mutex
	sent []*Message
	err  error
}

func (f *fakeChannel) Send(_ context.Context, msg *Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return f.err
}

func (f *fakeChannel) Type() string { return "fake" }

func (f *fakeChannel) titles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var titles []string
	for _, m := range f.sent {
		titles = append(titles, m.Title)
	}
	return titles
}

func TestDispatcherNotifiesOnTrackingFlip(t *testing.T) {
	ch := &fakeChannel{}
	d := NewDispatcher("laptop", ch)

	on := settings.Default
	off := settings.Default
	off.Tracking = false
	keyboard := on
	keyboard.TrackKeyboard = true

	d.Observe(on)       // baseline
	d.Observe(keyboard) // tracking unchanged
	d.Observe(off)
	d.Observe(off)
	d.Observe(on)
	d.Wait()

	want := []string{"Tracking paused", "Tracking resumed"}
	if diff := cmp.Diff(want, ch.titles()); diff != "" {
		t.Errorf("sent titles mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatcherSendErrorsAreLogged(t *testing.T) {
	failing := &fakeChannel{err: errors.New("unreachable")}
	ok := &fakeChannel{}
	d := NewDispatcher("laptop", failing, ok)

	cfg := settings.Default
	d.Observe(cfg)
	cfg.Tracking = false
	d.Observe(cfg)
	d.Wait()

	if len(ok.titles()) != 1 {
		t.Errorf("expected the healthy channel to receive 1 message, got %d", len(ok.titles()))
	}
}

func TestFormatTrackingChange(t *testing.T) {
	tests := []struct {
		name     string
		cfg      settings.Config
		wantBody string
		wantPrio Priority
	}{
		{
			name:     "off",
			cfg:      settings.Config{},
			wantBody: "Activity tracking was turned off on host.",
			wantPrio: PriorityNormal,
		},
		{
			name:     "on with defaults",
			cfg:      settings.Default,
			wantBody: "Activity tracking is on on host, recording IDE state, IDE actions.",
			wantPrio: PriorityLow,
		},
		{
			name:     "on with nothing enabled",
			cfg:      settings.Config{Tracking: true},
			wantBody: "Activity tracking is on on host, recording nothing.",
			wantPrio: PriorityLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := FormatTrackingChange(tt.cfg, "host")
			if msg.Body != tt.wantBody {
				t.Errorf("body = %q, want %q", msg.Body, tt.wantBody)
			}
			if msg.Priority != tt.wantPrio {
				t.Errorf("priority = %d, want %d", msg.Priority, tt.wantPrio)
			}
		})
	}
}

func TestChannels(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.NotifyConfig
		want []string
	}{
		{"none", config.NotifyConfig{}, nil},
		{"ntfy", config.NotifyConfig{NtfyTopic: "t"}, []string{"ntfy"}},
		{"pushover needs user", config.NotifyConfig{PushoverToken: "a"}, nil},
		{"both", config.NotifyConfig{NtfyTopic: "t", PushoverToken: "a", PushoverUser: "u"}, []string{"ntfy", "pushover"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, ch := range Channels(&tt.cfg) {
				got = append(got, ch.Type())
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("channel types mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNtfySend(t *testing.T) {
	var gotPath, gotTitle, gotTags, gotPrio, gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotTitle = r.Header.Get("Title")
		gotTags = r.Header.Get("Tags")
		gotPrio = r.Header.Get("Priority")
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
	}))
	defer srv.Close()

	ch := NewNtfyChannel(NtfyConfig{ServerURL: srv.URL + "/", Topic: "tracker", Token: "secret"})
	msg := &Message{Title: "Tracking paused", Body: "off", Priority: PriorityNormal, Tags: []string{"tracking", "off"}}
	if err := ch.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	if gotPath != "/tracker" {
		t.Errorf("path = %q, want /tracker", gotPath)
	}
	if gotTitle != "Tracking paused" || gotBody != "off" {
		t.Errorf("got title %q body %q", gotTitle, gotBody)
	}
	if gotTags != "tracking,off" {
		t.Errorf("tags = %q", gotTags)
	}
	if gotPrio != "default" {
		t.Errorf("priority = %q, want default", gotPrio)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("authorization = %q", gotAuth)
	}
}

func TestNtfySendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	ch := NewNtfyChannel(NtfyConfig{ServerURL: srv.URL, Topic: "tracker"})
	err := ch.Send(context.Background(), &Message{Title: "x"})
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestPushoverSend(t *testing.T) {
	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		form = map[string]string{
			"token":    r.PostForm.Get("token"),
			"user":     r.PostForm.Get("user"),
			"title":    r.PostForm.Get("title"),
			"message":  r.PostForm.Get("message"),
			"priority": r.PostForm.Get("priority"),
		}
	}))
	defer srv.Close()

	ch := NewPushoverChannel(PushoverConfig{APIToken: "app", UserKey: "me"})
	ch.endpoint = srv.URL
	if err := ch.Send(context.Background(), &Message{Title: "Tracking resumed", Body: "on", Priority: PriorityLow}); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	want := map[string]string{
		"token":    "app",
		"user":     "me",
		"title":    "Tracking resumed",
		"message":  "on",
		"priority": "-1",
	}
	if diff := cmp.Diff(want, form); diff != "" {
		t.Errorf("form mismatch (-want +got):\n%s", diff)
	}
}
