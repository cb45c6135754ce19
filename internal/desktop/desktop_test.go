package desktop

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

type launched struct {
	name string
	args []string
}

func testHost(goos string, env map[string]string, calls *[]launched, err error) *Host {
	return &Host{
		goos:   goos,
		getenv: func(k string) string { return env[k] },
		run: func(name string, args ...string) error {
			*calls = append(*calls, launched{name: name, args: args})
			return err
		},
	}
}

func TestOpenInEditor(t *testing.T) {
	tests := []struct {
		name     string
		goos     string
		env      map[string]string
		wantName string
		wantArgs []string
	}{
		{"visual wins", "linux", map[string]string{"VISUAL": "code --wait", "EDITOR": "vi"}, "code", []string{"--wait", "/tmp/log.csv"}},
		{"editor", "linux", map[string]string{"EDITOR": "vi"}, "vi", []string{"/tmp/log.csv"}},
		{"blank editor ignored", "darwin", map[string]string{"EDITOR": "  "}, "open", []string{"/tmp/log.csv"}},
		{"linux default", "linux", nil, "xdg-open", []string{"/tmp/log.csv"}},
		{"windows default", "windows", nil, "explorer", []string{"/tmp/log.csv"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []launched
			h := testHost(tt.goos, tt.env, &calls, nil)

			if err := h.OpenInEditor("/tmp/log.csv"); err != nil {
				t.Fatalf("OpenInEditor() error: %v", err)
			}
			if len(calls) != 1 {
				t.Fatalf("expected 1 launch, got %d", len(calls))
			}
			if calls[0].name != tt.wantName {
				t.Errorf("expected %q, got %q", tt.wantName, calls[0].name)
			}
			if strings.Join(calls[0].args, " ") != strings.Join(tt.wantArgs, " ") {
				t.Errorf("expected args %v, got %v", tt.wantArgs, calls[0].args)
			}
		})
	}
}

func TestOpenFolder(t *testing.T) {
	dir := t.TempDir()
	var calls []launched
	h := testHost("darwin", nil, &calls, nil)

	if err := h.OpenFolder(dir); err != nil {
		t.Fatalf("OpenFolder() error: %v", err)
	}
	if len(calls) != 1 || calls[0].name != "open" || calls[0].args[0] != dir {
		t.Errorf("unexpected launches: %+v", calls)
	}
}

func TestOpenFolderMissing(t *testing.T) {
	var calls []launched
	h := testHost("linux", nil, &calls, nil)

	if err := h.OpenFolder(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing folder")
	}
	if len(calls) != 0 {
		t.Errorf("expected no launches, got %d", len(calls))
	}
}

func TestLaunchError(t *testing.T) {
	var calls []launched
	h := testHost("linux", nil, &calls, errors.New("not found"))

	err := h.OpenInEditor("/tmp/x")
	if err == nil || !strings.Contains(err.Error(), "launch xdg-open") {
		t.Errorf("expected wrapped launch error, got %v", err)
	}
}
