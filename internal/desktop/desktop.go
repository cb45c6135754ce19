// Package desktop opens files and folders with the host's default tools.
package desktop

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Host launches external programs to show files to the user.
type Host struct {
	goos   string
	getenv func(string) string
	run    func(name string, args ...string) error
}

// New returns a Host for the current platform.
func New() *Host {
	return &Host{
		goos:   runtime.GOOS,
		getenv: os.Getenv,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Start()
		},
	}
}

// OpenInEditor opens path in $VISUAL or $EDITOR, falling back to the
// platform's default application.
func (h *Host) OpenInEditor(path string) error {
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if editor := strings.TrimSpace(h.getenv(env)); editor != "" {
			fields := strings.Fields(editor)
			return h.launch(fields[0], append(fields[1:], path)...)
		}
	}
	return h.openDefault(path)
}

// OpenFolder opens path in the platform's file browser.
func (h *Host) OpenFolder(path string) error {
	if info, err := os.Stat(path); err != nil {
		return fmt.Errorf("open folder: %w", err)
	} else if !info.IsDir() {
		return fmt.Errorf("open folder: %s is not a directory", path)
	}
	return h.openDefault(path)
}

func (h *Host) openDefault(path string) error {
	switch h.goos {
	case "darwin":
		return h.launch("open", path)
	case "windows":
		return h.launch("explorer", path)
	default:
		return h.launch("xdg-open", path)
	}
}

func (h *Host) launch(name string, args ...string) error {
	if err := h.run(name, args...); err != nil {
		return fmt.Errorf("launch %s: %w", name, err)
	}
	return nil
}
