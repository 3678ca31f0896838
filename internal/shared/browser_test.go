package shared

import (
	"errors"
	"os/exec"
	"testing"
)

func TestOpenBrowser(t *testing.T) {
	origRuntime, origStart := getRuntime, startCmd
	t.Cleanup(func() {
		getRuntime, startCmd = origRuntime, origStart
	})

	t.Run("known platforms", func(t *testing.T) {
		for goos, bin := range map[string]string{"darwin": "open", "linux": "xdg-open", "windows": "rundll32"} {
			var started *exec.Cmd
			getRuntime = func() string { return goos }
			startCmd = func(c *exec.Cmd) error { started = c; return nil }

			if err := OpenBrowser("http://localhost:3000/login"); err != nil {
				t.Fatalf("%s: unexpected error %v", goos, err)
			}
			if started == nil || started.Args[0] != bin {
				t.Errorf("%s: expected %s to be started, got %v", goos, bin, started)
			}
		}
	})

	t.Run("unsupported platform", func(t *testing.T) {
		getRuntime = func() string { return "plan9" }
		err := OpenBrowser("http://localhost")
		if !errors.Is(err, ErrNotImplemented) {
			t.Errorf("expected ErrNotImplemented, got %v", err)
		}
	})

	t.Run("start failure", func(t *testing.T) {
		getRuntime = func() string { return "linux" }
		startCmd = func(*exec.Cmd) error { return errors.New("no display") }
		if err := OpenBrowser("http://localhost"); err == nil {
			t.Error("expected error when command fails to start")
		}
	})
}
