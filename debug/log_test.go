package debug

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPathUnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	want := filepath.Join(home, ".config", "go-neuromusic", "debug.log")
	if got := Path(); got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
}

func TestLogWritesWhenEnabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "debug.log")
	Log("pipeline", "dropped before enable")
	if err := EnableFile(path); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(Disable)

	Log("pipeline", "tick %d", 7)
	for i := 0; i < 6; i++ {
		LogEvery(3, "beat", "beat %d", i)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if strings.Contains(out, "dropped before enable") {
		t.Error("message logged before Enable")
	}
	if !strings.Contains(out, "pipeline   tick 7") {
		t.Errorf("missing tick line:\n%s", out)
	}
	if n := strings.Count(out, "every 3"); n != 2 {
		t.Errorf("LogEvery wrote %d lines, want 2:\n%s", n, out)
	}
}

func TestDisableStopsLogging(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	if err := EnableFile(path); err != nil {
		t.Fatal(err)
	}
	if !Enabled() {
		t.Fatal("not enabled")
	}
	Disable()
	Log("osc", "after disable")

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "after disable") {
		t.Error("logged after Disable")
	}
}
