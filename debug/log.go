// Package debug is a category-tagged file logger. Logging is off until
// Enable is called, so per-tick calls cost one mutex round trip.
package debug

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var state struct {
	sync.Mutex
	file   *os.File // nil while disabled
	counts map[string]int
}

// Path returns ~/.config/go-neuromusic/debug.log
func Path() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "go-neuromusic", "debug.log")
}

// Enable starts debug logging to Path()
func Enable() error {
	return EnableFile(Path())
}

// EnableFile truncates path and logs to it. A no-op while already enabled.
func EnableFile(path string) error {
	state.Lock()
	defer state.Unlock()
	if state.file != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	state.file = f
	state.counts = make(map[string]int)
	write("debug", "=== go-neuromusic debug logging started ===")
	return nil
}

// Disable closes the log and resets LogEvery counters
func Disable() {
	state.Lock()
	defer state.Unlock()
	if state.file != nil {
		state.file.Close()
		state.file = nil
	}
	state.counts = nil
}

// Enabled reports whether Log writes anywhere
func Enabled() bool {
	state.Lock()
	defer state.Unlock()
	return state.file != nil
}

// Log writes one line under category.
func Log(category, format string, args ...any) {
	state.Lock()
	defer state.Unlock()
	if state.file != nil {
		write(category, fmt.Sprintf(format, args...))
	}
}

// LogEvery writes only every nth call with the same category and format.
// Use it for per-tick and per-beat chatter.
func LogEvery(n int, category, format string, args ...any) {
	state.Lock()
	defer state.Unlock()
	if state.file == nil {
		return
	}
	if n <= 1 {
		write(category, fmt.Sprintf(format, args...))
		return
	}
	key := category + "\x00" + format
	state.counts[key]++
	if count := state.counts[key]; count%n == 0 {
		write(category, fmt.Sprintf(format, args...)+fmt.Sprintf(" (every %d, count=%d)", n, count))
	}
}

// write expects the lock held and the file open. Each line is synced so
// the log survives a crash.
func write(category, msg string) {
	ts := time.Now().Format("15:04:05.000")
	fmt.Fprintf(state.file, "[%s] %-10s %s\n", ts, category, msg)
	state.file.Sync()
}
