// Package source acquires multi-channel EEG samples.
package source

import (
	"context"
	"time"

	"go-neuromusic/affect"
)

// Info describes a stream. It is fixed for the life of a source.
type Info struct {
	Name       string
	SampleRate float64
	Channels   int
	Labels     []string
}

// Source yields sample chunks. Pull returns at most limit rows. When nothing
// arrives within the source's timeout it returns ErrTimeout.
type Source interface {
	Info() Info
	Pull(ctx context.Context, limit int) (affect.Chunk, error)
	Close() error
}

type timeoutError struct{}

func (timeoutError) Error() string { return "source: pull timed out" }
func (timeoutError) Timeout() bool { return true }

// ErrTimeout means no samples arrived in time. It reports Timeout() == true.
var ErrTimeout error = timeoutError{}

// DefaultTimeout is how long Pull waits for the first sample.
const DefaultTimeout = time.Second

// MuseLabels are the electrode names of a Muse headband in stream order.
var MuseLabels = []string{"TP9", "AF7", "AF8", "TP10"}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
