package sequencer

import (
	"context"
	"math"
	"sync"
	"time"

	"go-neuromusic/debug"
)

// Clock is an internal beat source for sinks that do not report beats. Its
// position is anchored at the last tempo change so tempo can move freely
// without jumps.
type Clock struct {
	mu     sync.Mutex
	bpm    float64
	anchor time.Time
	base   float64 // beats elapsed at anchor
	now    func() time.Time
}

// NewClock starts at bpm, clamped to [20, 300] like the sequencer tempo.
func NewClock(bpm float64) *Clock {
	c := &Clock{now: time.Now}
	c.anchor = c.now()
	c.bpm = clampTempo(bpm)
	return c
}

func clampTempo(bpm float64) float64 {
	if math.IsNaN(bpm) {
		return 120
	}
	return min(300, max(20, bpm))
}

// Start resets the position to beat 0.
func (c *Clock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.anchor = c.now()
	c.base = 0
}

// SetTempo changes the tempo from now on.
func (c *Clock) SetTempo(bpm float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.base = c.positionAt(now)
	c.anchor = now
	c.bpm = clampTempo(bpm)
}

// Tempo returns the current tempo.
func (c *Clock) Tempo() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bpm
}

// Position returns the fractional beat position.
func (c *Clock) Position() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positionAt(c.now())
}

func (c *Clock) positionAt(t time.Time) float64 {
	return c.base + t.Sub(c.anchor).Minutes()*c.bpm
}

// maxWait bounds a single sleep so tempo changes take effect quickly.
const maxWait = 50 * time.Millisecond

// Run restarts the clock and emits beat numbers 0, 1, 2, ... as the
// position crosses them, until ctx is cancelled.
func (c *Clock) Run(ctx context.Context, beats chan int) {
	c.Start()
	debug.Log("clock", "internal clock at %.1f bpm", c.Tempo())
	next := 0
	for {
		pos := c.Position()
		if pos >= float64(next) {
			OfferBeat(beats, next)
			next++
			continue
		}
		wait := time.Duration((float64(next) - pos) / c.Tempo() * float64(time.Minute))
		if pause(ctx, min(wait, maxWait)) != nil {
			return
		}
	}
}

// OfferBeat delivers beat without blocking. If the channel is full the
// oldest pending beat is dropped, so consumers always see the latest.
// On an unbuffered channel the beat is dropped when nobody is receiving.
func OfferBeat(beats chan int, beat int) {
	if cap(beats) == 0 {
		select {
		case beats <- beat:
		default:
		}
		return
	}
	for {
		select {
		case beats <- beat:
			return
		default:
		}
		select {
		case <-beats:
		default:
		}
	}
}
