package sequencer

import (
	"context"
	"fmt"
	"time"

	"go-neuromusic/theory"
)

// Sink is the instrument being played. Tracks and clip slots are zero-based.
type Sink interface {
	CreateClip(track, slot, bars int) error
	// ClearNotes removes notes with pitch in [pitch, pitch+span) starting in
	// [start, start+length) beats.
	ClearNotes(track, slot, pitch, span int, start, length float64) error
	AddNotes(track, slot int, notes []theory.Note) error
	SetParameter(track, device, param int, value float64) error
	SetTempo(bpm float64) error
	SetVolume(track int, value float64) error
	SetSend(track, send int, value float64) error
	// ListenBeats asks the instrument to start reporting beats.
	ListenBeats() error
}

// Tracks maps the three voices onto sink tracks.
type Tracks struct {
	Piano int
	Arp   int
	Bass  int
	Slot  int
}

// DefaultTracks is piano on 0, arpeggiator on 1, bass on 2, first slot.
var DefaultTracks = Tracks{Piano: 0, Arp: 1, Bass: 2, Slot: 0}

// All returns the voice tracks in piano, arp, bass order.
func (t Tracks) All() [3]int {
	return [3]int{t.Piano, t.Arp, t.Bass}
}

// Setup creates an empty clip of bars on every voice track and subscribes to
// beats. It talks to the sink directly, pausing between messages, and must
// run before the outbox starts.
func Setup(ctx context.Context, s Sink, tracks Tracks, bars int, pacing time.Duration) error {
	for _, tr := range tracks.All() {
		if err := s.CreateClip(tr, tracks.Slot, bars); err != nil {
			return fmt.Errorf("create clip on track %d: %w", tr, err)
		}
		if err := pause(ctx, pacing); err != nil {
			return err
		}
	}
	if err := s.ListenBeats(); err != nil {
		return fmt.Errorf("subscribe to beats: %w", err)
	}
	return nil
}

func pause(ctx context.Context, d time.Duration) error {
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
