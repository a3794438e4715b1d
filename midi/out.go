package midi

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"go-neuromusic/debug"
	"go-neuromusic/theory"
)

// Controller numbers used for the non-note sink operations.
const (
	ccVolume    = 7
	ccSendBase  = 91 // send n uses 91+n
	ccParamBase = 20 // device parameters start here
)

// Position reports the playhead in beats.
type Position interface {
	Position() float64
}

// clip is a looping note list for one track, like a piano roll pattern.
type clip struct {
	length float64 // beats
	notes  []theory.Note
}

type sounding struct {
	channel uint8
	pitch   uint8
	end     float64
}

// Out plays clips on a MIDI output port. Track n plays on channel n+1.
// It satisfies sequencer.Sink; tempo changes go to the OnTempo hook.
type Out struct {
	name string
	send func(gomidi.Message) error

	mu      sync.Mutex
	clips   map[int]*clip
	active  []sounding
	last    float64
	started bool

	// OnTempo receives SetTempo calls, usually the internal clock's SetTempo.
	OnTempo func(bpm float64)
}

// OpenOut opens the first output port whose name contains name.
func OpenOut(name string) (*Out, error) {
	port, err := findOut(name, ScanTimeout)
	if err != nil {
		return nil, err
	}
	send, err := gomidi.SendTo(port)
	if err != nil {
		return nil, fmt.Errorf("open output %s: %w", port.String(), err)
	}
	debug.Log("midi", "opened output %s", port.String())
	return newOut(port.String(), send), nil
}

func newOut(name string, send func(gomidi.Message) error) *Out {
	return &Out{name: name, send: send, clips: make(map[int]*clip)}
}

// Name returns the port name.
func (o *Out) Name() string {
	return o.name
}

func channel(track int) (uint8, error) {
	if track < 0 || track > 15 {
		return 0, fmt.Errorf("track %d has no midi channel", track)
	}
	return uint8(track), nil
}

func (o *Out) CreateClip(track, slot, bars int) error {
	if _, err := channel(track); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.clips[track] = &clip{length: float64(bars * 4)}
	return nil
}

func (o *Out) ClearNotes(track, slot, pitch, span int, start, length float64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	c, ok := o.clips[track]
	if !ok {
		return nil
	}
	kept := c.notes[:0]
	for _, n := range c.notes {
		inPitch := n.Pitch >= pitch && n.Pitch < pitch+span
		inTime := n.Start >= start && n.Start < start+length
		if !(inPitch && inTime) {
			kept = append(kept, n)
		}
	}
	c.notes = kept
	return nil
}

func (o *Out) AddNotes(track, slot int, notes []theory.Note) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	c, ok := o.clips[track]
	if !ok {
		return fmt.Errorf("track %d has no clip", track)
	}
	for _, n := range notes {
		if n.Mute || n.Pitch < 0 || n.Pitch > 127 {
			continue
		}
		c.notes = append(c.notes, n)
	}
	sort.SliceStable(c.notes, func(i, j int) bool { return c.notes[i].Start < c.notes[j].Start })
	return nil
}

// SetParameter sends value (0..1) as a control change. Each device gets a
// block of 16 controllers starting at 20.
func (o *Out) SetParameter(track, device, param int, value float64) error {
	cc := ccParamBase + device*16 + param
	if cc < 0 || cc > 119 {
		return fmt.Errorf("parameter %d/%d has no controller", device, param)
	}
	return o.controlChange(track, uint8(cc), value)
}

func (o *Out) SetTempo(bpm float64) error {
	if o.OnTempo != nil {
		o.OnTempo(bpm)
	}
	return nil
}

func (o *Out) SetVolume(track int, value float64) error {
	return o.controlChange(track, ccVolume, value)
}

func (o *Out) SetSend(track, send int, value float64) error {
	if send < 0 || send > 4 {
		return fmt.Errorf("send %d has no controller", send)
	}
	return o.controlChange(track, uint8(ccSendBase+send), value)
}

// ListenBeats is a no-op: with a MIDI port the beats come from the
// internal clock.
func (o *Out) ListenBeats() error {
	return nil
}

func (o *Out) controlChange(track int, cc uint8, value float64) error {
	ch, err := channel(track)
	if err != nil {
		return err
	}
	v := uint8(math.Round(min(1, max(0, value)) * 127))
	return o.send(gomidi.ControlChange(ch, cc, v))
}

// Run plays the clips against the playhead until ctx is cancelled, then
// silences every sounding note.
func (o *Out) Run(ctx context.Context, pos Position) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			o.allOff()
			return
		case <-ticker.C:
			o.tick(pos.Position())
		}
	}
}

// tick sends note-offs that are due and note-ons for notes whose start
// falls in (last, p] on the loop.
func (o *Out) tick(p float64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.started || p < o.last {
		o.last = p - 1e-9
		o.started = true
	}

	kept := o.active[:0]
	for _, s := range o.active {
		if s.end <= p {
			o.send(gomidi.NoteOff(s.channel, s.pitch))
			continue
		}
		kept = append(kept, s)
	}
	o.active = kept

	tracks := make([]int, 0, len(o.clips))
	for tr := range o.clips {
		tracks = append(tracks, tr)
	}
	sort.Ints(tracks)

	for _, tr := range tracks {
		c := o.clips[tr]
		if c.length <= 0 {
			continue
		}
		ch := uint8(tr)
		for _, n := range c.notes {
			if !startsIn(n.Start, o.last, p, c.length) {
				continue
			}
			vel := uint8(min(127, max(1, n.Velocity)))
			if err := o.send(gomidi.NoteOn(ch, uint8(n.Pitch), vel)); err != nil {
				debug.LogEvery(20, "midi", "note on failed: %v", err)
				continue
			}
			o.active = append(o.active, sounding{channel: ch, pitch: uint8(n.Pitch), end: p + n.Duration})
		}
	}
	o.last = p
}

// startsIn reports whether loop offset start is crossed while the playhead
// moves from a to b (a < b) on a loop of length l.
func startsIn(start, a, b, l float64) bool {
	if b-a >= l {
		return true
	}
	la, lb := math.Mod(a, l), math.Mod(b, l)
	if la < 0 {
		la += l
	}
	if lb < 0 {
		lb += l
	}
	if la <= lb {
		return start > la && start <= lb
	}
	return start > la || start <= lb
}

func (o *Out) allOff() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, s := range o.active {
		o.send(gomidi.NoteOff(s.channel, s.pitch))
	}
	o.active = nil
}
