package sequencer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go-neuromusic/affect"
	"go-neuromusic/debug"
	"go-neuromusic/theory"
)

// State of the dispatcher.
type State int32

const (
	Idle State = iota
	Listening
)

func (s State) String() string {
	if s == Listening {
		return "listening"
	}
	return "idle"
}

// Trigger fires a generation when the beat within the cycle equals Beat.
// Notes are placed at Start beats into the clip.
type Trigger struct {
	Beat  int
	Start int
}

// DefaultCycle and DefaultTriggers give two generations per 32-beat cycle.
const DefaultCycle = 32

var DefaultTriggers = []Trigger{{Beat: 22, Start: 8}, {Beat: 14, Start: 0}}

// A region clear covers every MIDI pitch.
const (
	lowestPitch = 0
	pitchSpan   = 128
)

// Enqueuer accepts note commands for the sink.
type Enqueuer interface {
	EnqueueNotes(Command) bool
}

// DispatchStatus is what the console shows about the musical side.
type DispatchStatus struct {
	State       State
	Beat        int
	Generations int
	Tonic       theory.Tonic
	Mode        string
	Chord       []int
	Arpeggio    int
	Velocity    int
	Start       int
	Metrics     affect.Metrics
}

// Dispatcher turns beats into generated notes. It is the only thing that
// moves the tonal center.
type Dispatcher struct {
	gen      *theory.Generator
	cell     *affect.Cell
	out      Enqueuer
	tracks   Tracks
	cycle    int
	triggers []Trigger

	state atomic.Int32

	mu     sync.RWMutex
	status DispatchStatus

	// Notify TUI of updates
	UpdateChan chan struct{}
}

// NewDispatcher wires a generator, the metrics cell and the outbound queue.
func NewDispatcher(gen *theory.Generator, cell *affect.Cell, out Enqueuer, tracks Tracks, cycle int, triggers []Trigger) *Dispatcher {
	if cycle <= 0 {
		cycle = DefaultCycle
	}
	if len(triggers) == 0 {
		triggers = DefaultTriggers
	}
	return &Dispatcher{
		gen:        gen,
		cell:       cell,
		out:        out,
		tracks:     tracks,
		cycle:      cycle,
		triggers:   triggers,
		status:     DispatchStatus{Tonic: gen.Tonic()},
		UpdateChan: make(chan struct{}, 1),
	}
}

// Listen marks the beat subscription as established.
func (d *Dispatcher) Listen() {
	d.state.Store(int32(Listening))
	d.mu.Lock()
	d.status.State = Listening
	d.mu.Unlock()
	debug.Log("dispatch", "listening for beats (cycle=%d triggers=%v)", d.cycle, d.triggers)
}

// State returns Idle or Listening.
func (d *Dispatcher) State() State {
	return State(d.state.Load())
}

// Status returns a copy of the latest dispatch state.
func (d *Dispatcher) Status() DispatchStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s := d.status
	s.Chord = append([]int(nil), d.status.Chord...)
	return s
}

// HandleBeat generates and enqueues new material when beat lands on a
// trigger. It reports whether a generation happened.
func (d *Dispatcher) HandleBeat(beat int) bool {
	d.mu.Lock()
	d.status.Beat = beat
	d.mu.Unlock()

	if d.State() != Listening {
		return false
	}
	pos := ((beat % d.cycle) + d.cycle) % d.cycle
	for _, tr := range d.triggers {
		if pos == tr.Beat {
			d.generate(beat, tr.Start)
			d.notifyUpdate()
			return true
		}
	}
	return false
}

// Run consumes beats until ctx is cancelled or beats is closed.
func (d *Dispatcher) Run(ctx context.Context, beats <-chan int) {
	for {
		select {
		case <-ctx.Done():
			return
		case b, ok := <-beats:
			if !ok {
				return
			}
			d.HandleBeat(b)
		}
	}
}

// metrics returns the latest scaled metrics, or the neutral midpoint while
// the pipeline is still warming up.
func (d *Dispatcher) metrics() affect.Metrics {
	if d.cell != nil {
		if s, ok := d.cell.Load(); ok {
			return s.Metrics
		}
	}
	return affect.Metrics{Valence: 0.5, Arousal: 0.5}
}

func (d *Dispatcher) generate(beat, start int) {
	m := d.metrics()
	chord, arp, err := d.gen.Next(m.Valence, m.Arousal)
	if err != nil {
		// The tonic always comes from the circle; anything else is a bug.
		debug.Log("dispatch", "generator failed: %v", err)
		panic(fmt.Sprintf("sequencer: generate at beat %d: %v", beat, err))
	}
	bass := chord.Bass()
	at := float64(start)

	d.replace("piano", d.tracks.Piano, at, chord.Duration, chord.Render(at))
	d.replace("bass", d.tracks.Bass, at, bass.Duration, bass.Render(at))
	d.replace("arp", d.tracks.Arp, at, arp.Duration, arp.Render(at))

	debug.Log("dispatch", "beat=%d start=%d v=%.2f a=%.2f mode=%s chord=%v arp=%d",
		beat, start, m.Valence, m.Arousal, chord.Mode, chord.Pitches, len(arp.Pitches))

	d.mu.Lock()
	d.status.Generations++
	d.status.Tonic = d.gen.Tonic()
	d.status.Mode = chord.Mode
	d.status.Chord = chord.Pitches
	d.status.Arpeggio = len(arp.Pitches)
	d.status.Velocity = chord.Velocity
	d.status.Start = start
	d.status.Metrics = m
	d.mu.Unlock()
}

// replace clears the region the new notes occupy and writes them.
func (d *Dispatcher) replace(voice string, track int, start, length float64, notes []theory.Note) {
	slot := d.tracks.Slot
	d.out.EnqueueNotes(Command{
		Name: "clear " + voice,
		Apply: func(s Sink) error {
			return s.ClearNotes(track, slot, lowestPitch, pitchSpan, start, length)
		},
	})
	d.out.EnqueueNotes(Command{
		Name: "add " + voice,
		Apply: func(s Sink) error {
			return s.AddNotes(track, slot, notes)
		},
	})
}

// notifyUpdate pokes the TUI without blocking.
func (d *Dispatcher) notifyUpdate() {
	select {
	case d.UpdateChan <- struct{}{}:
	default:
	}
}
