package sequencer

import (
	"fmt"
	"math"
	"sync"

	"go-neuromusic/affect"
)

// ParamEnqueuer accepts parameter updates for the sink.
type ParamEnqueuer interface {
	EnqueueParam(Command) bool
}

// Device parameters driven by the metrics.
const (
	arpDevice   = 1
	arpShape    = 4
	bassDevice  = 1
	bassLFO     = 14
	saturatorFX = 2
)

// paramSteps is the resolution parameter values are rounded to before
// they are compared and sent.
const paramSteps = 1000

func quantize(x float64) float64 {
	return math.Round(x*paramSteps) / paramSteps
}

// Modulator maps every published snapshot onto continuous instrument
// parameters: arpeggiator shape, bass LFO, tempo, track volume and the
// saturator send.
type Modulator struct {
	out    ParamEnqueuer
	tracks Tracks

	mu   sync.Mutex
	last map[string]float64
}

// NewModulator creates a modulator for the given voice tracks.
func NewModulator(out ParamEnqueuer, tracks Tracks) *Modulator {
	return &Modulator{out: out, tracks: tracks, last: make(map[string]float64)}
}

// Tempo is 50 BPM at zero arousal up to 140 at full arousal.
func Tempo(arousal float64) float64 {
	return 50 + 90*arousal
}

// Apply enqueues parameter updates for s. Values are rounded to 1/1000 and
// only sent when the rounded value changed since the last call.
func (m *Modulator) Apply(s affect.Snapshot) {
	v, a := s.Metrics.Valence, s.Metrics.Arousal

	m.set(fmt.Sprintf("param %d/%d/%d", m.tracks.Arp, arpDevice, arpShape), v, func(sk Sink, x float64) error {
		return sk.SetParameter(m.tracks.Arp, arpDevice, arpShape, x)
	})
	m.set(fmt.Sprintf("param %d/%d/%d", m.tracks.Bass, bassDevice, bassLFO), 0.6+0.2*a, func(sk Sink, x float64) error {
		return sk.SetParameter(m.tracks.Bass, bassDevice, bassLFO, x)
	})
	m.set("tempo", math.Round(Tempo(a)), func(sk Sink, x float64) error {
		return sk.SetTempo(x)
	})
	for _, tr := range m.tracks.All() {
		m.set(fmt.Sprintf("volume %d", tr), 0.5+0.4*v, func(sk Sink, x float64) error {
			return sk.SetVolume(tr, x)
		})
		m.set(fmt.Sprintf("send %d/%d", tr, saturatorFX), 1-v, func(sk Sink, x float64) error {
			return sk.SetSend(tr, saturatorFX, x)
		})
	}
}

func (m *Modulator) set(name string, value float64, fn func(Sink, float64) error) {
	value = quantize(value)
	m.mu.Lock()
	prev, ok := m.last[name]
	if ok && prev == value {
		m.mu.Unlock()
		return
	}
	m.last[name] = value
	m.mu.Unlock()

	m.out.EnqueueParam(Command{
		Name:  name,
		Apply: func(s Sink) error { return fn(s, value) },
	})
}
