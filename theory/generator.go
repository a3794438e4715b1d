package theory

import (
	"fmt"
	"math"

	"go-neuromusic/debug"
)

const (
	DefaultDuration = 8.0 // beats
	MaxArpeggio     = 16
)

// Generator turns affect metrics into a chord and an arpeggio, moving the
// tonal center a little on each call.
type Generator struct {
	modes    Modes
	nav      *Navigator
	rng      Rand
	duration float64
	last     string
}

// NewGenerator builds a generator starting on C.
func NewGenerator(modes Modes, rng Rand, duration float64) (*Generator, error) {
	if len(modes) == 0 {
		return nil, fmt.Errorf("generator: no modes")
	}
	if duration <= 0 {
		duration = DefaultDuration
	}
	nav, err := NewNavigator(C)
	if err != nil {
		return nil, err
	}
	return &Generator{modes: modes, nav: nav, rng: rng, duration: duration}, nil
}

// StartAt moves the tonal center to t. Call it before the first Next.
func (g *Generator) StartAt(t Tonic) error {
	nav, err := NewNavigator(t)
	if err != nil {
		return err
	}
	g.nav = nav
	return nil
}

// Tonic returns the current tonal center.
func (g *Generator) Tonic() Tonic {
	return g.nav.Current()
}

// LastMode returns the mode used by the most recent Next call.
func (g *Generator) LastMode() string {
	return g.last
}

// SelectMode maps valence 1 to the brightest mode and 0 to the darkest.
func (g *Generator) SelectMode(valence float64) Mode {
	n := len(g.modes)
	idx := int(math.Round(float64(n-1) * (1 - valence)))
	return g.modes[min(n-1, max(0, idx))]
}

// PitchShift is an octave up for very high valence, down for very low.
func PitchShift(valence float64) int {
	switch {
	case valence > 0.8:
		return 12
	case valence < 0.2:
		return -12
	}
	return 0
}

// Velocity draws uniformly from [50, 40*arousal+60] and clamps to [50, 127].
func Velocity(arousal float64, rng Rand) int {
	hi := 40*arousal + 60
	v := 50 + rng.Float64()*(hi-50)
	return min(127, max(50, int(math.Round(v))))
}

// ArpeggioLength is round(4 + 12*arousal), kept within [1, MaxArpeggio].
func ArpeggioLength(arousal float64) int {
	k := int(math.Round(4 + 12*arousal))
	return min(MaxArpeggio, max(1, k))
}

// Next advances the tonal center and builds both events. Metrics are
// clamped to [0, 1].
func (g *Generator) Next(valence, arousal float64) (ChordEvent, ArpeggioEvent, error) {
	valence = clamp01(valence)
	arousal = clamp01(arousal)

	tonic, pitch, err := g.nav.Step(arousal, g.rng)
	if err != nil {
		return ChordEvent{}, ArpeggioEvent{}, err
	}

	mode := g.SelectMode(valence)
	shift := PitchShift(valence)
	vel := Velocity(arousal, g.rng)
	g.last = mode.Name

	chord := ChordEvent{
		Mode:     mode.Name,
		Root:     pitch,
		Velocity: vel,
		Duration: g.duration,
	}
	for _, deg := range [...]int{0, 2, 4, 6} {
		chord.Pitches = append(chord.Pitches, pitch+mode.Intervals[deg]+shift)
	}

	k := ArpeggioLength(arousal)
	melody := mode.Melody(k, g.rng)
	arp := ArpeggioEvent{
		Mode:     mode.Name,
		Root:     pitch,
		Velocity: vel,
		Duration: g.duration,
		Pitches:  make([]int, len(melody)),
	}
	for i, iv := range melody {
		arp.Pitches[i] = pitch + iv + shift
	}

	debug.Log("theory", "tonic=%s mode=%s shift=%+d vel=%d arp=%d (v=%.2f a=%.2f)",
		tonic, mode.Name, shift, vel, k, valence, arousal)
	return chord, arp, nil
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0.5
	}
	return min(1, max(0, v))
}
