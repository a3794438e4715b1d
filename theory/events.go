package theory

// Note is one MIDI note placed on the beat grid.
type Note struct {
	Pitch    int
	Start    float64 // beats
	Duration float64 // beats
	Velocity int
	Mute     bool
}

// ChordEvent is a set of pitches sounding together.
type ChordEvent struct {
	Mode     string
	Pitches  []int
	Root     int // unshifted tonal pitch
	Velocity int
	Duration float64
}

// Render places every pitch at start for the full duration.
func (c ChordEvent) Render(start float64) []Note {
	out := make([]Note, len(c.Pitches))
	for i, p := range c.Pitches {
		out[i] = Note{Pitch: p, Start: start, Duration: c.Duration, Velocity: c.Velocity}
	}
	return out
}

// Bass is the chord root an octave down, held for the chord's duration.
func (c ChordEvent) Bass() ChordEvent {
	return ChordEvent{
		Mode:     c.Mode,
		Pitches:  []int{c.Root - 12},
		Root:     c.Root,
		Velocity: c.Velocity,
		Duration: c.Duration,
	}
}

// ArpeggioEvent is a melody spread evenly over its duration.
type ArpeggioEvent struct {
	Mode     string
	Pitches  []int
	Root     int
	Velocity int
	Duration float64
}

// Render gives each pitch an equal slice of the duration, in order.
func (a ArpeggioEvent) Render(start float64) []Note {
	if len(a.Pitches) == 0 {
		return nil
	}
	step := a.Duration / float64(len(a.Pitches))
	out := make([]Note, len(a.Pitches))
	for i, p := range a.Pitches {
		out[i] = Note{Pitch: p, Start: start + float64(i)*step, Duration: step, Velocity: a.Velocity}
	}
	return out
}
