package theory

import (
	"errors"
	"fmt"
)

// ErrUnknownNote means a tonic is not on the circle.
var ErrUnknownNote = errors.New("unknown note")

// Tonic is a pitch class on the circle of fifths.
type Tonic string

const (
	C      Tonic = "C"
	G      Tonic = "G"
	D      Tonic = "D"
	A      Tonic = "A"
	E      Tonic = "E"
	B      Tonic = "B"
	FSharp Tonic = "F#"
	CSharp Tonic = "C#"
	GSharp Tonic = "G#"
	DSharp Tonic = "D#"
	ASharp Tonic = "A#"
	F      Tonic = "F"
)

// Fifths is the circle walked clockwise. Fourths is the same ring reversed.
var Fifths = [12]Tonic{C, G, D, A, E, B, FSharp, CSharp, GSharp, DSharp, ASharp, F}

var fourths = func() [12]Tonic {
	var out [12]Tonic
	for i, t := range Fifths {
		out[len(Fifths)-1-i] = t
	}
	return out
}()

// Base pitches keep every tonal center within a tritone of middle C:
// C..F sit at or above 60, F#..B below it.
var basePitch = map[Tonic]int{
	C: 60, CSharp: 61, D: 62, DSharp: 63, E: 64, F: 65,
	FSharp: 54, G: 55, GSharp: 56, A: 57, ASharp: 58, B: 59,
}

// Direction selects which way round the circle to move.
type Direction int

const (
	DirFifths Direction = iota
	DirFourths
)

func (d Direction) String() string {
	if d == DirFourths {
		return "fourths"
	}
	return "fifths"
}

// Pitch returns the MIDI base pitch of t.
func (t Tonic) Pitch() (int, error) {
	p, ok := basePitch[t]
	if !ok {
		return 0, fmt.Errorf("%q: %w", string(t), ErrUnknownNote)
	}
	return p, nil
}

// Advance moves steps positions from current in the given direction, wrapping
// around the circle. It returns the new tonic and its base pitch.
func Advance(current Tonic, steps int, dir Direction) (Tonic, int, error) {
	ring := Fifths
	if dir == DirFourths {
		ring = fourths
	}
	idx := -1
	for i, t := range ring {
		if t == current {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", 0, fmt.Errorf("advance from %q: %w", string(current), ErrUnknownNote)
	}
	n := len(ring)
	next := ring[((idx+steps)%n+n)%n]
	p, err := next.Pitch()
	return next, p, err
}

// Navigator holds the current tonal center.
type Navigator struct {
	current Tonic
}

// NewNavigator starts at tonic start.
func NewNavigator(start Tonic) (*Navigator, error) {
	if _, err := start.Pitch(); err != nil {
		return nil, err
	}
	return &Navigator{current: start}, nil
}

// Current returns the tonal center.
func (n *Navigator) Current() Tonic {
	return n.current
}

// Step moves the tonal center by a random amount. With probability 1-arousal
// it stays put; otherwise it moves 1-3 steps in a random direction.
func (n *Navigator) Step(arousal float64, rng Rand) (Tonic, int, error) {
	steps := 0
	if rng.Float64() >= 1-arousal {
		steps = 1 + rng.IntN(3)
	}
	dir := Direction(rng.IntN(2))
	next, pitch, err := Advance(n.current, steps, dir)
	if err != nil {
		return "", 0, err
	}
	n.current = next
	return next, pitch, nil
}
