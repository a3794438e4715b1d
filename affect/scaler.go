package affect

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Scaler rescales a metric into a target range using the min and max of its
// last window raw values.
type Scaler struct {
	window int
	lo, hi float64
	values []float64
	next   int
	ready  bool
}

// NewScaler creates a scaler over window values mapping into [lo, hi].
func NewScaler(window int, lo, hi float64) *Scaler {
	if window < 1 {
		window = 1
	}
	if hi < lo {
		lo, hi = hi, lo
	}
	return &Scaler{
		window: window,
		lo:     lo,
		hi:     hi,
		values: make([]float64, 0, window),
	}
}

// Update records a raw value, evicting the oldest once the window is full.
func (s *Scaler) Update(v float64) {
	if len(s.values) < s.window {
		s.values = append(s.values, v)
		if len(s.values) == s.window {
			s.ready = true
		}
		return
	}
	s.values[s.next] = v
	s.next = (s.next + 1) % s.window
}

// Ready reports whether the window has filled.
func (s *Scaler) Ready() bool {
	return s.ready
}

// Len returns how many values the window holds.
func (s *Scaler) Len() int {
	return len(s.values)
}

// Scale maps v linearly from the window's [min, max] into the target range
// and clamps. A window without spread maps everything to the midpoint.
func (s *Scaler) Scale(v float64) (float64, error) {
	if !s.ready {
		return 0, fmt.Errorf("scaler has %d/%d values: %w", len(s.values), s.window, ErrNotReady)
	}
	lo, hi := floats.Min(s.values), floats.Max(s.values)
	if lo == hi {
		return (s.lo + s.hi) / 2, nil
	}
	out := s.lo + (v-lo)/(hi-lo)*(s.hi-s.lo)
	return min(s.hi, max(s.lo, out)), nil
}
