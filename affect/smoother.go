package affect

import (
	"fmt"

	"go-neuromusic/dsp"
)

// Smoother averages the last depth band-power vectors.
type Smoother struct {
	depth    int
	channels int
	entries  [][]dsp.Bands
	next     int
	full     bool
}

// NewSmoother creates a smoother holding depth vectors.
func NewSmoother(depth int) *Smoother {
	if depth < 1 {
		depth = 1
	}
	return &Smoother{
		depth:   depth,
		entries: make([][]dsp.Bands, depth),
	}
}

// Push stores a per-channel band-power vector, evicting the oldest.
func (s *Smoother) Push(v []dsp.Bands) error {
	if len(v) == 0 {
		return fmt.Errorf("smoother: empty vector: %w", ErrShapeMismatch)
	}
	if s.channels == 0 {
		s.channels = len(v)
	}
	if len(v) != s.channels {
		return fmt.Errorf("smoother: %d channels, want %d: %w", len(v), s.channels, ErrShapeMismatch)
	}

	s.entries[s.next] = append(s.entries[s.next][:0], v...)
	s.next = (s.next + 1) % s.depth
	if s.next == 0 {
		s.full = true
	}
	return nil
}

// Ready reports whether the FIFO has been filled at least once.
func (s *Smoother) Ready() bool {
	return s.full
}

// Mean returns the element-wise mean of the stored vectors, or false until
// the FIFO has been filled once.
func (s *Smoother) Mean() ([]dsp.Bands, bool) {
	if !s.full {
		return nil, false
	}
	out := make([]dsp.Bands, s.channels)
	for _, e := range s.entries {
		for ch := range e {
			for b := range e[ch] {
				out[ch][b] += e[ch][b]
			}
		}
	}
	for ch := range out {
		for b := range out[ch] {
			out[ch][b] /= float64(s.depth)
		}
	}
	return out, true
}
