package affect

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"go-neuromusic/dsp"
)

var (
	// ErrShapeMismatch means a chunk's channel count disagrees with the buffer.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrNotReady means a windowed stage has not filled up yet.
	ErrNotReady = errors.New("not ready")
)

// Chunk is a block of samples, one row per sample, one column per channel.
type Chunk [][]float64

// RingBuffer keeps the most recent capacity rows of a multi-channel stream.
// Incoming chunks run through an optional filter whose state carries over
// from chunk to chunk.
type RingBuffer struct {
	capacity int
	channels int
	data     []float64 // row-major, capacity*channels
	head     int       // next row to write
	filled   int       // genuine rows written, saturates at capacity
	filter   *dsp.Filter
	column   []float64
}

// NewRingBuffer allocates a buffer. filter may be nil for an unfiltered stream.
func NewRingBuffer(capacity, channels int, filter *dsp.Filter) (*RingBuffer, error) {
	if capacity < 1 || channels < 1 {
		return nil, fmt.Errorf("ring buffer: invalid shape %dx%d", capacity, channels)
	}
	if filter != nil && filter.Channels() != channels {
		return nil, fmt.Errorf("ring buffer: filter has %d channels, buffer %d: %w", filter.Channels(), channels, ErrShapeMismatch)
	}
	return &RingBuffer{
		capacity: capacity,
		channels: channels,
		data:     make([]float64, capacity*channels),
		filter:   filter,
	}, nil
}

// Push filters chunk and appends it, dropping the oldest rows. A chunk with
// the wrong channel count is rejected before anything is touched.
func (r *RingBuffer) Push(chunk Chunk) error {
	for i, row := range chunk {
		if len(row) != r.channels {
			return fmt.Errorf("row %d has %d channels, buffer has %d: %w", i, len(row), r.channels, ErrShapeMismatch)
		}
	}
	n := len(chunk)
	if n == 0 {
		return nil
	}

	if cap(r.column) < n {
		r.column = make([]float64, n)
	}
	col := r.column[:n]
	for ch := 0; ch < r.channels; ch++ {
		for i, row := range chunk {
			col[i] = row[ch]
		}
		if r.filter != nil {
			r.filter.Process(ch, col)
		}
		for i, v := range col {
			row := (r.head + i) % r.capacity
			r.data[row*r.channels+ch] = v
		}
	}

	r.head = (r.head + n) % r.capacity
	r.filled = min(r.capacity, r.filled+n)
	return nil
}

// Latest returns a copy of the newest n rows, oldest first. n is clamped to
// the buffer capacity. Readiness is not checked.
func (r *RingBuffer) Latest(n int) *mat.Dense {
	n = max(1, min(n, r.capacity))
	out := mat.NewDense(n, r.channels, nil)
	start := (r.head - n + r.capacity) % r.capacity
	for i := 0; i < n; i++ {
		row := (start + i) % r.capacity
		out.SetRow(i, r.data[row*r.channels:(row+1)*r.channels])
	}
	return out
}

// Rows returns the fixed number of rows held.
func (r *RingBuffer) Rows() int {
	return r.capacity
}

// Channels returns the channel count.
func (r *RingBuffer) Channels() int {
	return r.channels
}

// Filled returns how many genuine rows have been written, up to capacity.
func (r *RingBuffer) Filled() int {
	return r.filled
}

// Ready reports whether every row holds real data.
func (r *RingBuffer) Ready() bool {
	return r.filled >= r.capacity
}
