package affect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go-neuromusic/debug"
	"go-neuromusic/dsp"
)

// ErrPending reports a chunk that was buffered without starting a tick:
// fewer than ShiftSamples rows have arrived since the last one.
var ErrPending = errors.New("affect: waiting for a full shift")

// Puller is where the pipeline gets samples from. Pull returns at most limit
// rows; an error with Timeout() == true means nothing arrived in time.
type Puller interface {
	Pull(ctx context.Context, limit int) (Chunk, error)
}

// PipelineConfig sizes the sampling-domain stages. Counts are in samples.
type PipelineConfig struct {
	SampleRate     float64
	Channels       int
	BufferSamples  int
	EpochSamples   int
	ShiftSamples   int
	SmoothingDepth int
	ScalerWindow   int
	TargetMin      float64
	TargetMax      float64
	Notch          *dsp.Coefficients // nil disables the mains filter
}

func (c PipelineConfig) validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("sample rate must be positive, got %v", c.SampleRate)
	case c.Channels < 1:
		return fmt.Errorf("channels must be positive, got %d", c.Channels)
	case c.EpochSamples < 2:
		return fmt.Errorf("epoch must hold at least 2 samples, got %d", c.EpochSamples)
	case c.BufferSamples < c.EpochSamples:
		return fmt.Errorf("buffer (%d) shorter than epoch (%d)", c.BufferSamples, c.EpochSamples)
	case c.ShiftSamples < 1 || c.ShiftSamples > c.EpochSamples:
		return fmt.Errorf("shift must be in [1, %d], got %d", c.EpochSamples, c.ShiftSamples)
	}
	return nil
}

// Status is a point-in-time view of the pipeline for the operator console.
type Status struct {
	BufferFilled  int
	BufferRows    int
	SmootherReady bool
	ScalerFill    int
	ScalerWindow  int
	Ticks         int
	Published     int
	Skipped       int
	Timeouts      int
	LastErr       string
}

// Pipeline turns raw chunks into published metric snapshots: buffer and
// filter, cut an epoch, extract band powers, smooth, compute ratios, scale.
type Pipeline struct {
	cfg      PipelineConfig
	buf      *RingBuffer
	smoother *Smoother
	valence  *Scaler
	arousal  *Scaler
	cell     *Cell
	onUpdate func(Snapshot)
	fresh    int // rows buffered since the last tick

	mu     sync.RWMutex
	status Status
}

// NewPipeline builds the stages and publishes into cell.
func NewPipeline(cfg PipelineConfig, cell *Cell) (*Pipeline, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if cell == nil {
		cell = &Cell{}
	}

	var filter *dsp.Filter
	if cfg.Notch != nil {
		f, err := dsp.NewFilter(*cfg.Notch, cfg.Channels)
		if err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		filter = f
	}
	buf, err := NewRingBuffer(cfg.BufferSamples, cfg.Channels, filter)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	p := &Pipeline{
		cfg:      cfg,
		buf:      buf,
		smoother: NewSmoother(cfg.SmoothingDepth),
		valence:  NewScaler(cfg.ScalerWindow, cfg.TargetMin, cfg.TargetMax),
		arousal:  NewScaler(cfg.ScalerWindow, cfg.TargetMin, cfg.TargetMax),
		cell:     cell,
	}
	p.status.BufferRows = buf.Rows()
	p.status.ScalerWindow = max(1, cfg.ScalerWindow)
	return p, nil
}

// SetOnUpdate registers a callback run after each published snapshot.
// It runs on the sampling goroutine and must not block.
func (p *Pipeline) SetOnUpdate(fn func(Snapshot)) {
	p.onUpdate = fn
}

// Cell returns the cell snapshots are published into.
func (p *Pipeline) Cell() *Cell {
	return p.cell
}

// Status returns a copy of the current counters.
func (p *Pipeline) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// Process buffers a chunk and, once ShiftSamples rows have arrived since the
// last tick, runs the epoch through every stage. Chunks that do not complete
// a shift return ErrPending. A tick returns an error wrapping ErrNotReady
// while any windowed stage is still filling or the tick produced no usable
// numbers; ErrShapeMismatch chunks leave all state untouched.
func (p *Pipeline) Process(chunk Chunk) (Snapshot, error) {
	err := p.buf.Push(chunk)
	if err == nil {
		p.fresh += len(chunk)
		if p.fresh < p.cfg.ShiftSamples {
			p.mu.Lock()
			p.status.BufferFilled = p.buf.Filled()
			p.mu.Unlock()
			return Snapshot{}, ErrPending
		}
		p.fresh %= p.cfg.ShiftSamples
	}

	var snap Snapshot
	if err == nil {
		snap, err = p.tick()
	}

	p.mu.Lock()
	p.status.Ticks++
	p.status.BufferFilled = p.buf.Filled()
	p.status.SmootherReady = p.smoother.Ready()
	p.status.ScalerFill = p.valence.Len()
	if err != nil {
		p.status.Skipped++
		p.status.LastErr = err.Error()
	} else {
		p.status.Published++
		p.status.LastErr = ""
	}
	p.mu.Unlock()

	if err == nil && p.onUpdate != nil {
		p.onUpdate(snap)
	}
	return snap, err
}

func (p *Pipeline) tick() (Snapshot, error) {
	if !p.buf.Ready() {
		return Snapshot{}, fmt.Errorf("buffer %d/%d: %w", p.buf.Filled(), p.buf.Rows(), ErrNotReady)
	}

	epoch := p.buf.Latest(p.cfg.EpochSamples)
	powers, err := dsp.BandPowers(epoch, p.cfg.SampleRate)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %w", ErrNotReady, err)
	}

	if err := p.smoother.Push(powers); err != nil {
		return Snapshot{}, err
	}
	smoothed, ok := p.smoother.Mean()
	if !ok {
		return Snapshot{}, fmt.Errorf("smoother filling: %w", ErrNotReady)
	}

	bands := Aggregate(smoothed)
	raw := Compute(bands)
	if !raw.Finite() {
		return Snapshot{}, fmt.Errorf("non-finite metrics %+v: %w", raw, ErrNotReady)
	}

	p.valence.Update(raw.Valence)
	p.arousal.Update(raw.Arousal)
	v, err := p.valence.Scale(raw.Valence)
	if err != nil {
		return Snapshot{}, err
	}
	a, err := p.arousal.Scale(raw.Arousal)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		Time:    time.Now(),
		Metrics: Metrics{Valence: v, Arousal: a},
		Raw:     raw,
		Bands:   bands,
	}
	snap.Version = p.cell.Store(snap)
	return snap, nil
}

// Run pulls rows from src until ctx is cancelled or the source reports
// io.EOF, asking for no more than the rest of the current shift. Sources may
// return fewer rows; a tick runs once per ShiftSamples rows whatever the
// chunk sizes. Timeouts and unusable ticks are skipped.
func (p *Pipeline) Run(ctx context.Context, src Puller) error {
	debug.Log("pipeline", "started: fs=%v channels=%d buffer=%d epoch=%d shift=%d",
		p.cfg.SampleRate, p.cfg.Channels, p.cfg.BufferSamples, p.cfg.EpochSamples, p.cfg.ShiftSamples)

	for {
		if ctx.Err() != nil {
			return nil
		}

		chunk, err := src.Pull(ctx, p.cfg.ShiftSamples-p.fresh)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				debug.Log("pipeline", "source exhausted")
				return err
			}
			if isTimeout(err) {
				p.mu.Lock()
				p.status.Timeouts++
				p.mu.Unlock()
				debug.LogEvery(20, "pipeline", "pull timed out")
				continue
			}
			debug.LogEvery(20, "pipeline", "pull: %v", err)
			continue
		}
		if len(chunk) == 0 {
			continue
		}

		snap, err := p.Process(chunk)
		switch {
		case errors.Is(err, ErrPending):
		case err == nil:
			debug.LogEvery(50, "pipeline", "v=%.3f a=%.3f (raw %.3f/%.3f)",
				snap.Metrics.Valence, snap.Metrics.Arousal, snap.Raw.Valence, snap.Raw.Arousal)
		case errors.Is(err, ErrShapeMismatch):
			debug.Log("pipeline", "dropped chunk: %v", err)
		default:
			debug.LogEvery(50, "pipeline", "skipped: %v", err)
		}
	}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
