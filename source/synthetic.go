package source

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"go-neuromusic/affect"
)

// Component is one sine in the synthetic mixture. Its amplitude swings by
// ModDepth (a fraction of Amp) at ModFreq Hz.
type Component struct {
	Freq     float64
	Amp      float64
	ModFreq  float64
	ModDepth float64
}

// DefaultComponents roughly resemble resting EEG with slowly drifting
// theta, alpha and beta activity, plus mains hum.
var DefaultComponents = []Component{
	{Freq: 2, Amp: 4},
	{Freq: 6, Amp: 3, ModFreq: 1.0 / 40, ModDepth: 0.6},
	{Freq: 10, Amp: 6, ModFreq: 1.0 / 30, ModDepth: 0.7},
	{Freq: 20, Amp: 2, ModFreq: 1.0 / 50, ModDepth: 0.8},
	{Freq: 60, Amp: 5},
}

// Synthetic generates a sine mixture with Gaussian noise.
type Synthetic struct {
	rate       float64
	channels   int
	components []Component
	noise      float64
	rng        *rand.Rand
	realtime   bool
	timeout    time.Duration

	start    time.Time
	produced int
	phase    []float64 // per-channel phase offset
}

// SyntheticConfig configures a Synthetic source.
type SyntheticConfig struct {
	SampleRate float64
	Channels   int
	Components []Component
	Noise      float64
	Seed       uint64
	Realtime   bool
}

// NewSynthetic creates a synthetic source. Zero values get defaults.
func NewSynthetic(cfg SyntheticConfig) *Synthetic {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 256
	}
	if cfg.Channels <= 0 {
		cfg.Channels = len(MuseLabels)
	}
	if len(cfg.Components) == 0 {
		cfg.Components = DefaultComponents
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0xda3e39cb94b95bdb))
	phase := make([]float64, cfg.Channels)
	for i := range phase {
		phase[i] = rng.Float64() * 2 * math.Pi
	}
	return &Synthetic{
		rate:       cfg.SampleRate,
		channels:   cfg.Channels,
		components: cfg.Components,
		noise:      cfg.Noise,
		rng:        rng,
		realtime:   cfg.Realtime,
		timeout:    DefaultTimeout,
		phase:      phase,
	}
}

func (s *Synthetic) Info() Info {
	labels := make([]string, s.channels)
	for i := range labels {
		if i < len(MuseLabels) {
			labels[i] = MuseLabels[i]
		} else {
			labels[i] = fmt.Sprintf("CH%d", i+1)
		}
	}
	return Info{Name: "synthetic", SampleRate: s.rate, Channels: s.channels, Labels: labels}
}

// Pull returns up to limit rows. In real-time mode only the rows whose time
// has come are returned, waiting for at least one.
func (s *Synthetic) Pull(ctx context.Context, limit int) (affect.Chunk, error) {
	if limit <= 0 {
		return nil, nil
	}
	n := limit
	if s.realtime {
		if s.start.IsZero() {
			s.start = time.Now()
		}
		due := s.due()
		if due == 0 {
			wait := time.Duration(float64(time.Second) / s.rate)
			if wait > s.timeout {
				wait = s.timeout
			}
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, err
			}
			due = s.due()
		}
		if due == 0 {
			return nil, ErrTimeout
		}
		n = min(n, due)
	}

	out := make(affect.Chunk, n)
	for i := range out {
		out[i] = s.sample(s.produced)
		s.produced++
	}
	return out, nil
}

func (s *Synthetic) due() int {
	total := int(time.Since(s.start).Seconds() * s.rate)
	return max(0, total-s.produced)
}

func (s *Synthetic) sample(idx int) []float64 {
	t := float64(idx) / s.rate
	row := make([]float64, s.channels)
	for ch := range row {
		v := 0.0
		for _, c := range s.components {
			amp := c.Amp
			if c.ModFreq > 0 {
				amp *= 1 + c.ModDepth*math.Sin(2*math.Pi*c.ModFreq*t+s.phase[ch])
			}
			v += amp * math.Sin(2*math.Pi*c.Freq*t+s.phase[ch])
		}
		if s.noise > 0 {
			v += s.noise * s.rng.NormFloat64()
		}
		row[ch] = v
	}
	return row
}

func (s *Synthetic) Close() error {
	return nil
}
