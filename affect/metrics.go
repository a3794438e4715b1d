package affect

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"go-neuromusic/dsp"
)

// Metrics are the two affect scalars. Raw values are unbounded band-power
// ratios; scaled values live in the scaler's target range.
type Metrics struct {
	Valence float64
	Arousal float64
}

// Finite reports whether both metrics are usable numbers.
func (m Metrics) Finite() bool {
	return !math.IsNaN(m.Valence) && !math.IsInf(m.Valence, 0) &&
		!math.IsNaN(m.Arousal) && !math.IsInf(m.Arousal, 0)
}

// Aggregate averages per-channel band powers into a single vector.
func Aggregate(perChannel []dsp.Bands) dsp.Bands {
	var out dsp.Bands
	if len(perChannel) == 0 {
		for b := range out {
			out[b] = math.NaN()
		}
		return out
	}
	col := make([]float64, len(perChannel))
	for b := range out {
		for ch, p := range perChannel {
			col[ch] = p[b]
		}
		out[b] = stat.Mean(col, nil)
	}
	return out
}

// Compute derives valence = theta/alpha and arousal = beta/alpha. A zero
// alpha yields Inf or NaN rather than a panic.
func Compute(b dsp.Bands) Metrics {
	alpha := b[dsp.Alpha]
	return Metrics{
		Valence: b[dsp.Theta] / alpha,
		Arousal: b[dsp.Beta] / alpha,
	}
}
