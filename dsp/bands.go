package dsp

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ErrUndefinedBandPower is returned when a band has no spectral bins or the
// epoch carries no energy, so its log power is not a finite number.
var ErrUndefinedBandPower = errors.New("undefined band power")

// Band identifies one canonical EEG frequency band.
type Band int

const (
	Delta Band = iota
	Theta
	Alpha
	Beta
	NumBands
)

var bandNames = [NumBands]string{"delta", "theta", "alpha", "beta"}

func (b Band) String() string {
	if b < 0 || b >= NumBands {
		return fmt.Sprintf("band(%d)", int(b))
	}
	return bandNames[b]
}

// Contains reports whether freq (Hz) falls into the band.
// Edges: delta [0,4), theta [4,8], alpha [8,12], beta [12,30).
func (b Band) Contains(freq float64) bool {
	switch b {
	case Delta:
		return freq < 4
	case Theta:
		return freq >= 4 && freq <= 8
	case Alpha:
		return freq >= 8 && freq <= 12
	case Beta:
		return freq >= 12 && freq < 30
	}
	return false
}

// Bands holds one log10 band power per canonical band.
type Bands [NumBands]float64

// Finite reports whether every band power is a finite number.
func (b Bands) Finite() bool {
	for _, v := range b {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// BandPowers computes log-compressed mean spectral magnitude per band for each
// channel (column) of epoch. Values are always returned; when any of them is
// undefined the error wraps ErrUndefinedBandPower.
func BandPowers(epoch mat.Matrix, sampleRate float64) ([]Bands, error) {
	n, channels := epoch.Dims()
	if n < 2 {
		return nil, fmt.Errorf("epoch of %d samples: %w", n, ErrUndefinedBandPower)
	}

	nfft := NextPow2(n)
	fft := fourier.NewFFT(nfft)
	col := make([]float64, n)
	padded := make([]float64, nfft)
	var coeffs []complex128

	out := make([]Bands, channels)
	var firstErr error
	for ch := 0; ch < channels; ch++ {
		mat.Col(col, ch, epoch)
		floats.AddConst(-stat.Mean(col, nil), col)
		window.Hamming(col)
		copy(padded, col)
		clear(padded[n:])

		coeffs = fft.Coefficients(coeffs, padded)
		out[ch] = bandMeans(coeffs, n, nfft, sampleRate)

		if firstErr == nil {
			for b := Delta; b < NumBands; b++ {
				v := out[ch][b]
				if math.IsNaN(v) || math.IsInf(v, 0) {
					firstErr = fmt.Errorf("channel %d %s: %w", ch, b, ErrUndefinedBandPower)
					break
				}
			}
		}
	}
	return out, firstErr
}

func bandMeans(coeffs []complex128, n, nfft int, sampleRate float64) Bands {
	var sums, counts Bands
	for k := 0; k < nfft/2; k++ {
		mag := cmplx.Abs(coeffs[k]) / float64(n)
		if k > 0 {
			mag *= 2
		}
		freq := float64(k) * sampleRate / float64(nfft)
		for b := Delta; b < NumBands; b++ {
			if b.Contains(freq) {
				sums[b] += mag
				counts[b]++
			}
		}
	}

	var out Bands
	for b := range out {
		if counts[b] == 0 {
			out[b] = math.NaN()
			continue
		}
		out[b] = math.Log10(sums[b] / counts[b])
	}
	return out
}

// NextPow2 returns the smallest power of two >= n.
func NextPow2(n int) int {
	p := 1
	for p < n {
		p *= 2
	}
	return p
}
