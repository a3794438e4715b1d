package dsp

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Coefficients of a rational transfer function B(z)/A(z), normalized so A[0] == 1.
type Coefficients struct {
	B []float64
	A []float64
}

// Order returns the number of delay elements the filter needs.
func (c Coefficients) Order() int {
	return len(c.A) - 1
}

// Gain returns the magnitude response at freq for the given sample rate.
func (c Coefficients) Gain(freq, sampleRate float64) float64 {
	w := 2 * math.Pi * freq / sampleRate
	var num, den complex128
	for k, v := range c.B {
		num += complex(v, 0) * cmplx.Exp(complex(0, -w*float64(k)))
	}
	for k, v := range c.A {
		den += complex(v, 0) * cmplx.Exp(complex(0, -w*float64(k)))
	}
	return cmplx.Abs(num / den)
}

// ButterBandStop designs a digital Butterworth band-stop filter rejecting
// low..high Hz. order is the analog prototype order, so the digital filter has
// 2*order poles. Edges are prewarped for the bilinear transform.
func ButterBandStop(order int, low, high, sampleRate float64) (Coefficients, error) {
	nyq := sampleRate / 2
	if order < 1 {
		return Coefficients{}, fmt.Errorf("butter: order %d < 1", order)
	}
	if low <= 0 || high <= low || high >= nyq {
		return Coefficients{}, fmt.Errorf("butter: band %.1f-%.1f Hz invalid for %.1f Hz sample rate", low, high, sampleRate)
	}

	// Design happens on a normalized axis where Nyquist == 1 (fs = 2).
	const fs = 2.0
	const fs2 = 2 * fs
	w1 := fs2 * math.Tan(math.Pi*(low/nyq)/fs)
	w2 := fs2 * math.Tan(math.Pi*(high/nyq)/fs)
	bw := w2 - w1
	wo := math.Sqrt(w1 * w2)

	// Analog lowpass prototype: poles on the left half of the unit circle.
	proto := make([]complex128, order)
	for i := range proto {
		m := float64(-order + 1 + 2*i)
		proto[i] = -cmplx.Exp(complex(0, math.Pi*m/float64(2*order)))
	}

	// Lowpass -> bandstop. Each prototype pole splits in two and the
	// stopband center contributes order zeros at +/- j*wo.
	poles := make([]complex128, 0, 2*order)
	zeros := make([]complex128, 0, 2*order)
	gain := complex(1, 0)
	for _, p := range proto {
		gain /= -p
		hp := complex(bw/2, 0) / p
		root := cmplx.Sqrt(hp*hp - complex(wo*wo, 0))
		poles = append(poles, hp+root, hp-root)
	}
	for i := 0; i < order; i++ {
		zeros = append(zeros, complex(0, wo))
	}
	for i := 0; i < order; i++ {
		zeros = append(zeros, complex(0, -wo))
	}

	// Bilinear transform to the z-plane. Pole and zero counts match, so no
	// extra zeros at z = -1 are needed.
	num, den := complex(1, 0), complex(1, 0)
	zd := make([]complex128, len(zeros))
	for i, z := range zeros {
		zd[i] = (fs2 + z) / (fs2 - z)
		num *= fs2 - z
	}
	pd := make([]complex128, len(poles))
	for i, p := range poles {
		pd[i] = (fs2 + p) / (fs2 - p)
		den *= fs2 - p
	}
	k := real(gain) * real(num/den)

	bc := poly(zd)
	ac := poly(pd)
	c := Coefficients{
		B: make([]float64, len(bc)),
		A: make([]float64, len(ac)),
	}
	for i := range bc {
		c.B[i] = k * real(bc[i])
	}
	for i := range ac {
		c.A[i] = real(ac[i])
	}
	return c, nil
}

// poly expands prod(x - r) into coefficients, highest power first.
func poly(roots []complex128) []complex128 {
	c := []complex128{1}
	for _, r := range roots {
		next := make([]complex128, len(c)+1)
		for i, v := range c {
			next[i] += v
			next[i+1] -= v * r
		}
		c = next
	}
	return c
}
