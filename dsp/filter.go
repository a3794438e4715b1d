package dsp

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Filter runs one IIR filter over several independent channels and keeps each
// channel's delay line between calls. State is seeded lazily on the first
// sample a channel sees and is never reset afterwards.
type Filter struct {
	coef  Coefficients
	zi    []float64   // steady-state delay line for a unit step input
	state [][]float64 // per channel; nil until first use
}

// NewFilter prepares a filter for the given channel count.
func NewFilter(c Coefficients, channels int) (*Filter, error) {
	if len(c.A) == 0 || c.A[0] == 0 {
		return nil, errors.New("filter: leading denominator coefficient must be non-zero")
	}
	if channels < 1 {
		return nil, fmt.Errorf("filter: %d channels", channels)
	}
	c = normalize(c)
	zi, err := SteadyState(c)
	if err != nil {
		return nil, err
	}
	return &Filter{
		coef:  c,
		zi:    zi,
		state: make([][]float64, channels),
	}, nil
}

// Channels returns the number of channels the filter tracks.
func (f *Filter) Channels() int {
	return len(f.state)
}

// Seeded reports whether channel ch has been initialized.
func (f *Filter) Seeded(ch int) bool {
	return f.state[ch] != nil
}

// Process filters x in place as the continuation of channel ch.
func (f *Filter) Process(ch int, x []float64) {
	if len(x) == 0 {
		return
	}
	z := f.state[ch]
	if z == nil {
		// Start from the response the filter would have settled into had the
		// first sample been present forever: no startup transient.
		z = make([]float64, len(f.zi))
		for i, v := range f.zi {
			z[i] = v * x[0]
		}
		f.state[ch] = z
	}
	for i, v := range x {
		x[i] = f.step(z, v)
	}
}

// step advances a transposed direct form II delay line by one sample.
func (f *Filter) step(z []float64, x float64) float64 {
	b, a := f.coef.B, f.coef.A
	n := len(z)
	if n == 0 {
		return b[0] * x
	}
	y := b[0]*x + z[0]
	for i := 0; i < n-1; i++ {
		z[i] = b[i+1]*x + z[i+1] - a[i+1]*y
	}
	z[n-1] = b[n]*x - a[n]*y
	return y
}

// SteadyState returns the delay line contents reached after a unit step,
// solving (I - companion(A)^T) zi = B[1:] - A[1:]*B[0].
func SteadyState(c Coefficients) ([]float64, error) {
	c = normalize(c)
	m := len(c.A) - 1
	if m == 0 {
		return nil, nil
	}
	lhs := mat.NewDense(m, m, nil)
	rhs := mat.NewVecDense(m, nil)
	for i := 0; i < m; i++ {
		lhs.Set(i, i, 1)
		lhs.Set(i, 0, lhs.At(i, 0)+c.A[i+1])
		if i+1 < m {
			lhs.Set(i, i+1, lhs.At(i, i+1)-1)
		}
		rhs.SetVec(i, c.B[i+1]-c.A[i+1]*c.B[0])
	}

	var zi mat.VecDense
	if err := zi.SolveVec(lhs, rhs); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("filter steady state: %w", err)
		}
	}
	out := make([]float64, m)
	for i := range out {
		out[i] = zi.AtVec(i)
	}
	return out, nil
}

// normalize pads B and A to equal length and scales so A[0] == 1.
func normalize(c Coefficients) Coefficients {
	n := max(len(c.B), len(c.A))
	out := Coefficients{B: make([]float64, n), A: make([]float64, n)}
	a0 := c.A[0]
	for i, v := range c.B {
		out.B[i] = v / a0
	}
	for i, v := range c.A {
		out.A[i] = v / a0
	}
	return out
}
