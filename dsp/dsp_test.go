package dsp

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func notch256(t *testing.T) Coefficients {
	t.Helper()
	c, err := ButterBandStop(4, 55, 65, 256)
	if err != nil {
		t.Fatalf("ButterBandStop: %v", err)
	}
	return c
}

// --- Design ---

func TestButterBandStopShape(t *testing.T) {
	c := notch256(t)
	if len(c.B) != 9 || len(c.A) != 9 {
		t.Fatalf("coefficient lengths = %d/%d, want 9/9", len(c.B), len(c.A))
	}
	if c.A[0] != 1 {
		t.Errorf("A[0] = %v, want 1", c.A[0])
	}
	// Band-stop numerators are palindromic.
	for i := range c.B {
		if d := c.B[i] - c.B[len(c.B)-1-i]; math.Abs(d) > 1e-9 {
			t.Errorf("B not symmetric at %d: %v vs %v", i, c.B[i], c.B[len(c.B)-1-i])
		}
	}
}

func TestButterBandStopResponse(t *testing.T) {
	c := notch256(t)
	tests := []struct {
		freq     float64
		min, max float64
	}{
		{0, 0.999, 1.001},
		{10, 0.99, 1.01},
		{60, 0, 0.01},
		{110, 0.99, 1.01},
	}
	for _, tt := range tests {
		g := c.Gain(tt.freq, 256)
		if g < tt.min || g > tt.max {
			t.Errorf("Gain(%v Hz) = %v, want [%v, %v]", tt.freq, g, tt.min, tt.max)
		}
	}
}

func TestButterBandStopInvalid(t *testing.T) {
	tests := []struct {
		name            string
		order           int
		low, high, rate float64
	}{
		{"above nyquist", 4, 55, 65, 100},
		{"inverted", 4, 65, 55, 256},
		{"zero low", 4, 0, 10, 256},
		{"zero order", 0, 55, 65, 256},
	}
	for _, tt := range tests {
		if _, err := ButterBandStop(tt.order, tt.low, tt.high, tt.rate); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

// --- Filter ---

func TestFilterConstantInputIsFlat(t *testing.T) {
	f, err := NewFilter(notch256(t), 1)
	if err != nil {
		t.Fatal(err)
	}
	x := make([]float64, 512)
	for i := range x {
		x[i] = 3.5
	}
	f.Process(0, x)
	for i, v := range x {
		if math.Abs(v-3.5) > 1e-6 {
			t.Fatalf("sample %d = %v, want 3.5 (no startup transient)", i, v)
		}
	}
}

func TestFilterSplitMatchesWhole(t *testing.T) {
	signal := make([]float64, 300)
	for i := range signal {
		ts := float64(i) / 256
		signal[i] = math.Sin(2*math.Pi*10*ts) + 0.5*math.Sin(2*math.Pi*60*ts) + 0.2
	}

	whole, _ := NewFilter(notch256(t), 1)
	a := append([]float64(nil), signal...)
	whole.Process(0, a)

	split, _ := NewFilter(notch256(t), 1)
	b := append([]float64(nil), signal...)
	split.Process(0, b[:137])
	split.Process(0, b[137:])

	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-9 {
			t.Fatalf("sample %d: whole=%v split=%v", i, a[i], b[i])
		}
	}
}

func TestFilterChannelsIndependent(t *testing.T) {
	f, _ := NewFilter(notch256(t), 2)
	x := []float64{1, 2, 3}
	f.Process(1, x)
	if f.Seeded(0) {
		t.Error("channel 0 seeded by processing channel 1")
	}
	if !f.Seeded(1) {
		t.Error("channel 1 not seeded")
	}
}

// --- Band powers ---

func sineEpoch(n, channels int, rate float64) *mat.Dense {
	m := mat.NewDense(n, channels, nil)
	for ch := 0; ch < channels; ch++ {
		phase := float64(ch) * 0.7
		for i := 0; i < n; i++ {
			ts := float64(i) / rate
			v := 10*math.Sin(2*math.Pi*10*ts+phase) +
				math.Sin(2*math.Pi*2*ts) +
				math.Sin(2*math.Pi*6*ts+phase) +
				math.Sin(2*math.Pi*20*ts)
			m.Set(i, ch, v)
		}
	}
	return m
}

func TestBandPowersAlphaDominant(t *testing.T) {
	powers, err := BandPowers(sineEpoch(256, 4, 256), 256)
	if err != nil {
		t.Fatalf("BandPowers: %v", err)
	}
	if len(powers) != 4 {
		t.Fatalf("got %d channels, want 4", len(powers))
	}
	for ch, p := range powers {
		for b := Delta; b < NumBands; b++ {
			if b != Alpha && p[b] >= p[Alpha] {
				t.Errorf("channel %d: %s=%v >= alpha=%v", ch, b, p[b], p[Alpha])
			}
		}
	}
}

func TestBandPowersEmptyBandIsNaN(t *testing.T) {
	// 16 Hz sampling cannot resolve alpha or beta.
	powers, err := BandPowers(sineEpoch(32, 1, 16), 16)
	if !errors.Is(err, ErrUndefinedBandPower) {
		t.Fatalf("err = %v, want ErrUndefinedBandPower", err)
	}
	if !math.IsNaN(powers[0][Beta]) {
		t.Errorf("beta = %v, want NaN", powers[0][Beta])
	}
	if math.IsNaN(powers[0][Delta]) {
		t.Error("delta should still be defined")
	}
}

func TestBandPowersZeroVariance(t *testing.T) {
	m := mat.NewDense(128, 1, nil)
	for i := 0; i < 128; i++ {
		m.Set(i, 0, 7)
	}
	powers, err := BandPowers(m, 256)
	if !errors.Is(err, ErrUndefinedBandPower) {
		t.Fatalf("err = %v, want ErrUndefinedBandPower", err)
	}
	if powers[0].Finite() {
		t.Error("flat epoch produced finite band powers")
	}
}

func TestBandContainsEdges(t *testing.T) {
	tests := []struct {
		band Band
		freq float64
		want bool
	}{
		{Delta, 0, true},
		{Delta, 4, false},
		{Theta, 4, true},
		{Theta, 8, true},
		{Alpha, 8, true},
		{Alpha, 12, true},
		{Beta, 12, true},
		{Beta, 30, false},
	}
	for _, tt := range tests {
		if got := tt.band.Contains(tt.freq); got != tt.want {
			t.Errorf("%s.Contains(%v) = %v, want %v", tt.band, tt.freq, got, tt.want)
		}
	}
}

func TestNextPow2(t *testing.T) {
	tests := []struct{ in, want int }{
		{1, 1}, {2, 2}, {3, 4}, {256, 256}, {257, 512}, {500, 512},
	}
	for _, tt := range tests {
		if got := NextPow2(tt.in); got != tt.want {
			t.Errorf("NextPow2(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
