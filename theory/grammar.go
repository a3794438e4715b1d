package theory

import "go-neuromusic/debug"

// TonicSymbol is the degree every melody starts from.
const TonicSymbol = "T"

// Rand is the randomness the generator needs. *rand.Rand from math/rand/v2
// satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// Melody walks the mode's grammar from the tonic and returns exactly k
// intervals. Each pass rewrites every symbol of the current sequence and
// appends the result; the walk stops after 2k passes or once k symbols exist.
func (m Mode) Melody(k int, rng Rand) []int {
	if k <= 0 {
		return nil
	}
	root, _ := m.Interval(TonicSymbol)
	out := make([]int, 0, k)
	out = append(out, root)

	seq := []string{TonicSymbol}
	for pass := 0; pass < 2*k && len(out) < k; pass++ {
		seq = m.rewrite(seq, k, rng)
		for _, s := range seq {
			iv, _ := m.Interval(s)
			out = append(out, iv)
		}
	}

	// Every pass yields at least one symbol, so k-1 passes always suffice.
	if len(out) < k {
		debug.Log("theory", "melody short in %s: %d/%d", m.Name, len(out), k)
	}
	return out[:min(k, len(out))]
}

// rewrite applies one production to every symbol, keeping at most limit
// symbols so the sequence cannot grow without bound.
func (m Mode) rewrite(seq []string, limit int, rng Rand) []string {
	next := make([]string, 0, len(seq))
	for _, s := range seq {
		prods, ok := m.Rules[s]
		if !ok {
			next = append(next, s)
		} else {
			next = append(next, choose(prods, rng).To...)
		}
		if len(next) >= limit {
			return next[:limit]
		}
	}
	return next
}

func choose(prods []Production, rng Rand) Production {
	total := 0.0
	for _, p := range prods {
		total += p.Weight
	}
	r := rng.Float64() * total
	for _, p := range prods {
		if r < p.Weight {
			return p
		}
		r -= p.Weight
	}
	return prods[len(prods)-1]
}
