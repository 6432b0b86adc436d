package selector

import "math/rand/v2"

// Rand is the randomness source used for shuffling and sampling.
// *rand.Rand from math/rand/v2 satisfies it, which lets tests seed it.
type Rand interface {
	Shuffle(n int, swap func(i, j int))
	Float64() float64
}

// Sampler draws one index with probability proportional to weights[i].
type Sampler interface {
	Sample(weights []float64) int
}

// SamplerFunc adapts a function to Sampler.
type SamplerFunc func(weights []float64) int

// Sample calls f(weights).
func (f SamplerFunc) Sample(weights []float64) int {
	return f(weights)
}

type globalRand struct{}

func (globalRand) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }
func (globalRand) Float64() float64                   { return rand.Float64() }

// weightedSampler implements Sampler with cumulative weights.
type weightedSampler struct {
	rng Rand
}

func (s weightedSampler) Sample(weights []float64) int {
	var total float64
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return int(s.rng.Float64() * float64(len(weights)))
	}

	target := s.rng.Float64() * total
	var cum float64
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		cum += w
		if target < cum {
			return i
		}
	}

	// Float rounding can leave target == total; fall back to the last
	// positive weight.
	for i := len(weights) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return i
		}
	}
	return len(weights) - 1
}
