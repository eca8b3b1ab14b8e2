package logits

import (
	"math"
	"math/rand"
)

// SamplerConfig configures the behaviour of a Sampler.
type SamplerConfig struct {
	Seed        int64
	Temperature float32
}

// Sampler draws token indices from logit vectors. Temperature <= 0 selects
// greedy argmax decoding, the mode whose determinism the invariant kernels
// exist to protect.
type Sampler struct {
	rng    *rand.Rand
	cfg    SamplerConfig
	greedy bool
	prob   []float64
}

// NewSampler returns a new sampler with the provided configuration.
func NewSampler(cfg SamplerConfig) *Sampler {
	greedy := cfg.Temperature <= 0
	if cfg.Temperature <= 0 {
		cfg.Temperature = 1
	}
	return &Sampler{
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		cfg:    cfg,
		greedy: greedy,
	}
}

// Greedy reports whether the sampler always returns the argmax.
func (s *Sampler) Greedy() bool { return s.greedy }

// Sample draws a single index from the provided logits vector. Greedy
// samplers return the argmax; otherwise logits are scaled by the inverse
// temperature, softmaxed, and sampled.
func (s *Sampler) Sample(logits []float32) int {
	if s.greedy {
		return Argmax(logits)
	}

	maxv := logits[Argmax(logits)]
	invTemp := float64(1) / float64(s.cfg.Temperature)

	if cap(s.prob) < len(logits) {
		s.prob = make([]float64, len(logits))
	}
	prob := s.prob[:len(logits)]

	var sum float64
	for i, v := range logits {
		p := math.Exp(float64(v-maxv) * invTemp)
		prob[i] = p
		sum += p
	}
	if sum == 0 {
		return Argmax(logits)
	}

	u := s.rng.Float64() * sum
	var acc float64
	for i, p := range prob {
		acc += p
		if u < acc {
			return i
		}
	}
	return len(logits) - 1
}

// Argmax returns the index of the largest value. Ties resolve to the lowest
// index so selection itself never introduces nondeterminism.
func Argmax(x []float32) int {
	best := 0
	for i := 1; i < len(x); i++ {
		if x[i] > x[best] {
			best = i
		}
	}
	return best
}
