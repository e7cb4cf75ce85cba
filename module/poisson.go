package module

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// PoissonSample is a single-use sampler of phase-completion progress.
type PoissonSample interface {
	// Next returns a non-negative draw.
	Next() int
}

// PoissonFactory creates samplers for a rate and random source.
type PoissonFactory interface {
	Create(rate float64, rng *rand.Rand) PoissonSample
}

// DistuvPoisson samples from gonum's Poisson distribution.
type DistuvPoisson struct{}

func (DistuvPoisson) Create(rate float64, rng *rand.Rand) PoissonSample {
	return poissonSample{lambda: rate, rng: rng}
}

type poissonSample struct {
	lambda float64
	rng    *rand.Rand
}

func (s poissonSample) Next() int {
	if s.lambda <= 0 {
		return 0
	}
	return max(0, int(distuv.Poisson{Lambda: s.lambda, Src: s.rng}.Rand()))
}
