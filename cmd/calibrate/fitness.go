package main

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/pthm-cable/tissue/config"
	"github.com/pthm-cable/tissue/sim"
)

// failedRunPenalty is the fitness of a run that stopped on an error.
const failedRunPenalty = 1e3

// Target is the population size a calibration aims for at the end of a run.
type Target struct {
	Pop   int
	Count int
}

// FitnessEvaluator runs headless simulations and scores them against a
// target population count.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   int
	seeds      []uint64
	baseConfig *config.Config
	target     Target

	mu        sync.Mutex
	lastCount float64 // mean count from the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int, seeds []uint64, baseCfg *config.Config, target Target) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		maxTicks:   maxTicks,
		seeds:      seeds,
		baseConfig: baseCfg,
		target:     target,
	}
}

// LastCount returns the mean final count from the most recent evaluation.
func (fe *FitnessEvaluator) LastCount() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastCount
}

// Evaluate computes fitness for a parameter vector (lower = better): the
// mean squared relative error of the final target count over all seeds.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.baseConfig.Clone()
	fe.params.ApplyToConfig(cfg, x)

	// Run all seeds in parallel
	fitness := make([]float64, len(fe.seeds))
	counts := make([]float64, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s uint64) {
			defer wg.Done()
			count, err := fe.runSimulation(cfg.Clone(), s)
			if err != nil {
				slog.Warn("calibration run failed", "seed", s, "error", err)
				fitness[idx] = failedRunPenalty
				return
			}
			counts[idx] = float64(count)
			fitness[idx] = fe.computeFitness(count)
		}(i, seed)
	}
	wg.Wait()

	var totalFitness, totalCount float64
	for i := range fe.seeds {
		totalFitness += fitness[i]
		totalCount += counts[i]
	}
	n := float64(len(fe.seeds))

	fe.mu.Lock()
	fe.lastCount = totalCount / n
	fe.mu.Unlock()

	return totalFitness / n
}

// runSimulation executes a single headless run and returns the number of
// agents in the target population at the end.
func (fe *FitnessEvaluator) runSimulation(cfg *config.Config, seed uint64) (int, error) {
	s, err := sim.New(cfg, rand.New(rand.NewPCG(seed, seed>>1|1)), sim.Options{})
	if err != nil {
		return 0, err
	}
	if err := s.Run(context.Background(), fe.maxTicks); err != nil {
		return 0, err
	}
	count := 0
	for _, c := range s.Grid().All() {
		if c.Pop() == fe.target.Pop {
			count++
		}
	}
	return count, nil
}

// computeFitness is the squared relative error of count.
func (fe *FitnessEvaluator) computeFitness(count int) float64 {
	want := math.Max(float64(fe.target.Count), 1)
	d := (float64(count) - want) / want
	return d * d
}
