// Command calibrate searches module parameters with CMA-ES so that a
// population reaches a target size after a fixed number of ticks.
package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/tissue/config"
)

type options struct {
	configPath  string
	outputDir   string
	maxTicks    int
	seeds       int
	maxEvals    int
	population  int
	targetPop   int
	targetCount int
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "Base config YAML file (empty = use defaults)")
	flag.StringVar(&o.outputDir, "output", "", "Output directory for results")
	flag.IntVar(&o.maxTicks, "max-ticks", 1000, "Ticks per run")
	flag.IntVar(&o.seeds, "seeds", 3, "Number of seeds per evaluation")
	flag.IntVar(&o.maxEvals, "max-evals", 200, "Maximum number of evaluations")
	flag.IntVar(&o.population, "population", 0, "CMA-ES population size (0 = auto)")
	flag.IntVar(&o.targetPop, "target-pop", 3, "Population whose final size is calibrated")
	flag.IntVar(&o.targetCount, "target-count", 40, "Wanted number of agents in the target population")
	flag.Parse()

	// Every run logs its start and end at Info; keep only warnings.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if err := run(o); err != nil {
		slog.Error("calibration failed", "error", err)
		os.Exit(1)
	}
}

func run(o options) error {
	if o.outputDir == "" {
		return errors.New("-output is required")
	}
	if err := os.MkdirAll(o.outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := config.Init(o.configPath); err != nil {
		return err
	}
	baseCfg := config.Cfg()
	if _, ok := baseCfg.Population(o.targetPop); !ok {
		return fmt.Errorf("target population %d is not configured", o.targetPop)
	}

	params := NewParamVector()
	seeds := make([]uint64, o.seeds)
	for i := range seeds {
		seeds[i] = uint64(i*1000 + 42)
	}
	evaluator := NewFitnessEvaluator(params, o.maxTicks, seeds, baseCfg, Target{Pop: o.targetPop, Count: o.targetCount})

	logFile, err := os.Create(filepath.Join(o.outputDir, "calibrate_log.csv"))
	if err != nil {
		return fmt.Errorf("creating log file: %w", err)
	}
	defer logFile.Close()

	prog := &progress{
		params:      params,
		evaluator:   evaluator,
		log:         csv.NewWriter(logFile),
		maxEvals:    o.maxEvals,
		start:       time.Now(),
		bestFitness: 1e9,
	}
	if err := prog.log.Write(params.Header()); err != nil {
		return fmt.Errorf("writing log header: %w", err)
	}

	popSize := o.population
	if popSize == 0 {
		popSize = 4 + int(3.0*float64(params.Dim())/2.0)
	}
	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}
	settings := &optimize.Settings{
		FuncEvaluations: o.maxEvals,
		Concurrent:      0, // Sequential evaluation; seeds run in parallel
	}

	fmt.Printf("Starting CMA-ES calibration with %d parameters, population=%d, max_evals=%d\n",
		params.Dim(), popSize, o.maxEvals)
	fmt.Printf("Seeds per evaluation: %d, ticks per run: %d, target: %d agents in population %d\n",
		o.seeds, o.maxTicks, o.targetCount, o.targetPop)

	initX := params.Normalize(params.ExtractFromConfig(baseCfg))
	result, err := optimize.Minimize(optimize.Problem{Func: prog.objective}, initX, settings, method)
	if err != nil {
		fmt.Printf("calibration ended: %v\n", err)
	}
	prog.log.Flush()

	best := prog.best
	if best == nil && result != nil {
		best = params.Clamp(params.Denormalize(result.X))
	}
	if best == nil {
		return errors.New("no evaluation completed")
	}

	fmt.Printf("\nCalibration complete after %d evaluations in %s\n", prog.evals, formatDuration(time.Since(prog.start)))
	fmt.Printf("Best fitness: %.4f\n", prog.bestFitness)
	fmt.Println("\nBest parameters:")
	for i, spec := range params.Specs {
		fmt.Printf("  %s: %.6f\n", spec.Name, best[i])
	}

	bestCfg := baseCfg.Clone()
	params.ApplyToConfig(bestCfg, best)
	configOutPath := filepath.Join(o.outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		return err
	}
	fmt.Printf("\nBest config saved to: %s\n", configOutPath)
	return nil
}

// progress tracks evaluations for the objective the optimizer calls.
type progress struct {
	params    *ParamVector
	evaluator *FitnessEvaluator
	log       *csv.Writer
	maxEvals  int
	start     time.Time

	evals       int
	bestFitness float64
	best        []float64
}

// objective evaluates normalized parameters and logs the clamped values
// that were actually run.
func (p *progress) objective(x []float64) float64 {
	clamped := p.params.Clamp(p.params.Denormalize(x))
	fitness := p.evaluator.Evaluate(clamped)
	p.evals++
	if fitness < p.bestFitness {
		p.bestFitness = fitness
		p.best = clamped
	}

	if err := p.log.Write(p.params.Row(p.evals, fitness, clamped)); err != nil {
		slog.Warn("failed to write calibration log", "error", err)
	}
	p.log.Flush()

	elapsed := time.Since(p.start)
	remaining := time.Duration(p.maxEvals-p.evals) * (elapsed / time.Duration(p.evals))
	fmt.Printf("Eval %d/%d: count=%.1f fitness=%.4f (best=%.4f) | elapsed: %s, ETA: %s\n",
		p.evals, p.maxEvals, p.evaluator.LastCount(), fitness, p.bestFitness,
		formatDuration(elapsed), formatDuration(remaining))
	return fitness
}

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}
