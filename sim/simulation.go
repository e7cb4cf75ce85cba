// Package sim drives a tissue simulation: it owns the lattice, the agent
// index and scheduler, seeds the initial populations and steps every agent
// once per tick.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/pthm-cable/tissue/cell"
	"github.com/pthm-cable/tissue/config"
	"github.com/pthm-cable/tissue/lattice"
	"github.com/pthm-cable/tissue/module"
	"github.com/pthm-cable/tissue/systems"
	"github.com/pthm-cable/tissue/telemetry"
)

// Options configures optional simulation behaviour.
type Options struct {
	LogStats bool                     // log window stats at Info
	Output   *telemetry.OutputManager // nil disables CSV output
	Modules  []module.Option

	// StatsCallback, when set, receives every flushed window.
	StatsCallback func(telemetry.WindowStats)
}

// Simulation implements cell.Simulation for a single run.
type Simulation struct {
	cfg    *config.Config
	rng    *rand.Rand
	tick   int
	lastID int

	potts     *lattice.Potts
	grid      *systems.AgentGrid
	scheduler *Scheduler
	factory   *PopulationFactory
	relax     *systems.RelaxSystem

	collector     *telemetry.Collector
	lifetimes     *telemetry.LifetimeTracker
	perf          *telemetry.PerfCollector
	output        *telemetry.OutputManager
	pending       []telemetry.Event
	logStats      bool
	statsCallback func(telemetry.WindowStats)
}

// New builds the simulation described by cfg and seeds its populations.
func New(cfg *config.Config, rng *rand.Rand, opts Options) (*Simulation, error) {
	factory, err := NewPopulationFactory(cfg, opts.Modules...)
	if err != nil {
		return nil, err
	}

	s := &Simulation{
		cfg:           cfg,
		rng:           rng,
		potts:         lattice.NewPotts(cfg.Lattice.Width, cfg.Lattice.Height, cfg.Lattice.Depth),
		grid:          systems.NewAgentGrid(),
		scheduler:     NewScheduler(),
		factory:       factory,
		relax:         systems.NewRelaxSystem(cfg.Simulation.RelaxVoxelsPerTick),
		collector:     telemetry.NewCollector(cfg.Telemetry.WindowTicks),
		lifetimes:     telemetry.NewLifetimeTracker(),
		perf:          telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		output:        opts.Output,
		logStats:      opts.LogStats,
		statsCallback: opts.StatsCallback,
	}
	if err := s.seed(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Simulation) Tick() int                 { return s.tick }
func (s *Simulation) Potts() *lattice.Potts     { return s.potts }
func (s *Simulation) Grid() cell.Grid           { return s.grid }
func (s *Simulation) Scheduler() cell.Scheduler { return s.scheduler }
func (s *Simulation) Factory() cell.Factory     { return s.factory }

// NextID returns a fresh agent id. Ids start at 1; 0 is medium.
func (s *Simulation) NextID() int {
	s.lastID++
	return s.lastID
}

// Record counts ev in the current window and queues it for the event log.
func (s *Simulation) Record(ev telemetry.Event) {
	s.collector.Record(ev)
	s.collector.RecordLifespan(s.lifetimes.Observe(ev))
	s.pending = append(s.pending, ev)
}

// Agents returns the number of live agents.
func (s *Simulation) Agents() int {
	return s.grid.Len()
}

// Step advances the simulation by one tick: every scheduled agent is
// stepped in schedule order, then locations relax toward their targets.
// Agents scheduled during the tick are first stepped on the next one.
func (s *Simulation) Step() error {
	s.tick++
	s.perf.StartTick()

	s.perf.StartSection(telemetry.SectionModules)
	for _, c := range s.scheduler.Due() {
		if c.Stopped() {
			continue
		}
		if err := c.Step(s.rng, s); err != nil {
			s.perf.EndTick()
			return fmt.Errorf("tick %d: %w", s.tick, err)
		}
	}

	s.perf.StartSection(telemetry.SectionRelax)
	s.relax.Update(s.potts)

	s.perf.StartSection(telemetry.SectionTelemetry)
	s.flushTelemetry()

	s.perf.EndTick()
	return nil
}

// Run steps until ticks have elapsed (0 for no limit), no agents remain or
// ctx is done.
func (s *Simulation) Run(ctx context.Context, ticks int) error {
	slog.Info("simulation started",
		"agents", s.Agents(),
		"lattice", fmt.Sprintf("%dx%dx%d", s.potts.Width, s.potts.Height, s.potts.Depth),
	)
	for ticks == 0 || s.tick < ticks {
		if err := ctx.Err(); err != nil {
			slog.Info("simulation interrupted", "tick", s.tick)
			return nil
		}
		if s.Agents() == 0 {
			slog.Info("no agents remain", "tick", s.tick)
			return nil
		}
		if err := s.Step(); err != nil {
			return err
		}
	}
	slog.Info("max ticks reached", "tick", s.tick, "agents", s.Agents())
	return nil
}

// flushTelemetry writes queued events and, at window boundaries, the
// window stats.
func (s *Simulation) flushTelemetry() {
	if err := s.output.WriteEvents(s.pending); err != nil {
		slog.Error("failed to write events", "error", err)
	}
	s.pending = s.pending[:0]

	if !s.collector.ShouldFlush(s.tick) {
		return
	}

	stats := s.collector.Flush(s.tick, s.snapshot())
	perfStats := s.perf.Stats()

	if s.statsCallback != nil {
		s.statsCallback(stats)
	}

	if s.logStats {
		stats.LogStats()
		slog.Info("perf", "stats", perfStats)
	}

	if err := s.output.WriteTelemetry(stats); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
}

// snapshot samples the population for the window being flushed.
func (s *Simulation) snapshot() telemetry.PopulationSnapshot {
	agents := s.grid.All()
	snap := telemetry.PopulationSnapshot{
		Cells:    len(agents),
		Volumes:  make([]float64, 0, len(agents)),
		Contacts: make([]float64, 0, len(agents)),
	}
	for _, c := range agents {
		switch c.State() {
		case cell.StateProliferative:
			snap.Proliferative++
		case cell.StateApoptotic:
			snap.Apoptotic++
		case cell.StateQuiescent:
			snap.Quiescent++
		}
		if c.Class().IsStem() {
			snap.Stem++
		}
		snap.Volumes = append(snap.Volumes, c.Volume())
		snap.Contacts = append(snap.Contacts, float64(module.ContactCount(s, c)))
	}
	return snap
}
