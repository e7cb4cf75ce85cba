package main

import (
	"context"
	"flag"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"time"

	"github.com/pthm-cable/tissue/config"
	"github.com/pthm-cable/tissue/sim"
	"github.com/pthm-cable/tissue/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Output window stats via slog")
	statsWindow := flag.Int("stats-window", 0, "Stats window size in ticks (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Uint64("seed", 0, "RNG seed (0 = use config, then time-based)")
	maxTicks := flag.Int("max-ticks", -1, "Stop after N ticks (0 = unlimited, -1 = use config)")
	debug := flag.Bool("debug", false, "Log divisions and removals")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// CLI overrides are written into the config so the snapshot matches the run
	if *seed != 0 {
		cfg.Simulation.Seed = *seed
	}
	if cfg.Simulation.Seed == 0 {
		cfg.Simulation.Seed = uint64(time.Now().UnixNano())
	}
	if *statsWindow > 0 {
		cfg.Telemetry.WindowTicks = *statsWindow
	}
	if *maxTicks >= 0 {
		cfg.Simulation.Ticks = *maxTicks
	}

	output, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output", "error", err)
		os.Exit(1)
	}
	if err := output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
	}

	rng := rand.New(rand.NewPCG(cfg.Simulation.Seed, cfg.Simulation.Seed>>1|1))
	s, err := sim.New(cfg, rng, sim.Options{LogStats: *logStats, Output: output})
	if err != nil {
		slog.Error("failed to create simulation", "error", err)
		output.Close()
		os.Exit(1)
	}

	slog.Info("starting headless simulation",
		"seed", cfg.Simulation.Seed,
		"stats_window", cfg.Telemetry.WindowTicks,
		"max_ticks", cfg.Simulation.Ticks,
		"output_dir", output.Dir(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	runErr := s.Run(ctx, cfg.Simulation.Ticks)
	stop()

	if err := output.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
	}
	if runErr != nil {
		slog.Error("simulation failed", "tick", s.Tick(), "error", runErr)
		os.Exit(1)
	}
}
