// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"maps"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is returned by Load when the merged configuration cannot be run.
var ErrInvalid = errors.New("invalid config")

// Config holds all simulation configuration parameters.
type Config struct {
	Lattice     LatticeConfig      `yaml:"lattice"`
	Simulation  SimulationConfig   `yaml:"simulation"`
	Telemetry   TelemetryConfig    `yaml:"telemetry"`
	Parameters  map[string]string  `yaml:"parameters"` // shared by every population, overridden per population
	Populations []PopulationConfig `yaml:"populations"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// LatticeConfig holds lattice dimensions in voxels. A depth of 1 is a 2D
// lattice.
type LatticeConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	Depth  int `yaml:"depth"`
}

// SimulationConfig holds run parameters.
type SimulationConfig struct {
	Seed               uint64 `yaml:"seed"`                  // 0 picks a time-based seed
	Ticks              int    `yaml:"ticks"`                 // 0 runs until no agents remain
	RelaxVoxelsPerTick int    `yaml:"relax_voxels_per_tick"` // most voxels a location gains or loses per tick
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	WindowTicks         int `yaml:"window_ticks"`
	PerfCollectorWindow int `yaml:"perf_collector_window"`
}

// PopulationConfig describes one population and how it is seeded.
type PopulationConfig struct {
	ID                      int               `yaml:"id"`
	Name                    string            `yaml:"name"`
	Class                   string            `yaml:"class"`
	State                   string            `yaml:"state"` // initial state, PROLIFERATIVE if empty
	Init                    int               `yaml:"init"`  // agents seeded at start
	CriticalVolume          float64           `yaml:"critical_volume"`
	CriticalHeight          float64           `yaml:"critical_height"`
	CriticalNucleusFraction float64           `yaml:"critical_nucleus_fraction"` // 0 disables the nucleus region
	Links                   map[int]float64   `yaml:"links"`                     // destination population -> weight
	Parameters              map[string]string `yaml:"parameters"`
}

// DerivedConfig holds values computed from the loaded configuration.
type DerivedConfig struct {
	PopulationIndex map[int]int // id -> index into Populations
	Voxels          int         // lattice size
	ThreeD          bool
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	return Parse(data)
}

// Parse overlays data on the embedded defaults. Only fields present in data
// change: a populations list replaces the default one, parameters maps are
// merged by key.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	if c.Lattice.Depth == 0 {
		c.Lattice.Depth = 1
	}
	c.Derived.Voxels = c.Lattice.Width * c.Lattice.Height * c.Lattice.Depth
	c.Derived.ThreeD = c.Lattice.Depth > 1

	c.Derived.PopulationIndex = make(map[int]int, len(c.Populations))
	for i, p := range c.Populations {
		if _, dup := c.Derived.PopulationIndex[p.ID]; !dup {
			c.Derived.PopulationIndex[p.ID] = i
		}
	}
}

func (c *Config) validate() error {
	l := c.Lattice
	if l.Width <= 0 || l.Height <= 0 || l.Depth <= 0 {
		return fmt.Errorf("%w: lattice %dx%dx%d", ErrInvalid, l.Width, l.Height, l.Depth)
	}

	seen := make(map[int]bool, len(c.Populations))
	seeded := 0
	for _, p := range c.Populations {
		if p.ID <= 0 {
			return fmt.Errorf("%w: population id %d must be positive", ErrInvalid, p.ID)
		}
		if seen[p.ID] {
			return fmt.Errorf("%w: duplicate population id %d", ErrInvalid, p.ID)
		}
		seen[p.ID] = true
		if p.Init < 0 {
			return fmt.Errorf("%w: population %d: negative init", ErrInvalid, p.ID)
		}
		if p.Init > 0 && p.CriticalVolume <= 0 {
			return fmt.Errorf("%w: population %d: seeded with critical_volume %v", ErrInvalid, p.ID, p.CriticalVolume)
		}
		if p.CriticalNucleusFraction < 0 || p.CriticalNucleusFraction >= 1 {
			return fmt.Errorf("%w: population %d: critical_nucleus_fraction %v outside [0,1)", ErrInvalid, p.ID, p.CriticalNucleusFraction)
		}
		seeded += p.Init * PatchVolume(p.CriticalVolume, c.Derived.ThreeD)
	}

	for _, p := range c.Populations {
		for dest := range p.Links {
			if !seen[dest] {
				return fmt.Errorf("%w: population %d links to unknown population %d", ErrInvalid, p.ID, dest)
			}
		}
	}

	if seeded > c.Derived.Voxels {
		return fmt.Errorf("%w: seeding %d voxels into a lattice of %d", ErrInvalid, seeded, c.Derived.Voxels)
	}
	return nil
}

// Population returns the population with id.
func (c *Config) Population(id int) (PopulationConfig, bool) {
	i, ok := c.Derived.PopulationIndex[id]
	if !ok {
		return PopulationConfig{}, false
	}
	return c.Populations[i], true
}

// PopulationParameters merges the shared parameters with those of p.
func (c *Config) PopulationParameters(p PopulationConfig) map[string]string {
	out := make(map[string]string, len(c.Parameters)+len(p.Parameters))
	maps.Copy(out, c.Parameters)
	maps.Copy(out, p.Parameters)
	return out
}

// Clone returns a deep copy of c that can be modified independently.
func (c *Config) Clone() *Config {
	out := *c
	out.Parameters = maps.Clone(c.Parameters)
	out.Populations = make([]PopulationConfig, len(c.Populations))
	for i, p := range c.Populations {
		p.Links = maps.Clone(p.Links)
		p.Parameters = maps.Clone(p.Parameters)
		out.Populations[i] = p
	}
	out.Derived.PopulationIndex = maps.Clone(c.Derived.PopulationIndex)
	return &out
}

// PatchSide returns the edge length of the square (or cube) patch an agent
// of the given critical volume is seeded into.
func PatchSide(volume float64, threeD bool) int {
	if volume <= 0 {
		return 0
	}
	if threeD {
		return int(math.Ceil(math.Cbrt(volume)))
	}
	return int(math.Ceil(math.Sqrt(volume)))
}

// PatchVolume returns the number of voxels in a seeding patch.
func PatchVolume(volume float64, threeD bool) int {
	s := PatchSide(volume, threeD)
	if threeD {
		return s * s * s
	}
	return s * s
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
