package config

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Derived.Voxels != 100*100 {
		t.Errorf("Voxels = %d, want %d", cfg.Derived.Voxels, 100*100)
	}
	if cfg.Derived.ThreeD {
		t.Error("ThreeD = true, want false")
	}
	if len(cfg.Populations) != 3 {
		t.Fatalf("len(Populations) = %d, want 3", len(cfg.Populations))
	}
	p, ok := cfg.Population(2)
	if !ok || p.Class != "gmc" {
		t.Errorf("Population(2) = %+v, %v, want gmc", p, ok)
	}
	if _, ok := cfg.Population(9); ok {
		t.Error("Population(9) found, want missing")
	}
	if got := cfg.Parameters["proliferation/SIZE_TARGET"]; got != "2" {
		t.Errorf("SIZE_TARGET = %q, want %q", got, "2")
	}
}

func TestParseOverlay(t *testing.T) {
	data := []byte(`
lattice:
  width: 30
parameters:
  proliferation/SIZE_TARGET: "3"
populations:
  - id: 5
    class: tissue
    init: 2
    critical_volume: 20
    parameters:
      proliferation/RATE_G1: NORMAL(2,0.1)
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Lattice.Width != 30 || cfg.Lattice.Height != 100 {
		t.Errorf("lattice = %dx%d, want 30x100", cfg.Lattice.Width, cfg.Lattice.Height)
	}
	if len(cfg.Populations) != 1 || cfg.Populations[0].ID != 5 {
		t.Fatalf("Populations = %+v, want the single overlaid population", cfg.Populations)
	}

	merged := cfg.PopulationParameters(cfg.Populations[0])
	if merged["proliferation/SIZE_TARGET"] != "3" {
		t.Errorf("SIZE_TARGET = %q, want %q", merged["proliferation/SIZE_TARGET"], "3")
	}
	if merged["proliferation/RATE_G1"] != "NORMAL(2,0.1)" {
		t.Errorf("RATE_G1 = %q, want %q", merged["proliferation/RATE_G1"], "NORMAL(2,0.1)")
	}
	if merged["apoptosis/STEPS_EARLY"] != "10" {
		t.Errorf("STEPS_EARLY = %q, want default %q", merged["apoptosis/STEPS_EARLY"], "10")
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"zero width", "lattice: {width: 0}"},
		{"negative depth", "lattice: {depth: -2}"},
		{"duplicate id", "populations: [{id: 1, class: tissue}, {id: 1, class: tissue}]"},
		{"non-positive id", "populations: [{id: 0, class: tissue}]"},
		{"unknown link", "populations: [{id: 1, class: tissue, links: {4: 1}}]"},
		{"seeded without volume", "populations: [{id: 1, class: tissue, init: 1}]"},
		{"nucleus fraction", "populations: [{id: 1, class: tissue, critical_nucleus_fraction: 1}]"},
		{"overseeded", "lattice: {width: 10, height: 10}\npopulations: [{id: 1, class: tissue, init: 5, critical_volume: 25}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Parse() error = %v, want %v", err, ErrInvalid)
			}
		})
	}
}

func TestParseMalformed(t *testing.T) {
	if _, err := Parse([]byte("lattice: [")); err == nil {
		t.Error("Parse() error = nil, want a YAML error")
	}
}

func TestPatchSide(t *testing.T) {
	tests := []struct {
		volume float64
		threeD bool
		side   int
		voxels int
	}{
		{100, false, 10, 100},
		{101, false, 11, 121},
		{27, true, 3, 27},
		{30, true, 4, 64},
		{0, false, 0, 0},
	}
	for _, tt := range tests {
		if got := PatchSide(tt.volume, tt.threeD); got != tt.side {
			t.Errorf("PatchSide(%v, %v) = %d, want %d", tt.volume, tt.threeD, got, tt.side)
		}
		if got := PatchVolume(tt.volume, tt.threeD); got != tt.voxels {
			t.Errorf("PatchVolume(%v, %v) = %d, want %d", tt.volume, tt.threeD, got, tt.voxels)
		}
	}
}

func TestWriteYAMLReload(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg.Simulation.Seed = 42

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML() error = %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%s) error = %v", path, err)
	}
	if diff := cmp.Diff(cfg, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("reloaded config mismatch (-want +got):\n%s", diff)
	}
}

func TestClone(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	c := cfg.Clone()
	c.Parameters["proliferation/SIZE_TARGET"] = "9"
	c.Populations[0].Links[2] = 5
	c.Populations[0].Init = 7

	if got := cfg.Parameters["proliferation/SIZE_TARGET"]; got != "2" {
		t.Errorf("original SIZE_TARGET = %q, want %q", got, "2")
	}
	if got := cfg.Populations[0].Links[2]; got != 1 {
		t.Errorf("original link weight = %v, want 1", got)
	}
	if got := cfg.Populations[0].Init; got != 1 {
		t.Errorf("original init = %d, want 1", got)
	}
}

func TestMustInitPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustInit() did not panic on a missing file")
		}
	}()
	MustInit(filepath.Join(t.TempDir(), "missing.yaml"))
}
