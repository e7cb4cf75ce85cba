package module

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/tissue/cell"
	"github.com/pthm-cable/tissue/geom"
	"github.com/pthm-cable/tissue/lattice"
	"github.com/pthm-cable/tissue/params"
	"github.com/pthm-cable/tissue/telemetry"
)

func vecNear(a, b r3.Vec) bool {
	return r3.Norm(r3.Sub(a, b)) < 1e-9
}

// divideNow steps c from M with a draw that completes the phase.
func divideNow(t *testing.T, sim *fakeSim, c *cell.Cell, seed uint64) {
	t.Helper()
	phaseModule(t, c).SetPhase(cell.PhaseProliferativeM)
	if err := c.Step(testRNG(seed), sim); err != nil {
		t.Fatalf("Step() error = %v", err)
	}
}

func TestDivisionGeometryPlane(t *testing.T) {
	tests := []struct {
		name       string
		lineage    Lineage
		rotation   string
		wantPoint  r3.Vec
		wantNormal r3.Vec
	}{
		{"wild type", LineageWT, "NORMAL(0,0)", r3.Vec{X: 5, Y: 8}, geom.YAxis},
		// The offsets are walked along the rotated normal, so rotation
		// moves the split voxel as well as the normal.
		{"wild type rotated", LineageWT, "NORMAL(90,0)", r3.Vec{X: 1, Y: 5}, r3.Vec{X: -1}},
		{"mud below threshold", LineageMUDMUT, "NORMAL(30,0)", r3.Vec{X: 5, Y: 7}, geom.Rotate(geom.YAxis, geom.ZAxis, 30)},
		{"mud at threshold", LineageMUDMUT, "NORMAL(45,0)", r3.Vec{X: 4, Y: 5}, r3.Vec{X: -1}},
		{"mud negative offset", LineageMUDMUT, "NORMAL(-60,0)", r3.Vec{X: 4, Y: 5}, r3.Vec{X: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := testRNG(1)
			rotation, err := params.ParseDistribution(tt.rotation, rng)
			if err != nil {
				t.Fatalf("ParseDistribution() error = %v", err)
			}
			g, err := NewDivisionGeometry(tt.lineage, rotation)
			if err != nil {
				t.Fatalf("NewDivisionGeometry() error = %v", err)
			}
			sim := newFakeSim(0, stemPops(cell.ClassStemMUDMUT, nil))
			c := sim.place(t, 1, cell.StateProliferative, 50, rect(0, 0, 10, 10))

			plane, err := g.Plane(c, rng)
			if err != nil {
				t.Fatalf("Plane() error = %v", err)
			}
			if !vecNear(plane.Point, tt.wantPoint) {
				t.Errorf("Point = %v, want %v", plane.Point, tt.wantPoint)
			}
			if !vecNear(plane.Normal, tt.wantNormal) {
				t.Errorf("Normal = %v, want %v", plane.Normal, tt.wantNormal)
			}
		})
	}
}

func TestDivisionGeometryNeedsNormal(t *testing.T) {
	u := params.NewUniform(-10, 10, testRNG(1))
	if _, err := NewDivisionGeometry(LineageWT, u); !errors.Is(err, ErrIllegalConfiguration) {
		t.Errorf("NewDivisionGeometry(uniform) error = %v, want %v", err, ErrIllegalConfiguration)
	}
}

func TestFateDaughterStem(t *testing.T) {
	a := lattice.NewLocation(rect(0, 0, 10, 5), false)
	b := lattice.NewLocation(rect(0, 5, 10, 3), false)
	along := geom.NewPlane(r3.Vec{}, geom.YAxis)
	across := geom.NewPlane(r3.Vec{}, geom.XAxis)

	tests := []struct {
		name    string
		lineage Lineage
		ruleset string
		rng     float64
		plane   geom.Plane
		want    bool
	}{
		{"wild type never renews", LineageWT, "volume", 1000, along, false},
		{"orientation across apical axis", LineageMUDMUT, "orientation", 0, across, true},
		{"orientation along apical axis", LineageMUDMUT, "orientation", 0, along, false},
		{"volume within range", LineageMUDMUT, "volume", 21, along, true},
		{"volume at range", LineageMUDMUT, "volume", 20, along, false},
		{"location within range", LineageMUDMUT, "location", 4, along, true},
		{"location outside range", LineageMUDMUT, "location", 3.9, along, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFateAssigner(tt.lineage, tt.ruleset, tt.rng)
			if err != nil {
				t.Fatalf("NewFateAssigner() error = %v", err)
			}
			if got := f.DaughterStem(a, b, tt.plane, geom.YAxis); got != tt.want {
				t.Errorf("DaughterStem() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFateDifferentiatedLocation(t *testing.T) {
	apical := lattice.NewLocation(rect(0, 0, 10, 5), false)
	basal := lattice.NewLocation(rect(0, 5, 10, 3), false)

	vol, _ := NewFateAssigner(LineageMUDMUT, "volume", 0)
	if got := vol.DifferentiatedLocation(apical, basal, geom.YAxis); got != basal {
		t.Error("volume ruleset did not pick the smaller half")
	}
	loc, _ := NewFateAssigner(LineageMUDMUT, "location", 0)
	if got := loc.DifferentiatedLocation(basal, apical, geom.YAxis); got != basal {
		t.Error("location ruleset did not pick the basal half")
	}
	if got := loc.DifferentiatedLocation(apical, apical, geom.YAxis); got != apical {
		t.Error("tie did not go to the second half")
	}
}

func TestStemDivisionKeepsStemOnLargerHalf(t *testing.T) {
	swaps := map[bool]int{}
	for seed := range uint64(24) {
		sim := newFakeSim(100, stemPops(cell.ClassStemMUDMUT, nil))
		c := sim.place(t, 1, cell.StateProliferative, 50, rect(0, 0, 10, 10))
		divideNow(t, sim, c, seed)

		d, ok := sim.grid.GetObjectAt(2)
		if !ok {
			t.Fatalf("seed %d: no daughter", seed)
		}
		if c.Location().Volume() != 80 || d.Location().Volume() != 20 {
			t.Errorf("seed %d: stem/daughter volume = %d/%d, want 80/20",
				seed, c.Location().Volume(), d.Location().Volume())
		}
		if sim.potts.Count(c.ID()) != 80 || sim.potts.Count(d.ID()) != 20 {
			t.Errorf("seed %d: lattice ids = %d/%d, want 80/20",
				seed, sim.potts.Count(c.ID()), sim.potts.Count(d.ID()))
		}
		if d.Pop() != 2 || d.Class() != cell.ClassGMC {
			t.Errorf("seed %d: daughter = pop %d %v, want pop 2 %v", seed, d.Pop(), d.Class(), cell.ClassGMC)
		}
		if got, want := d.CriticalVolume(), 50*2*0.25; got != want {
			t.Errorf("seed %d: daughter CriticalVolume() = %v, want %v", seed, got, want)
		}
		if len(sim.events) != 1 || sim.events[0].Stem {
			t.Fatalf("seed %d: events = %+v, want one differentiated division", seed, sim.events)
		}
		swaps[sim.events[0].Swapped]++
	}
	if swaps[true] == 0 || swaps[false] == 0 {
		t.Errorf("swap outcomes = %v, want both", swaps)
	}
}

func TestStemDaughterVolumeBasedCritical(t *testing.T) {
	sim := newFakeSim(100, stemPops(cell.ClassStemMUDMUT, map[string]string{
		"proliferation/DIFFERENTIATION_RULESET_EQUALITY_RANGE": "1000",
		"proliferation/VOLUME_BASED_CRITICAL_VOLUME":           "1",
	}))
	c := sim.place(t, 1, cell.StateProliferative, 50, rect(0, 0, 10, 10))
	divideNow(t, sim, c, 3)

	d, ok := sim.grid.GetObjectAt(2)
	if !ok {
		t.Fatal("no daughter")
	}
	if d.Pop() != 1 || !d.Class().IsStem() {
		t.Errorf("daughter = pop %d %v, want a stem cell of pop 1", d.Pop(), d.Class())
	}
	want := max(float64(d.Location().Volume())*2, 25)
	if d.CriticalVolume() != want || c.CriticalVolume() != want {
		t.Errorf("critical volumes = %v/%v, want %v", c.CriticalVolume(), d.CriticalVolume(), want)
	}
	if !vecNear(d.ApicalAxis(), geom.YAxis) {
		t.Errorf("daughter ApicalAxis() = %v, want %v", d.ApicalAxis(), geom.YAxis)
	}
	if len(sim.events) != 1 || !sim.events[0].Stem {
		t.Errorf("events = %+v, want one stem division", sim.events)
	}
}

func TestStemDaughterRotatedAxis(t *testing.T) {
	sim := newFakeSim(100, stemPops(cell.ClassStemMUDMUT, map[string]string{
		"proliferation/DIFFERENTIATION_RULESET":           "orientation",
		"proliferation/DIV_ROTATION_DISTRIBUTION":         "NORMAL(90,0)",
		"proliferation/APICAL_AXIS_RULESET":               "rotation",
		"proliferation/APICAL_AXIS_ROTATION_DISTRIBUTION": "NORMAL(90,0)",
	}))
	c := sim.place(t, 1, cell.StateProliferative, 50, rect(0, 0, 10, 10))
	divideNow(t, sim, c, 5)

	d, ok := sim.grid.GetObjectAt(2)
	if !ok {
		t.Fatal("no daughter")
	}
	if d.Pop() != 1 {
		t.Errorf("daughter pop = %d, want 1", d.Pop())
	}
	if !vecNear(d.ApicalAxis(), r3.Vec{X: -1}) {
		t.Errorf("daughter ApicalAxis() = %v, want %v", d.ApicalAxis(), r3.Vec{X: -1})
	}
	if sum := c.Location().Volume() + d.Location().Volume(); sum != 100 {
		t.Errorf("volume after split = %d, want 100", sum)
	}
}

func TestWildTypeAlwaysDifferentiates(t *testing.T) {
	sim := newFakeSim(100, stemPops(cell.ClassStemWT, map[string]string{
		"proliferation/DIFFERENTIATION_RULESET":                "orientation",
		"proliferation/DIV_ROTATION_DISTRIBUTION":              "NORMAL(90,0)",
		"proliferation/DIFFERENTIATION_RULESET_EQUALITY_RANGE": "1000",
	}))
	c := sim.place(t, 1, cell.StateProliferative, 50, rect(0, 0, 10, 10))
	divideNow(t, sim, c, 9)

	d, ok := sim.grid.GetObjectAt(2)
	if !ok {
		t.Fatal("no daughter")
	}
	if d.Pop() != 2 {
		t.Errorf("daughter pop = %d, want 2", d.Pop())
	}
}

func TestStemIllegalConfiguration(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]string
		remove    string
		want      error
	}{
		{"unknown differentiation ruleset", map[string]string{"proliferation/DIFFERENTIATION_RULESET": "size"}, "", ErrIllegalConfiguration},
		{"unknown apical ruleset", map[string]string{"proliferation/APICAL_AXIS_RULESET": "random"}, "", ErrIllegalConfiguration},
		{"uniform ruleset with normal", map[string]string{"proliferation/APICAL_AXIS_RULESET": "uniform"}, "", ErrIllegalConfiguration},
		{"rotation ruleset with uniform", map[string]string{
			"proliferation/APICAL_AXIS_RULESET":               "rotation",
			"proliferation/APICAL_AXIS_ROTATION_DISTRIBUTION": "UNIFORM(0,360)",
		}, "", ErrIllegalConfiguration},
		{"uniform division rotation", map[string]string{"proliferation/DIV_ROTATION_DISTRIBUTION": "UNIFORM(-45,45)"}, "", ErrIllegalConfiguration},
		{"both growth modulators", map[string]string{
			"proliferation/DYNAMIC_GROWTH_RATE_VOLUME":             "1",
			"proliferation/DYNAMIC_GROWTH_RATE_NB_SELF_REPRESSION": "1",
		}, "", ErrIllegalConfiguration},
		{"missing key", nil, "proliferation/NB_CONTACT_HILL_N", params.ErrInvalidParameter},
		{"scalar division rotation", map[string]string{"proliferation/DIV_ROTATION_DISTRIBUTION": "3"}, "", params.ErrInvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pops := stemPops(cell.ClassStemMUDMUT, tt.overrides)
			delete(pops[1].box, tt.remove)
			sim := newFakeSim(0, pops)
			rec := &cell.Container{ID: 1, Pop: 1, State: cell.StateProliferative, CriticalVolume: 50}
			_, err := sim.factory.Convert(rec, lattice.NewLocation(rect(0, 0, 4, 4), false), testRNG(1))
			if !errors.Is(err, tt.want) {
				t.Errorf("Convert() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReplaceCellKeepsParentOnFailure(t *testing.T) {
	sim := newFakeSim(0, stemPops(cell.ClassStemWT, nil))
	c := sim.place(t, 2, cell.StateProliferative, 50, rect(0, 0, 10, 10))

	rec := c.Record()
	rec.Pop = 99
	if _, err := replaceCell(sim, testRNG(1), c, rec); !errors.Is(err, params.ErrInvalidParameter) {
		t.Fatalf("replaceCell() error = %v, want %v", err, params.ErrInvalidParameter)
	}
	if c.Stopped() || !sim.sched.scheduled[c] {
		t.Errorf("stopped = %v scheduled = %v, want a live scheduled cell", c.Stopped(), sim.sched.scheduled[c])
	}
	if got, ok := sim.grid.GetObjectAt(c.ID()); !ok || got != c {
		t.Error("cell no longer in grid")
	}
	if o, _ := sim.potts.Occupant(c.ID()); o != lattice.Occupant(c) {
		t.Error("cell no longer the lattice occupant")
	}
	if sim.potts.Count(c.ID()) != 100 {
		t.Errorf("lattice voxels = %d, want 100", sim.potts.Count(c.ID()))
	}
	if len(sim.events) != 0 {
		t.Errorf("events = %+v, want none", sim.events)
	}
}

func TestDifferentiatingDivisionReplacesParent(t *testing.T) {
	pops := stemPops(cell.ClassStemWT, nil)
	sim := newFakeSim(100, pops)
	c := sim.place(t, 2, cell.StateProliferative, 50, rect(0, 0, 10, 10))
	divideNow(t, sim, c, 2)

	if !c.Stopped() {
		t.Error("replaced cell not stopped")
	}
	if sim.sched.scheduled[c] {
		t.Error("replaced cell still scheduled")
	}
	var volume int
	for _, id := range []int{1, 2} {
		n, ok := sim.grid.GetObjectAt(id)
		if !ok {
			t.Fatalf("no cell %d", id)
		}
		if n.Pop() != 3 || n.State() != cell.StateQuiescent || n.Module() != nil {
			t.Errorf("cell %d = pop %d %v module %v, want quiescent pop 3 without module",
				id, n.Pop(), n.State(), n.Module())
		}
		if sim.potts.Count(id) != n.Location().Volume() {
			t.Errorf("cell %d lattice voxels = %d, want %d", id, sim.potts.Count(id), n.Location().Volume())
		}
		volume += n.Location().Volume()
	}
	if volume != 100 {
		t.Errorf("total volume = %d, want 100", volume)
	}
	replacement, _ := sim.grid.GetObjectAt(1)
	if replacement == c {
		t.Error("parent was not replaced")
	}
	if replacement.Age() != c.Age() || replacement.Divisions() != 1 {
		t.Errorf("replacement age/divisions = %d/%d, want %d/1", replacement.Age(), replacement.Divisions(), c.Age())
	}
	if o, _ := sim.potts.Occupant(1); o != lattice.Occupant(replacement) {
		t.Error("lattice occupant 1 is not the replacement")
	}
	want := []telemetry.EventType{telemetry.EventDivision, telemetry.EventDifferentiation}
	if diff := cmp.Diff(want, sim.eventTypes()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestStemGrowthModulation(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]string
		want      float64
	}{
		{"base rate", nil, 2},
		{"contact repression", map[string]string{"proliferation/DYNAMIC_GROWTH_RATE_NB_SELF_REPRESSION": "1"}, 2 * 0.5},
		{"population repression", map[string]string{
			"proliferation/DYNAMIC_GROWTH_RATE_NB_SELF_REPRESSION": "1",
			"proliferation/PDELIKE":                                "1",
		}, 2.0 / 3},
		{"volume", map[string]string{"proliferation/DYNAMIC_GROWTH_RATE_VOLUME": "1"}, 2 * 25.0 / 50},
		{"population volume", map[string]string{
			"proliferation/DYNAMIC_GROWTH_RATE_VOLUME": "1",
			"proliferation/PDELIKE":                    "1",
		}, 2 * (59.0 / 3) / 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := newFakeSim(0, stemPops(cell.ClassStemMUDMUT, tt.overrides))
			a := sim.place(t, 1, cell.StateProliferative, 50, rect(0, 0, 5, 5))
			sim.place(t, 1, cell.StateProliferative, 50, rect(5, 0, 5, 5))
			sim.place(t, 2, cell.StateProliferative, 50, rect(0, 5, 5, 5))
			sim.place(t, 1, cell.StateProliferative, 50, rect(20, 20, 3, 3))

			if err := a.Step(testRNG(1), sim); err != nil {
				t.Fatalf("Step() error = %v", err)
			}
			if got := a.TargetVolume() - 50; math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("growth = %v, want %v", got, tt.want)
			}
		})
	}
}
