package telemetry

// Collector accumulates lineage events within tick windows and produces
// WindowStats.
type Collector struct {
	windowTicks     int
	windowStartTick int

	// Event counters for current window
	divisions        int
	stemDaughters    int
	diffDaughters    int
	swaps            int
	removals         int
	differentiations int
	lifespans        []float64
}

// NewCollector creates a collector flushing every windowTicks ticks.
func NewCollector(windowTicks int) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{windowTicks: windowTicks}
}

// Record counts an event in the current window.
func (c *Collector) Record(ev Event) {
	switch ev.Type {
	case EventDivision:
		c.divisions++
		if ev.Stem {
			c.stemDaughters++
		} else {
			c.diffDaughters++
		}
		if ev.Swapped {
			c.swaps++
		}
	case EventRemoval:
		c.removals++
	case EventDifferentiation:
		c.differentiations++
	}
}

// RecordLifespan records the lifespan in ticks of a removed cell.
func (c *Collector) RecordLifespan(ticks int) {
	if ticks >= 0 {
		c.lifespans = append(c.lifespans, float64(ticks))
	}
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int) bool {
	return currentTick-c.windowStartTick >= c.windowTicks
}

// PopulationSnapshot is the state of the population at a window boundary.
type PopulationSnapshot struct {
	Cells         int
	Proliferative int
	Apoptotic     int
	Quiescent     int
	Stem          int
	Volumes       []float64 // current volume per cell
	Contacts      []float64 // same-population neighbours per cell
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int, snap PopulationSnapshot) WindowStats {
	volMean, volP10, volP50, volP90 := ComputeVolumeStats(snap.Volumes)
	contactMean, _, _, _ := ComputeVolumeStats(snap.Contacts)
	lifespanMean, _, _, _ := ComputeVolumeStats(c.lifespans)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,

		Cells:         snap.Cells,
		Proliferative: snap.Proliferative,
		Apoptotic:     snap.Apoptotic,
		Quiescent:     snap.Quiescent,
		Stem:          snap.Stem,

		Divisions:        c.divisions,
		StemDaughters:    c.stemDaughters,
		DiffDaughters:    c.diffDaughters,
		Swaps:            c.swaps,
		Removals:         c.removals,
		Differentiations: c.differentiations,
		LifespanMean:     lifespanMean,

		VolumeMean: volMean,
		VolumeP10:  volP10,
		VolumeP50:  volP50,
		VolumeP90:  volP90,

		ContactMean: contactMean,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.divisions = 0
	c.stemDaughters = 0
	c.diffDaughters = 0
	c.swaps = 0
	c.removals = 0
	c.differentiations = 0
	c.lifespans = c.lifespans[:0]

	return stats
}

// WindowTicks returns the number of ticks per window.
func (c *Collector) WindowTicks() int {
	return c.windowTicks
}
