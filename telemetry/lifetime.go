package telemetry

// LifetimeStats tracks per-cell statistics over its lifetime.
type LifetimeStats struct {
	BirthTick int
	Pop       int
	ParentID  int
	Divisions int
}

// LifetimeTracker manages per-cell lifetime statistics.
type LifetimeTracker struct {
	stats map[int]*LifetimeStats
}

// NewLifetimeTracker creates a new lifetime tracker.
func NewLifetimeTracker() *LifetimeTracker {
	return &LifetimeTracker{
		stats: make(map[int]*LifetimeStats),
	}
}

// Register starts tracking a cell born at birthTick.
func (lt *LifetimeTracker) Register(cellID, birthTick, pop, parentID int) {
	lt.stats[cellID] = &LifetimeStats{
		BirthTick: birthTick,
		Pop:       pop,
		ParentID:  parentID,
	}
}

// Get returns the lifetime stats for a cell, or nil if not found.
func (lt *LifetimeTracker) Get(cellID int) *LifetimeStats {
	return lt.stats[cellID]
}

// Remove removes a cell's stats and returns them.
func (lt *LifetimeTracker) Remove(cellID int) *LifetimeStats {
	stats := lt.stats[cellID]
	delete(lt.stats, cellID)
	return stats
}

// RecordDivision increments the division count of a parent.
func (lt *LifetimeTracker) RecordDivision(parentID int) {
	if s := lt.stats[parentID]; s != nil {
		s.Divisions++
	}
}

// Repopulate moves a cell to another population, keeping its birth tick.
func (lt *LifetimeTracker) Repopulate(cellID, pop int) {
	if s := lt.stats[cellID]; s != nil {
		s.Pop = pop
	}
}

// Count returns the number of tracked cells.
func (lt *LifetimeTracker) Count() int {
	return len(lt.stats)
}

// Observe updates the tracker from a lineage event and returns the
// lifespan in ticks of a removed cell, or -1.
func (lt *LifetimeTracker) Observe(ev Event) int {
	switch ev.Type {
	case EventDivision:
		lt.RecordDivision(ev.ParentID)
		lt.Register(ev.CellID, ev.Tick, ev.Pop, ev.ParentID)
	case EventDifferentiation:
		lt.Repopulate(ev.CellID, ev.Pop)
	case EventRemoval:
		if s := lt.Remove(ev.CellID); s != nil {
			return ev.Tick - s.BirthTick
		}
	}
	return -1
}
