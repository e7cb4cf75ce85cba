// Package telemetry provides population tracking and experiment output for
// tissue simulations.
package telemetry

import "log/slog"

// EventType identifies telemetry events.
type EventType uint8

const (
	EventDivision EventType = iota
	EventRemoval
	EventDifferentiation
)

func (t EventType) String() string {
	switch t {
	case EventDivision:
		return "division"
	case EventRemoval:
		return "removal"
	case EventDifferentiation:
		return "differentiation"
	default:
		return "unknown"
	}
}

// Event represents a single lineage event.
type Event struct {
	Type     EventType `csv:"-"`
	Name     string    `csv:"event"`
	Tick     int       `csv:"tick"`
	CellID   int       `csv:"cell"`
	ParentID int       `csv:"parent"`
	Pop      int       `csv:"pop"`

	// Optional fields depending on event type
	ParentPop    int  `csv:"parent_pop"`
	Volume       int  `csv:"volume"`
	ParentVolume int  `csv:"parent_volume"`
	Age          int  `csv:"age"`
	Stem         bool `csv:"stem"`    // division: daughter kept stem identity
	Swapped      bool `csv:"swapped"` // division: halves were exchanged after the split
}

// NewDivisionEvent creates a division event for the daughter of parentID.
func NewDivisionEvent(tick, daughterID, parentID, pop, parentPop, volume, parentVolume int, stem, swapped bool) Event {
	return Event{
		Type:         EventDivision,
		Name:         EventDivision.String(),
		Tick:         tick,
		CellID:       daughterID,
		ParentID:     parentID,
		Pop:          pop,
		ParentPop:    parentPop,
		Volume:       volume,
		ParentVolume: parentVolume,
		Stem:         stem,
		Swapped:      swapped,
	}
}

// NewRemovalEvent creates an event for a cell leaving the simulation.
func NewRemovalEvent(tick, cellID, pop, volume, age int) Event {
	return Event{
		Type:   EventRemoval,
		Name:   EventRemoval.String(),
		Tick:   tick,
		CellID: cellID,
		Pop:    pop,
		Volume: volume,
		Age:    age,
	}
}

// NewDifferentiationEvent creates an event for a cell replaced by one of
// another population under the same id.
func NewDifferentiationEvent(tick, cellID, fromPop, toPop, volume int) Event {
	return Event{
		Type:      EventDifferentiation,
		Name:      EventDifferentiation.String(),
		Tick:      tick,
		CellID:    cellID,
		ParentID:  cellID,
		Pop:       toPop,
		ParentPop: fromPop,
		Volume:    volume,
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (e Event) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("event", e.Type.String()),
		slog.Int("tick", e.Tick),
		slog.Int("cell", e.CellID),
		slog.Int("pop", e.Pop),
	}
	switch e.Type {
	case EventDivision:
		attrs = append(attrs,
			slog.Int("parent", e.ParentID),
			slog.Int("parent_pop", e.ParentPop),
			slog.Int("volume", e.Volume),
			slog.Int("parent_volume", e.ParentVolume),
			slog.Bool("stem", e.Stem),
			slog.Bool("swapped", e.Swapped),
		)
	case EventRemoval:
		attrs = append(attrs, slog.Int("volume", e.Volume), slog.Int("age", e.Age))
	case EventDifferentiation:
		attrs = append(attrs, slog.Int("from_pop", e.ParentPop))
	}
	return slog.GroupValue(attrs...)
}
