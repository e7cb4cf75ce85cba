package sim

import (
	"cmp"
	"slices"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/tissue/cell"
	"github.com/pthm-cable/tissue/components"
)

// Scheduler keeps every scheduled agent as an entity of an ark world.
// Stopping an agent removes its entity; Due lists the remaining agents in
// the order they were scheduled.
type Scheduler struct {
	world  *ecs.World
	mapper *ecs.Map2[components.Agent, components.Schedule]
	filter *ecs.Filter2[components.Agent, components.Schedule]
	next   uint64
}

// NewScheduler creates an empty scheduler with its own world.
func NewScheduler() *Scheduler {
	world := ecs.NewWorld()
	return &Scheduler{
		world:  world,
		mapper: ecs.NewMap2[components.Agent, components.Schedule](world),
		filter: ecs.NewFilter2[components.Agent, components.Schedule](world),
	}
}

// Schedule adds c and returns the function that removes it again.
func (s *Scheduler) Schedule(c *cell.Cell) func() {
	e := s.mapper.NewEntity(&components.Agent{Cell: c}, &components.Schedule{Order: s.next})
	s.next++
	return func() {
		if s.world.Alive(e) {
			s.world.RemoveEntity(e)
		}
	}
}

type due struct {
	order uint64
	cell  *cell.Cell
}

// Due snapshots the scheduled agents in schedule order. The world stays
// unlocked while the caller steps them, so agents may schedule or stop
// others during the tick.
func (s *Scheduler) Due() []*cell.Cell {
	var snap []due
	query := s.filter.Query()
	for query.Next() {
		agent, sched := query.Get()
		snap = append(snap, due{order: sched.Order, cell: agent.Cell})
	}
	slices.SortFunc(snap, func(a, b due) int { return cmp.Compare(a.order, b.order) })

	out := make([]*cell.Cell, len(snap))
	for i, d := range snap {
		out[i] = d.cell
	}
	return out
}

// Len returns the number of scheduled agents.
func (s *Scheduler) Len() int {
	n := 0
	query := s.filter.Query()
	for query.Next() {
		n++
	}
	return n
}
