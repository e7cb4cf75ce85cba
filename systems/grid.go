// Package systems provides the spatial index and the per-tick systems that
// act on every registered agent.
package systems

import (
	"maps"
	"slices"

	"github.com/pthm-cable/tissue/cell"
)

// AgentGrid indexes live agents by id.
type AgentGrid struct {
	cells map[int]*cell.Cell
}

// NewAgentGrid creates an empty grid.
func NewAgentGrid() *AgentGrid {
	return &AgentGrid{cells: make(map[int]*cell.Cell)}
}

// AddObject inserts c, replacing any agent with the same id.
func (g *AgentGrid) AddObject(c *cell.Cell) {
	g.cells[c.ID()] = c
}

// RemoveObject removes c. An agent that has already been replaced under
// the same id is left alone.
func (g *AgentGrid) RemoveObject(c *cell.Cell) {
	if cur, ok := g.cells[c.ID()]; ok && cur == c {
		delete(g.cells, c.ID())
	}
}

// GetObjectAt returns the agent with id.
func (g *AgentGrid) GetObjectAt(id int) (*cell.Cell, bool) {
	c, ok := g.cells[id]
	return c, ok
}

// All returns every agent ordered by id.
func (g *AgentGrid) All() []*cell.Cell {
	out := make([]*cell.Cell, 0, len(g.cells))
	for _, id := range slices.Sorted(maps.Keys(g.cells)) {
		out = append(out, g.cells[id])
	}
	return out
}

// Len returns the number of agents.
func (g *AgentGrid) Len() int {
	return len(g.cells)
}
