// Package components defines the ECS components carried by scheduled
// agents.
package components

import "github.com/pthm-cable/tissue/cell"

// Agent binds an entity to the cell it steps.
type Agent struct {
	Cell *cell.Cell
}

// Schedule orders agents within a tick. Lower orders step first; agents
// scheduled later get higher orders.
type Schedule struct {
	Order uint64
}
