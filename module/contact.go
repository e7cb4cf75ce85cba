package module

import (
	"math"

	"github.com/pthm-cable/tissue/cell"
)

// ContactCount returns the number of distinct cells of c's population
// touching c's boundary.
func ContactCount(sim cell.Simulation, c *cell.Cell) int {
	potts := sim.Potts()
	seen := make(map[int]bool)
	for _, v := range c.Location().Boundary() {
		for _, id := range potts.UniqueIDs(v) {
			if id <= 0 || id == c.ID() || seen[id] {
				continue
			}
			if n, ok := sim.Grid().GetObjectAt(id); ok && n.Pop() == c.Pop() {
				seen[id] = true
			}
		}
	}
	return len(seen)
}

// HillRepression returns K^n / (K^n + N^n). With K = 0 there is no
// half-max, so any contact fully represses.
func HillRepression(contacts, halfMax, hillN float64) float64 {
	contacts = max(0, contacts)
	kn := math.Pow(halfMax, hillN)
	if kn == 0 {
		if contacts == 0 {
			return 1
		}
		return 0
	}
	return kn / (kn + math.Pow(contacts, hillN))
}

// VolumeGrowthFactor returns (volume / critical)^sensitivity, or 1 when
// critical is zero.
func VolumeGrowthFactor(volume, critical, sensitivity float64) float64 {
	if critical <= 0 {
		return 1
	}
	return math.Pow(volume/critical, sensitivity)
}

// populationPeers returns the stem cells sharing c's population, c
// included.
func populationPeers(sim cell.Simulation, c *cell.Cell) []*cell.Cell {
	var peers []*cell.Cell
	for _, o := range sim.Grid().All() {
		if o.Pop() == c.Pop() && o.Class().IsStem() {
			peers = append(peers, o)
		}
	}
	return peers
}
