package params

import (
	"math/rand/v2"
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// GrabBag is a weighted choice over destination population ids, used to
// pick the population of a differentiated daughter.
type GrabBag struct {
	ids        []int
	cumulative []float64
}

// NewGrabBag builds a bag from id → weight. Non-positive weights are ignored.
func NewGrabBag(weights map[int]float64) *GrabBag {
	ids := make([]int, 0, len(weights))
	for id, w := range weights {
		if w > 0 {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	w := make([]float64, len(ids))
	for i, id := range ids {
		w[i] = weights[id]
	}
	cum := make([]float64, len(ids))
	if len(w) > 0 {
		floats.CumSum(cum, w)
	}
	return &GrabBag{ids: ids, cumulative: cum}
}

// Len returns the number of candidate populations.
func (g *GrabBag) Len() int {
	if g == nil {
		return 0
	}
	return len(g.ids)
}

// Next draws a population id. ok is false when the bag is empty.
func (g *GrabBag) Next(rng *rand.Rand) (id int, ok bool) {
	if g.Len() == 0 {
		return 0, false
	}
	total := g.cumulative[len(g.cumulative)-1]
	u := rng.Float64() * total
	i := sort.Search(len(g.cumulative), func(i int) bool { return g.cumulative[i] > u })
	if i == len(g.ids) {
		i = len(g.ids) - 1
	}
	return g.ids[i], true
}
