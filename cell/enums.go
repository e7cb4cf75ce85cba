package cell

import "fmt"

// State is the externally visible status of a cell.
type State uint8

const (
	StateUndefined State = iota
	StateQuiescent
	StateProliferative
	StateApoptotic
	StateNecrotic
	StateAutotic
)

var stateNames = [...]string{"UNDEFINED", "QUIESCENT", "PROLIFERATIVE", "APOPTOTIC", "NECROTIC", "AUTOTIC"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// ParseState converts a state name to a State.
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}
	return StateUndefined, fmt.Errorf("unknown cell state %q", name)
}

// Phase is the internal progress marker of a cell's module. Each module
// family uses its own subset.
type Phase uint8

const (
	PhaseUndefined Phase = iota
	PhaseProliferativeG1
	PhaseProliferativeS
	PhaseProliferativeG2
	PhaseProliferativeM
	PhaseApoptoticEarly
	PhaseApoptoticLate
	PhaseApoptosed
)

var phaseNames = [...]string{
	"UNDEFINED",
	"PROLIFERATIVE_G1", "PROLIFERATIVE_S", "PROLIFERATIVE_G2", "PROLIFERATIVE_M",
	"APOPTOTIC_EARLY", "APOPTOTIC_LATE", "APOPTOSED",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", uint8(p))
}

// Class selects the behaviour a population's cells get.
type Class string

const (
	ClassTissue     Class = "tissue"
	ClassStemWT     Class = "stem-wt"
	ClassStemMUDMUT Class = "stem-mudmut"
	ClassGMC        Class = "gmc"
	ClassNeuron     Class = "neuron"
)

// IsStem reports whether the class is a self-renewing stem lineage.
func (c Class) IsStem() bool {
	return c == ClassStemWT || c == ClassStemMUDMUT
}

// Valid reports whether c is a known class.
func (c Class) Valid() bool {
	switch c {
	case ClassTissue, ClassStemWT, ClassStemMUDMUT, ClassGMC, ClassNeuron:
		return true
	}
	return false
}
