package params

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"

	"gonum.org/v1/gonum/stat/distuv"
)

// Family identifies the shape of a Distribution.
type Family uint8

const (
	FamilyNormal Family = iota
	FamilyTruncatedNormal
	FamilyUniform
)

func (f Family) String() string {
	switch f {
	case FamilyNormal:
		return "NORMAL"
	case FamilyTruncatedNormal:
		return "TRUNC_NORMAL"
	case FamilyUniform:
		return "UNIFORM"
	default:
		return fmt.Sprintf("Family(%d)", uint8(f))
	}
}

// Distribution is a parameter that resolves to a random variable instead of
// a fixed scalar. Value is the draw made when the distribution was created;
// Next draws again from the same shape.
type Distribution interface {
	Family() Family
	Value() float64
	IntValue() int
	Next(rng *rand.Rand) float64
	// Rebase returns a distribution of the same family and shape centred on
	// this distribution's value, with a freshly drawn value of its own.
	Rebase(rng *rand.Rand) Distribution
	Code() string
}

// Normal is a normal distribution with mean Mu and deviation Sigma.
type Normal struct {
	Mu, Sigma float64
	value     float64
}

// NewNormal creates a normal distribution and draws its value.
func NewNormal(mu, sigma float64, rng *rand.Rand) *Normal {
	n := &Normal{Mu: mu, Sigma: abs(sigma)}
	n.value = n.Next(rng)
	return n
}

func (n *Normal) Family() Family { return FamilyNormal }
func (n *Normal) Value() float64 { return n.value }
func (n *Normal) IntValue() int  { return int(n.value) }

func (n *Normal) Next(rng *rand.Rand) float64 {
	return distuv.Normal{Mu: n.Mu, Sigma: n.Sigma, Src: rng}.Rand()
}

func (n *Normal) Rebase(rng *rand.Rand) Distribution {
	return NewNormal(n.value, n.Sigma, rng)
}

func (n *Normal) Code() string {
	return fmt.Sprintf("NORMAL(%g,%g)", n.Mu, n.Sigma)
}

// TruncatedNormal is a normal distribution clamped to Mu ± 2 Sigma.
type TruncatedNormal struct {
	Mu, Sigma float64
	value     float64
}

// NewTruncatedNormal creates a truncated normal distribution and draws its value.
func NewTruncatedNormal(mu, sigma float64, rng *rand.Rand) *TruncatedNormal {
	t := &TruncatedNormal{Mu: mu, Sigma: abs(sigma)}
	t.value = t.Next(rng)
	return t
}

func (t *TruncatedNormal) Family() Family { return FamilyTruncatedNormal }
func (t *TruncatedNormal) Value() float64 { return t.value }
func (t *TruncatedNormal) IntValue() int  { return int(t.value) }

func (t *TruncatedNormal) Next(rng *rand.Rand) float64 {
	v := distuv.Normal{Mu: t.Mu, Sigma: t.Sigma, Src: rng}.Rand()
	lo, hi := t.Mu-2*t.Sigma, t.Mu+2*t.Sigma
	return min(max(v, lo), hi)
}

func (t *TruncatedNormal) Rebase(rng *rand.Rand) Distribution {
	return NewTruncatedNormal(t.value, t.Sigma, rng)
}

func (t *TruncatedNormal) Code() string {
	return fmt.Sprintf("TRUNC_NORMAL(%g,%g)", t.Mu, t.Sigma)
}

// Uniform is a continuous uniform distribution on [Min, Max).
type Uniform struct {
	Min, Max float64
	value    float64
}

// NewUniform creates a uniform distribution and draws its value.
func NewUniform(lo, hi float64, rng *rand.Rand) *Uniform {
	if hi < lo {
		lo, hi = hi, lo
	}
	u := &Uniform{Min: lo, Max: hi}
	u.value = u.Next(rng)
	return u
}

func (u *Uniform) Family() Family { return FamilyUniform }
func (u *Uniform) Value() float64 { return u.value }
func (u *Uniform) IntValue() int  { return int(u.value) }

func (u *Uniform) Next(rng *rand.Rand) float64 {
	if u.Max == u.Min {
		return u.Min
	}
	return distuv.Uniform{Min: u.Min, Max: u.Max, Src: rng}.Rand()
}

// Rebase keeps the range; only the drawn value changes.
func (u *Uniform) Rebase(rng *rand.Rand) Distribution {
	return NewUniform(u.Min, u.Max, rng)
}

func (u *Uniform) Code() string {
	return fmt.Sprintf("UNIFORM(%g,%g)", u.Min, u.Max)
}

var codePattern = regexp.MustCompile(`^\s*(NORMAL|TRUNC_NORMAL|UNIFORM)\(\s*([-+0-9.eE]+)\s*,\s*([-+0-9.eE]+)\s*\)\s*$`)

// IsCode reports whether s looks like a distribution code.
func IsCode(s string) bool {
	return codePattern.MatchString(s)
}

// ParseDistribution builds a distribution from a code such as
// "NORMAL(10,2)", "TRUNC_NORMAL(10,2)" or "UNIFORM(-45,45)".
func ParseDistribution(code string, rng *rand.Rand) (Distribution, error) {
	m := codePattern.FindStringSubmatch(code)
	if m == nil {
		return nil, fmt.Errorf("%w: %q is not a distribution code", ErrInvalidParameter, code)
	}
	a, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidParameter, code, err)
	}
	b, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidParameter, code, err)
	}
	switch m[1] {
	case "NORMAL":
		return NewNormal(a, b, rng), nil
	case "TRUNC_NORMAL":
		return NewTruncatedNormal(a, b, rng), nil
	default:
		return NewUniform(a, b, rng), nil
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
