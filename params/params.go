// Package params provides per-population parameter bags whose entries are
// either fixed scalars or distributions sampled per agent.
package params

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
)

// ErrInvalidParameter is returned for missing keys and unparsable values.
var ErrInvalidParameter = errors.New("invalid parameter")

// Box holds the raw values configured for a population, keyed by
// "<module>/<NAME>" (e.g. "proliferation/RATE_G1").
type Box map[string]string

// Parameters is the parameter bag owned by one agent. Entries holding a
// distribution code are sampled once per agent; everything else is read
// from the population's Box.
type Parameters struct {
	values        Box
	distributions map[string]Distribution
}

// New builds an agent's parameters from its population's values. When a
// parent is given, every distribution the parent also carries is rebased
// from the parent's draw instead of sampled from the population default.
func New(values Box, parent *Parameters, rng *rand.Rand) (*Parameters, error) {
	p := &Parameters{
		values:        values,
		distributions: make(map[string]Distribution),
	}

	// Sorted so draws consume the random source in a fixed order.
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		v := values[k]
		if !IsCode(v) {
			continue
		}
		if parent != nil {
			if d, ok := parent.distributions[k]; ok {
				p.distributions[k] = d.Rebase(rng)
				continue
			}
		}
		d, err := ParseDistribution(v, rng)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", k, err)
		}
		p.distributions[k] = d
	}
	return p, nil
}

// Has reports whether key is configured.
func (p *Parameters) Has(key string) bool {
	_, ok := p.values[key]
	return ok
}

// GetDouble returns the value for key. Distribution-backed keys return the
// agent's drawn value.
func (p *Parameters) GetDouble(key string) (float64, error) {
	if d, ok := p.distributions[key]; ok {
		return d.Value(), nil
	}
	v, ok := p.values[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s not found", ErrInvalidParameter, key)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a number", ErrInvalidParameter, key, v)
	}
	return f, nil
}

// GetInt returns the value for key truncated to an integer.
func (p *Parameters) GetInt(key string) (int, error) {
	if d, ok := p.distributions[key]; ok {
		return d.IntValue(), nil
	}
	v, ok := p.values[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s not found", ErrInvalidParameter, key)
	}
	if i, err := strconv.Atoi(v); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidParameter, key, v)
	}
	return int(f), nil
}

// GetString returns the raw value for key.
func (p *Parameters) GetString(key string) (string, error) {
	v, ok := p.values[key]
	if !ok {
		return "", fmt.Errorf("%w: %s not found", ErrInvalidParameter, key)
	}
	return v, nil
}

// GetDistribution returns the distribution behind key.
func (p *Parameters) GetDistribution(key string) (Distribution, error) {
	d, ok := p.distributions[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a distribution", ErrInvalidParameter, key)
	}
	return d, nil
}

// Reader reads many keys and keeps the first error, so callers can check
// once after a block of lookups.
type Reader struct {
	p   *Parameters
	err error
}

// NewReader returns a Reader over p.
func NewReader(p *Parameters) *Reader {
	return &Reader{p: p}
}

func (r *Reader) Double(key string) float64 {
	if r.err != nil {
		return 0
	}
	v, err := r.p.GetDouble(key)
	r.err = err
	return v
}

func (r *Reader) Int(key string) int {
	if r.err != nil {
		return 0
	}
	v, err := r.p.GetInt(key)
	r.err = err
	return v
}

func (r *Reader) Bool(key string) bool {
	return r.Int(key) != 0
}

func (r *Reader) String(key string) string {
	if r.err != nil {
		return ""
	}
	v, err := r.p.GetString(key)
	r.err = err
	return v
}

func (r *Reader) Distribution(key string) Distribution {
	if r.err != nil {
		return nil
	}
	v, err := r.p.GetDistribution(key)
	r.err = err
	return v
}

// Err returns the first lookup error, if any.
func (r *Reader) Err() error {
	return r.err
}
