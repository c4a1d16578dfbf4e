// Package theories holds the per-theory growth formulas and purchase heuristics
// plugged into the simulation engine.
package theories

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/napolitain/theory-sim/internal/models"
	"github.com/napolitain/theory-sim/internal/solver/engine"
)

// ErrUnknownTheory is returned by Lookup for names not in the registry
var ErrUnknownTheory = errors.New("unknown theory")

// Theory describes a registered theory
type Theory struct {
	Name        string
	Description string
	New         func() engine.Model
	// SeedValues lists the plain-number seed entries the theory reads besides
	// levels and accumulators
	SeedValues []string
}

// Table returns the publication table defaults of the theory, if configured
func (t Theory) Table(cfg *models.Config) (models.TableConfig, bool) {
	tc, ok := cfg.Theories[t.Name]
	return tc, ok
}

var registry = map[string]Theory{
	"t1": {
		Name:        "t1",
		Description: "Recurrence relations: q1 q2 c3 c4, weighted-cost buying",
		New:         func() engine.Model { return NewT1() },
	},
	"t2": {
		Name:        "t2",
		Description: "Differential calculus: eight derivative layers, coasting forks",
		New:         func() engine.Model { return NewT2() },
	},
	"t6": {
		Name:        "t6",
		Description: "Integral calculus: coasting and ratio forks",
		New:         func() engine.Model { return NewT6() },
		SeedValues:  []string{"tol"},
	},
	"t7": {
		Name:        "t7",
		Description: "Numerical methods: two coupled rho accumulators",
		New:         func() engine.Model { return NewT7() },
	},
	"csr2": {
		Name:        "csr2",
		Description: "Convergents to sqrt(2): error-term growth, coasting forks",
		New:         func() engine.Model { return NewCSR2() },
	},
	"fp": {
		Name:        "fp",
		Description: "Fractal patterns: cached n-dependent terms, r milestone",
		New:         func() engine.Model { return NewFP() },
		SeedValues:  []string{"t"},
	},
	"de": {
		Name:        "de",
		Description: "Euler's formula variant: capped x growth, ratio buying only",
		New:         func() engine.Model { return NewDE() },
	},
}

// Lookup returns the named theory
func Lookup(name string) (Theory, error) {
	t, ok := registry[name]
	if !ok {
		return Theory{}, fmt.Errorf("%w: %q", ErrUnknownTheory, name)
	}
	return t, nil
}

// Names returns all registered theory names, sorted
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// plain supplies the defaults of theories paid in rho with no milestone gates
type plain struct{}

func (plain) Eligible(*engine.Sim, int) bool { return true }
func (plain) Currency(int) int { return 0 }
func (plain) Purchased(*engine.Sim, int) {}

func studentsBonus(students uint32) float64 {
	return 3 * math.Log10(float64(students)/20)
}

// coastBand buys above upper, forks between the bounds and skips below lower
func coastBand(dist, lower, upper float64) engine.Eval {
	if dist > upper {
		return engine.Buy
	} else if dist > lower {
		return engine.Fork
	}
	return engine.Skip
}

func buyIf(ok bool) engine.Eval {
	if ok {
		return engine.Buy
	}
	return engine.Skip
}

var (
	log2 = math.Log10(2)
	log3 = math.Log10(3)
)
