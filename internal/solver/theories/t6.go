package theories

import (
	"fmt"
	"math"

	"github.com/napolitain/theory-sim/internal/logmath"
	"github.com/napolitain/theory-sim/internal/models"
	"github.com/napolitain/theory-sim/internal/solver/engine"
)

const (
	t6Q1 = iota
	t6Q2
	t6R1
	t6R2
	t6C1
	t6C2
	t6C5
)

var (
	t6Log5   = math.Log10(5)
	t6Log1p5 = math.Log10(1.5)
	t6Log2p5 = math.Log10(2.5)
)

// T6 integrates rho from q and r. Its ratio heuristics compare prices against
// each other within a tolerance that widens as the publication nears, and fork
// inside that tolerance.
type T6 struct {
	plain

	// tol scales every ratio band; seeded from the "tol" value
	tol float64
}

// NewT6 returns the T6 model with tolerance 1
func NewT6() *T6 { return &T6{tol: 1} }

func (*T6) Name() string { return "t6" }

func (*T6) Upgrades() []*models.Upgrade {
	return []*models.Upgrade{
		models.NewUpgrade("q1", models.FirstFreeCost{Model: models.NewExponentialCost(15, 3)}, models.NewStepwiseValue(2, 10)),
		models.NewUpgrade("q2", models.NewExponentialCost(500, 100), models.NewExponentialValue(2)),
		models.NewUpgrade("r1", models.NewExponentialCost(1e25, 1e5), models.NewStepwiseValue(2, 10)),
		models.NewUpgrade("r2", models.NewExponentialCost(1e30, 1e10), models.NewExponentialValue(2)),
		models.NewUpgrade("c1", models.NewExponentialCost(10, 2), models.NewStepwiseValue(2, 10)),
		models.NewUpgrade("c2", models.NewExponentialCost(100, 5), models.NewExponentialValue(2)),
		models.NewUpgrade("c5", models.NewExponentialCost(15, 3.9), models.NewExponentialValue(2)),
	}
}

func (*T6) Accumulators() []string { return []string{"rho", "q", "r"} }

func (*T6) Multiplier(p models.Params) float64 {
	return studentsBonus(p.Students) + 0.196*p.Tau - math.Log10(50)
}

// Seed restores the tolerance
func (m *T6) Seed(_ *engine.Sim, seed models.Seed) error {
	tol, ok := seed.Values["tol"]
	if !ok {
		return nil
	}
	if tol < 0 {
		return fmt.Errorf("t6 tolerance %v is negative", tol)
	}
	m.tol = tol
	return nil
}

func (*T6) integral(s *engine.Sim) float64 {
	u, q, r := s.Upgrades, s.Acc[1], s.Acc[2]
	term1 := u[t6C1].Value()*1.15 + u[t6C2].Value() + q + r
	term2 := u[t6C5].Value() + q + 2*r - log2
	return s.Multiplier + logmath.Add(term1, term2)
}

func (m *T6) Tick(s *engine.Sim, logdt float64) {
	u := s.Upgrades
	c := logmath.Sub(m.integral(s), s.Acc[0])

	s.Acc[1] = logmath.Add(s.Acc[1], u[t6Q1].Value()+u[t6Q2].Value()+logdt)
	s.Acc[2] = logmath.Add(s.Acc[2], u[t6R1].Value()+u[t6R2].Value()+logdt-3)

	next := m.integral(s)
	s.Acc[0] = logmath.Sub(next, min(next, c))
}

// c1 and c2 are never bought
func (*T6) Order() []int { return []int{t6C5, t6R2, t6R1, t6Q2, t6Q1} }

func (*T6) Coast(s *engine.Sim, id int, cost float64) engine.Eval {
	dist := s.Goal - cost
	if dist > 2 {
		return engine.Buy
	}
	switch id {
	case t6Q1, t6R1:
		return forkAbove(dist, t6Log5)
	case t6Q2, t6R2:
		return forkAbove(dist, log2)
	case t6C5:
		if dist < t6Log1p5 {
			return engine.Skip
		} else if dist < t6Log2p5 {
			return engine.Fork
		}
		return engine.Buy
	}
	return engine.Skip
}

func forkAbove(dist, lower float64) engine.Eval {
	if dist < lower {
		return engine.Skip
	}
	return engine.Fork
}

// progress is how far MaxRho is between two orders above tau and two orders
// below the goal, clamped to [0, 1]
func (*T6) progress(s *engine.Sim) float64 {
	start, end := s.Params.Tau-2, s.Goal-2
	switch {
	case s.MaxRho <= start:
		return 0
	case s.MaxRho >= end:
		return 1
	}
	return (s.MaxRho - start) / (end - start)
}

func ratioBand(ratio, lower, upper float64) engine.Eval {
	if ratio >= upper {
		return engine.Buy
	} else if ratio > lower {
		return engine.Fork
	}
	return engine.Skip
}

// combine returns Skip if any check skips, Fork if any forks, otherwise Buy
func combine(evals ...engine.Eval) engine.Eval {
	res := engine.Buy
	for _, e := range evals {
		if e == engine.Skip {
			return engine.Skip
		}
		if e == engine.Fork {
			res = engine.Fork
		}
	}
	return res
}

func (m *T6) Ratio(s *engine.Sim, id int) engine.Eval {
	u := s.Upgrades
	prog := m.progress(s)
	tol := m.tol * prog
	p2 := prog * prog

	switch id {
	case t6Q1:
		q1 := u[t6Q1].Cost()
		mod10 := float64(u[t6Q1].Level() % 10)
		base := math.Log10(7 + mod10)
		c5base := math.Log10(5 + 0.5*mod10)
		return combine(
			ratioBand(u[t6Q2].Cost()-q1, max(base-0.1*tol, 0), base+0.25*tol),
			ratioBand(u[t6R2].Cost()-q1, max(base-0.05*tol, 0), base+0.6*tol),
			ratioBand(u[t6C5].Cost()-q1, max(c5base-(0.4-0.3*p2)*tol, 0), c5base+0.35*p2*tol),
		)
	case t6Q2:
		q2 := u[t6Q2].Cost()
		c5 := engine.Buy
		if !s.Skips[t6C5] && prog >= 0.7 {
			c5 = ratioBand(u[t6C5].Cost()-q2, 0, 0.5*tol*prog)
		}
		return combine(
			ratioBand(u[t6R2].Cost()-q2, 0.1-0.1*tol, 0.1+0.2*tol),
			c5,
		)
	case t6R1:
		r1 := u[t6R1].Cost()
		base := math.Log10(3 + 0.5*float64(u[t6R1].Level()%10))
		return combine(
			ratioBand(u[t6Q2].Cost()-r1, max(base-0.1*tol, 0), base+0.1*tol),
			buyIf(u[t6R2].Cost()+1 > r1),
			ratioBand(u[t6C5].Cost()-r1, max(base-(0.25+0.25*p2)*tol, 0), base+0.25*p2*tol),
		)
	case t6C5:
		c5 := u[t6C5].Cost()
		q2 := engine.Buy
		if !s.Skips[t6Q2] && prog <= 0.7 {
			q2 = ratioBand(u[t6Q2].Cost()-c5, 0, 0.15*tol)
		}
		return combine(
			q2,
			ratioBand(u[t6R2].Cost()-c5, 0, 0.3*tol),
		)
	}
	return engine.Buy
}

func (*T6) Recording(s *engine.Sim) bool { return s.MaxRho > s.Params.Tau-5 }

func (m *T6) Clone() engine.Model {
	c := *m
	return &c
}
