package theories

import (
	"math"

	"github.com/napolitain/theory-sim/internal/logmath"
	"github.com/napolitain/theory-sim/internal/models"
	"github.com/napolitain/theory-sim/internal/solver/engine"
)

const (
	t1Q1 = iota
	t1Q2
	t1C3
	t1C4
)

// T1 buys the upgrade with the lowest weighted cost. It never forks.
type T1 struct {
	plain
}

// NewT1 returns the T1 model
func NewT1() *T1 { return &T1{} }

func (*T1) Name() string { return "t1" }

func (*T1) Upgrades() []*models.Upgrade {
	return []*models.Upgrade{
		models.NewUpgrade("q1", models.FirstFreeCost{Model: models.NewExponentialCost(5, 2)}, models.NewStepwiseValue(2, 10)),
		models.NewUpgrade("q2", models.NewExponentialCost(100, 10), models.NewExponentialValue(2)),
		models.NewUpgrade("c3", models.NewExponentialCost(1e4, math.Pow(10, 4.5)), models.NewExponentialValue(10)),
		models.NewUpgrade("c4", models.NewExponentialCost(1e10, 1e8), models.NewExponentialValue(10)),
	}
}

func (*T1) Accumulators() []string { return []string{"rho"} }

func (*T1) Multiplier(p models.Params) float64 {
	return p.Tau*0.164 - log3 + studentsBonus(p.Students)
}

func (*T1) Tick(s *engine.Sim, logdt float64) {
	u, rho := s.Upgrades, s.Acc[0]
	c34 := logmath.Add(u[t1C3].Value()+rho*0.2, u[t1C4].Value()+rho*0.3)
	s.Acc[0] = logmath.Add(rho, c34+u[t1Q1].Value()+u[t1Q2].Value()+s.Multiplier+logdt)
}

func (*T1) Order() []int { return []int{t1C4, t1C3, t1Q2, t1Q1} }

func (*T1) Coast(*engine.Sim, int, float64) engine.Eval { return engine.Buy }

// Ratio buys cheap upgrades outright and otherwise only the upgrade whose cost,
// weighted by the growth it brings, is lowest.
func (*T1) Ratio(s *engine.Sim, id int) engine.Eval {
	u := s.Upgrades
	cost := u[id].Cost()
	if cost < s.Params.Tau-50 {
		return engine.Buy
	}

	rho := s.Acc[0]
	c3term := u[t1C3].Value() + 0.2*rho
	c4term := u[t1C4].Value() + 0.3*rho
	sum := logmath.Add(c3term, c4term)
	c3ratio := math.Pow(10, c3term-sum)
	c4ratio := math.Pow(10, c4term-sum)

	mod10 := float64(u[t1Q1].Level() % 10)
	mults := [4]float64{
		(11 + mod10) / (10 + mod10),
		2,
		10*c3ratio + c4ratio,
		c3ratio + 10*c4ratio,
	}

	var weighted [4]float64
	for i, m := range mults {
		weighted[i] = u[i].Cost() + (1/0.7)*math.Log10(
			(-1/(m*math.Pow(math.Pow(m, 1/0.3)-1, 0.7))+1/math.Pow(1-1/math.Pow(m, 1/0.3), 0.7))/(1-1/m))
	}

	if s.Coasting && weighted[id] > s.Goal {
		return engine.Skip
	}

	lowest := min(weighted[0], weighted[1], weighted[2], weighted[3])
	mult2 := math.Pow(mults[id], 10.0/3.0)
	return buyIf(weighted[id] < lowest+0.0001 && rho > cost+math.Log10(1/(1-1/mult2)))
}

func (*T1) Recording(s *engine.Sim) bool { return s.MaxRho > s.Params.Tau-5 }

func (m *T1) Clone() engine.Model { return &T1{} }
