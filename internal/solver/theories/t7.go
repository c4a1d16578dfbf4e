package theories

import (
	"math"

	"github.com/napolitain/theory-sim/internal/logmath"
	"github.com/napolitain/theory-sim/internal/models"
	"github.com/napolitain/theory-sim/internal/solver/engine"
)

const (
	t7Q1 = iota
	t7C3
	t7C4
	t7C5
	t7C6
)

// accumulator indexes
const (
	t7Rho = iota
	t7Rho2
	t7Drho13
	t7Drho23
)

var (
	t7CoastShort = math.Log10(8)
	t7CoastLong  = math.Log10(20)
	t7CoastC6    = math.Log10(2)
	t7RatioShort = math.Log10(4)
)

// T7 grows two coupled accumulators. Coasting here stops buying an upgrade
// close to the goal instead of forking.
type T7 struct {
	plain
}

// NewT7 returns the T7 model
func NewT7() *T7 { return &T7{} }

func (*T7) Name() string { return "t7" }

func (*T7) Upgrades() []*models.Upgrade {
	return []*models.Upgrade{
		models.NewUpgrade("q1", models.FirstFreeCost{Model: models.NewExponentialCost(500, 1.51572)}, models.NewStepwiseValue(2, 10)),
		models.NewUpgrade("c3", models.NewExponentialCost(1e5, 63), models.NewExponentialValue(2)),
		models.NewUpgrade("c4", models.NewExponentialCost(10, 2.82), models.NewExponentialValue(2)),
		models.NewUpgrade("c5", models.NewExponentialCost(1e8, 60), models.NewExponentialValue(2)),
		models.NewUpgrade("c6", models.NewExponentialCost(100, 2.81), models.NewExponentialValue(2)),
	}
}

func (*T7) Accumulators() []string { return []string{"rho", "rho2", "drho13", "drho23"} }

func (*T7) Multiplier(p models.Params) float64 {
	return p.Tau*0.152 + studentsBonus(p.Students)
}

func (*T7) Tick(s *engine.Sim, logdt float64) {
	u, a := s.Upgrades, s.Acc
	rho, rho2 := a[t7Rho], a[t7Rho2]
	half := math.Log10(0.5) + u[t7C6].Value()

	drho12 := math.Log10(1.5) + u[t7C3].Value() + rho/2
	drho22 := math.Log10(1.5) + u[t7C5].Value() + rho2/2
	a[t7Drho13] = min(half+rho2/2-rho/2, a[t7Drho13]+2, rho+2)
	a[t7Drho23] = min(half+rho/2-rho2/2, a[t7Drho23]+2, rho2+2)
	bonus := logdt + u[t7Q1].Value() + s.Multiplier

	a[t7Rho] = logmath.Add(rho, bonus+logmath.Add(drho12, a[t7Drho13]))
	a[t7Rho2] = logmath.Add(rho2, bonus+logmath.Add(drho22, a[t7Drho23]))
}

func (*T7) Order() []int { return []int{t7C6, t7C5, t7C4, t7C3, t7Q1} }

func (*T7) Coast(*engine.Sim, int, float64) engine.Eval { return engine.Buy }

// Ratio compares each upgrade against the c6 price, then applies the coasting
// cut-off near the goal.
func (*T7) Ratio(s *engine.Sim, id int) engine.Eval {
	cost := s.Upgrades[id].Cost()
	if cost < s.Params.Tau-50 {
		return engine.Buy
	}

	dist := s.Upgrades[t7C6].Cost() - cost
	var ev engine.Eval
	switch id {
	case t7Q1, t7C5:
		ev = buyIf(dist >= t7RatioShort)
	case t7C3, t7C4:
		ev = buyIf(dist >= 1)
	case t7C6:
		ev = engine.Buy
	default:
		ev = engine.Skip
	}

	if ev == engine.Buy && s.Coasting {
		return t7Coast(s.Goal-cost, id)
	}
	return ev
}

func t7Coast(dist float64, id int) engine.Eval {
	if dist > 1.5 {
		return engine.Buy
	}
	switch id {
	case t7Q1, t7C5:
		return buyIf(dist >= t7CoastShort)
	case t7C3, t7C4:
		return buyIf(dist >= t7CoastLong)
	case t7C6:
		return buyIf(dist >= t7CoastC6)
	}
	return engine.Skip
}

func (*T7) Recording(s *engine.Sim) bool { return s.MaxRho > s.Params.Tau-5 }

func (m *T7) Clone() engine.Model { return &T7{} }
