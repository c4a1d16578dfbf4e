package theories

import (
	"math"

	"github.com/napolitain/theory-sim/internal/logmath"
	"github.com/napolitain/theory-sim/internal/models"
	"github.com/napolitain/theory-sim/internal/solver/engine"
)

const (
	deN = iota
	deM
	deA0
	deA1
	deA2
	deMaxX
)

// accumulator indexes
const (
	deRho = iota
	deT
	deX
	deQ
)

var (
	deLogE = math.Log10(math.E)
	deLn10 = math.Ln10
)

// DE buys by ratio only, holding everything back for the next max x level.
// It never forks, so coasting only tightens the ratio limit to the goal.
type DE struct {
	plain
}

// NewDE returns the DE model
func NewDE() *DE { return &DE{} }

func (*DE) Name() string { return "de" }

func (*DE) Upgrades() []*models.Upgrade {
	a2step := models.NewStepwiseValue(1.5, 11)
	maxXBase, maxXPower := math.Log10(1024), math.Log10(24.5)

	return []*models.Upgrade{
		models.NewUpgrade("n", models.NewExponentialCost(200, 2.2), models.NewExponentialValue(math.Pow(2, 0.3))),
		models.NewUpgrade("m", models.NewExponentialCostLog(200, 1000),
			models.ValueFunc(func(level uint32) float64 { return log2 * float64(int(level)-256) })),
		models.NewUpgrade("a0",
			models.FirstFreeCost{Model: models.CompositeCost{
				Below:  models.NewExponentialCost(3, 1.4),
				Above:  models.NewExponentialCostLog(640, 5),
				Cutoff: 4377,
			}},
			models.NewStepwiseValue(2.2, 5)),
		models.NewUpgrade("a1", models.NewExponentialCost(50, 1.74), models.NewStepwiseValue(3, 7)),
		models.NewUpgrade("a2", models.NewExponentialCost(1e85, 20),
			models.ValueFunc(func(level uint32) float64 { return a2step.Value(level) - 1 })),
		models.NewUpgrade("max x",
			models.CompositeCost{
				Below:  models.NewExponentialCost(1e7, math.Pow(2, 12)),
				Above:  models.NewExponentialCost(1e101, math.Pow(2, 19.5)),
				Cutoff: 26,
			},
			models.ValueFunc(func(level uint32) float64 { return maxXBase + float64(level)*maxXPower })),
	}
}

func (*DE) Accumulators() []string { return []string{"rho", "t", "x", "q"} }

// Multiplier does not depend on students
func (*DE) Multiplier(p models.Params) float64 {
	return p.Tau*0.4 - math.Log10(4)
}

// Schedule slows the tick growth tenfold
func (*DE) Schedule(base engine.Schedule) engine.Schedule {
	base.Ddt = 1.00001
	return base
}

func (*DE) Tick(s *engine.Sim, logdt float64) {
	u, a := s.Upgrades, s.Acc
	nv := u[deN].Value()
	vn := nv * 1.2
	va0 := u[deA0].Value() * 3

	a[deT] = logmath.Add(a[deT], s.Multiplier+logdt)

	x := logmath.Add(a[deX], nv+math.Log10(logmath.Add(deLogE, va0-vn)*deLn10)+logdt)
	a[deX] = min(x, u[deMaxX].Value())

	a[deQ] = logmath.Add(a[deQ], u[deA1].Value()+a[deX]+u[deM].Value()-a[deT]+logdt)

	rhodot := logmath.Add(log2+u[deA1].Value()+a[deX], u[deA0].Value()) + nv + 0.1*a[deQ]
	a[deRho] = logmath.Add(a[deRho], rhodot+s.Multiplier+logdt)
}

func (*DE) Order() []int { return []int{deMaxX, deA2, deA1, deA0, deM, deN} }

func (*DE) Coast(*engine.Sim, int, float64) engine.Eval { return engine.Buy }

// Ratio saves for the next max x level, or for the goal when coasting
func (*DE) Ratio(s *engine.Sim, id int) engine.Eval {
	u := s.Upgrades
	next := u[deMaxX].Cost()
	if s.Coasting {
		next = min(next, s.Goal)
	}

	switch id {
	case deN:
		return buyIf(u[deN].Cost()+math.Log10(5) < next)
	case deM:
		return buyIf(u[deM].Cost()+1 < next && s.MaxRho*0.4 < s.Params.Tau)
	case deA0:
		return buyIf(s.T < 60)
	case deA1:
		return buyIf(u[deA1].Cost()+math.Log10(float64(5+u[deA1].Level()%7)) < next)
	case deMaxX:
		return engine.Buy
	}
	return engine.Skip
}

func (*DE) Recording(s *engine.Sim) bool { return s.MaxRho > s.Params.Tau*2.5-5 }

func (*DE) Clone() engine.Model { return &DE{} }
