package theories

import (
	"math"

	"github.com/napolitain/theory-sim/internal/logmath"
	"github.com/napolitain/theory-sim/internal/models"
	"github.com/napolitain/theory-sim/internal/solver/engine"
)

// T2 feeds rho from two chains of four derivative layers. Ids 0-3 drive the q
// chain and 4-7 the r chain; accumulator i+1 is layer i.
type T2 struct {
	plain

	// rankByCost restricts buying to the cheapest upgrade after weighting each
	// price by its stepwise position. Off by default: plain buying wins on the
	// stored tables.
	rankByCost bool
}

// NewT2 returns the T2 model
func NewT2() *T2 { return &T2{} }

var t2Bands = [4][2]float64{{1.1, 2}, {1.8, 3}, {2.9, 4.1}, {4.9, 6.1}}

// stepwise weight per chain position
var t2Weights = [4]float64{0.24, 0.18, 0.12, 0.05}

func (*T2) Name() string { return "t2" }

func (*T2) Upgrades() []*models.Upgrade {
	step := models.NewStepwiseValue(2, 10)
	return []*models.Upgrade{
		models.NewUpgrade("q1", models.FirstFreeCost{Model: models.NewExponentialCost(10, 2)}, step),
		models.NewUpgrade("q2", models.NewExponentialCost(5e3, 2), step),
		models.NewUpgrade("q3", models.NewExponentialCost(3e25, 3), step),
		models.NewUpgrade("q4", models.NewExponentialCost(8e50, 4), step),
		models.NewUpgrade("r1", models.NewExponentialCost(2e6, 2), step),
		models.NewUpgrade("r2", models.NewExponentialCost(3e9, 2), step),
		models.NewUpgrade("r3", models.NewExponentialCost(4e25, 3), step),
		models.NewUpgrade("r4", models.NewExponentialCost(5e50, 4), step),
	}
}

func (*T2) Accumulators() []string {
	return []string{"rho", "q1", "q2", "q3", "q4", "r1", "r2", "r3", "r4"}
}

func (*T2) Multiplier(p models.Params) float64 {
	return studentsBonus(p.Students) + 0.198*p.Tau - 2
}

func (*T2) Tick(s *engine.Sim, logdt float64) {
	layers := s.Acc[1:]
	for chain := 0; chain < 8; chain += 4 {
		for i := chain; i < chain+4; i++ {
			in := s.Upgrades[i].Value() + logdt
			if i < chain+3 {
				in += layers[i+1]
			}
			layers[i] = logmath.Add(layers[i], in)
		}
	}
	s.Acc[0] = logmath.Add(s.Acc[0], layers[0]*1.15+layers[4]*1.15+s.Multiplier+logdt)
}

func (*T2) Order() []int { return []int{7, 6, 5, 4, 3, 2, 1, 0} }

func (*T2) Coast(s *engine.Sim, id int, cost float64) engine.Eval {
	dist := s.Goal - cost
	if dist > 7 {
		return engine.Buy
	}
	b := t2Bands[id%4]
	return coastBand(dist, b[0], b[1])
}

func (m *T2) Ratio(s *engine.Sim, id int) engine.Eval {
	if !m.rankByCost || s.Goal-s.MaxRho < 8 {
		return engine.Buy
	}

	best, bestCost := 0, math.Inf(1)
	for i, u := range s.Upgrades {
		c := u.Cost() + math.Log10(1+t2Weights[i%4]*float64(u.Level()%10))
		if c < bestCost {
			best, bestCost = i, c
		}
	}
	return buyIf(best == id)
}

func (*T2) Recording(s *engine.Sim) bool { return s.MaxRho > s.Goal-9 }

func (m *T2) Clone() engine.Model {
	c := *m
	return &c
}
