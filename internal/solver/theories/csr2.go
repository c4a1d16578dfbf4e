package theories

import (
	"math"

	"github.com/napolitain/theory-sim/internal/logmath"
	"github.com/napolitain/theory-sim/internal/models"
	"github.com/napolitain/theory-sim/internal/solver/engine"
)

const (
	csr2Q1 = iota
	csr2Q2
	csr2C1
	csr2N
	csr2C2
)

var csr2Bands = [5][2]float64{
	csr2Q1: {0.65, 1.45},
	csr2Q2: {0.15, 0.5},
	csr2C1: {0.85, 1.65},
	csr2N:  {0, 1},
	csr2C2: {0, 1},
}

var (
	csr2ErrSlope  = math.Log10(math.Sqrt(8) + 3)
	csr2ErrOffset = math.Log10(math.Sqrt(8))
)

// CSR2 grows q from the error of the n-th convergent of sqrt(2).
type CSR2 struct {
	plain
}

// NewCSR2 returns the CSR2 model
func NewCSR2() *CSR2 { return &CSR2{} }

func (*CSR2) Name() string { return "csr2" }

func (*CSR2) Upgrades() []*models.Upgrade {
	return []*models.Upgrade{
		models.NewUpgrade("q1", models.FirstFreeCost{Model: models.NewExponentialCost(10, 5)}, models.NewStepwiseValue(2, 10)),
		models.NewUpgrade("q2", models.NewExponentialCost(15, 128), models.NewExponentialValue(2)),
		models.NewUpgrade("c1", models.NewExponentialCost(1e6, 16), models.NewStepwiseValue(2, 10)),
		models.NewUpgrade("n", models.NewExponentialCost(50, math.Pow(256, 3.346)), models.LinearValue{Slope: 1, Offset: 1}),
		models.NewUpgrade("c2", models.NewExponentialCost(1e3, math.Pow(10, 5.65)), models.NewExponentialValue(2)),
	}
}

func (*CSR2) Accumulators() []string { return []string{"rho", "q"} }

// Multiplier does not depend on students
func (*CSR2) Multiplier(p models.Params) float64 {
	return p.Tau*0.55075 - math.Log10(200)
}

// csr2Error is log10 of the approximation error of convergent n
func csr2Error(n float64) float64 {
	return n*csr2ErrSlope - csr2ErrOffset
}

func (*CSR2) Tick(s *engine.Sim, logdt float64) {
	u := s.Upgrades
	bonus := s.Multiplier + logdt
	n := u[csr2N].Value() + float64(u[csr2C2].Level())

	s.Acc[1] = logmath.Add(s.Acc[1], u[csr2C1].Value()+2*u[csr2C2].Value()+csr2Error(n)+bonus)
	s.Acc[0] = logmath.Add(s.Acc[0], u[csr2Q1].Value()*1.15+u[csr2Q2].Value()+s.Acc[1]+bonus)
}

func (*CSR2) Order() []int { return []int{csr2C2, csr2N, csr2C1, csr2Q2, csr2Q1} }

func (*CSR2) Coast(s *engine.Sim, id int, cost float64) engine.Eval {
	dist := s.Goal - cost
	if dist > 3 {
		return engine.Buy
	}
	b := csr2Bands[id]
	return coastBand(dist, b[0], b[1])
}

func (*CSR2) Ratio(s *engine.Sim, id int) engine.Eval {
	u := s.Upgrades
	cheapest := min(u[csr2Q2].Cost(), u[csr2N].Cost(), u[csr2C2].Cost())

	switch id {
	case csr2Q1:
		return buyIf(u[csr2Q1].Cost()+math.Log10(7+float64(u[csr2Q1].Level()%10)) < cheapest)
	case csr2Q2:
		return buyIf(u[csr2Q2].Cost()+math.Log10(1.8) < u[csr2C2].Cost())
	case csr2C1:
		return buyIf(u[csr2C1].Cost()+math.Log10(15+float64(u[csr2C1].Level()%10)) < cheapest)
	case csr2N:
		return buyIf(u[csr2N].Cost()+math.Log10(1.2) < u[csr2C2].Cost())
	}
	return engine.Buy
}

func (*CSR2) Recording(s *engine.Sim) bool { return s.MaxRho > s.Params.Tau*2.5-3 }

func (*CSR2) Clone() engine.Model { return &CSR2{} }
