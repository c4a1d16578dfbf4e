package theories

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/napolitain/theory-sim/internal/logmath"
	"github.com/napolitain/theory-sim/internal/models"
	"github.com/napolitain/theory-sim/internal/solver/engine"
)

const (
	fpC1 = iota
	fpC2
	fpQ1
	fpQ2
	fpR1
	fpN
	fpS
)

// fpMaxN caps the pattern size n
const fpMaxN = 20000

var fpBands = [6][2]float64{
	fpC1: {0.3, 1.5},
	fpC2: {0.15, 0.5},
	fpQ1: {0.3, 1.5},
	fpQ2: {0.3, 1},
	fpR1: {0.1, 1.5},
	fpN:  {0, 1.5},
}

// fpCache holds the terms derived from the n upgrade level
type fpCache struct {
	n  uint32
	tn float64
	un float64
	sn float64 // log10
}

// FP grows rho from the cell counts of a fractal pattern of size n. The
// pattern terms are recomputed only after n is bought.
type FP struct {
	plain

	tvar        float64 // plain seconds, not log10
	cache       fpCache
	updateCache bool
	rmilestone  bool
}

// NewFP returns the FP model
func NewFP() *FP { return &FP{updateCache: true} }

func (*FP) Name() string { return "fp" }

func (*FP) Upgrades() []*models.Upgrade {
	q1step := models.NewStepwiseValue(10, 10)
	r1step := models.NewStepwiseValue(2, 5)

	return []*models.Upgrade{
		models.NewUpgrade("c1",
			models.FirstFreeCost{Model: models.NewExponentialCost(10, 1.4)},
			models.NewStepwiseValue(150, 100)),
		models.NewUpgrade("c2",
			models.CompositeCost{
				Below:  models.NewExponentialCost(1e15, 40),
				Above:  models.NewExponentialCost(1e37, 16.42),
				Cutoff: 15,
			},
			models.NewExponentialValue(2)),
		models.NewUpgrade("q1",
			models.FirstFreeCost{Model: models.NewExponentialCost(1e35, 12)},
			models.ValueFunc(func(level uint32) float64 {
				return q1step.Value(level) - math.Log10(1+1000/math.Pow(float64(level), 1.5))
			})),
		models.NewUpgrade("q2", models.NewExponentialCost(1e76, 1e3), models.EmptyValue{}),
		models.NewUpgrade("r1",
			models.FirstFreeCost{Model: models.CompositeCost{
				Below:  models.NewExponentialCost(1e80, 25),
				Above:  models.NewExponentialCostLog(480, 150),
				Cutoff: 285,
			}},
			models.ValueFunc(func(level uint32) float64 {
				return r1step.Value(level) - math.Log10(1+1e9/math.Pow(float64(level), 4))
			})),
		models.NewUpgrade("n", models.NewExponentialCost(1e4, 3e6), models.EmptyValue{}),
		models.NewUpgrade("s", models.NewExponentialCostLog(730, 1e30), models.ValueFunc(fpSValue)),
	}
}

// fpSValue is piecewise linear with the slope raised to 0.2 between levels 32 and 38
func fpSValue(level uint32) float64 {
	switch {
	case level < 32:
		return 1 + float64(level)*0.15
	case level < 39:
		return fpSValue(31) + 0.15 + float64(level-32)*0.2
	}
	return fpSValue(38) + 0.2 + float64(level-39)*0.15
}

func (*FP) Accumulators() []string { return []string{"rho", "q", "r"} }

// Multiplier does not depend on students
func (*FP) Multiplier(p models.Params) float64 {
	return p.Tau*0.331 + math.Log10(5)
}

// Seed restores the plain-valued t variable
func (m *FP) Seed(_ *engine.Sim, seed models.Seed) error {
	t, ok := seed.Values["t"]
	if !ok {
		return nil
	}
	if t < 0 {
		return fmt.Errorf("fp t %v is negative", t)
	}
	m.tvar = t
	return nil
}

// PreTick switches the r growth formula once the milestone is reached
func (m *FP) PreTick(s *engine.Sim) {
	if max(s.Acc[0], s.Params.Tau*(1/0.3)) >= 1500 {
		m.rmilestone = true
	}
}

func (m *FP) Tick(s *engine.Sim, logdt float64) {
	u := s.Upgrades
	if m.updateCache {
		m.cache = newFPCache(u[fpN].Level())
		m.updateCache = false
	}
	c := m.cache
	sv := u[fpS].Value()

	m.tvar += s.Dt

	s.Acc[1] = logmath.Add(s.Acc[1],
		u[fpQ1].Value()+fpApprox(u[fpQ2].Level())+math.Log10(c.un)*(7+sv)-3+logdt)

	rexp := math.Log10(float64(c.n))
	if m.rmilestone {
		rexp = math.Log10(c.un*2) / 2
	}
	s.Acc[2] = logmath.Add(s.Acc[2],
		u[fpR1].Value()+(math.Log10(c.tn)+math.Log10(c.un))*rexp+c.sn*2.8+logdt)

	s.Acc[0] = logmath.Add(s.Acc[0],
		s.Multiplier+u[fpC1].Value()+u[fpC2].Value()+math.Log10(c.tn)*(5+sv)+
			math.Log10(m.tvar)+logdt+s.Acc[1]+s.Acc[2])
}

func (*FP) Order() []int { return []int{fpS, fpN, fpR1, fpQ2, fpQ1, fpC2, fpC1} }

func (*FP) Coast(s *engine.Sim, id int, cost float64) engine.Eval {
	dist := s.Goal - cost
	if dist > 3 || id == fpS {
		return engine.Buy
	}
	b := fpBands[id]
	return coastBand(dist, b[0], b[1])
}

func (*FP) Ratio(s *engine.Sim, id int) engine.Eval {
	u := s.Upgrades
	switch id {
	case fpC1:
		c1, c2, sc := u[fpC1].Cost(), u[fpC2].Cost(), u[fpS].Cost()
		mod100 := u[fpC1].Level() % 100
		remaining := c1 + math.Log10((math.Pow(1.4, float64(101-mod100))-1)/0.4)
		return buyIf((mod100 > 85 && remaining < c2+0.1 && remaining < sc) ||
			c1+math.Log10(float64(mod100)+1) < min(c2, sc))
	case fpC2:
		return buyIf(u[fpC2].Cost()+0.1 < u[fpS].Cost())
	case fpQ1:
		return buyIf(u[fpQ1].Cost()+1.5*math.Log10(float64(u[fpQ1].Level()%10)+1) < u[fpQ2].Cost())
	case fpQ2:
		return buyIf(u[fpQ2].Cost()+0.1 < u[fpS].Cost())
	}
	return engine.Buy
}

func (m *FP) Purchased(_ *engine.Sim, id int) {
	if id == fpN {
		m.updateCache = true
	}
}

func (*FP) Recording(s *engine.Sim) bool { return s.MaxRho > s.Params.Tau*(1/0.3)-5 }

func (m *FP) Clone() engine.Model {
	c := *m
	return &c
}

func newFPCache(level uint32) fpCache {
	n := 1 + stepwiseSum(level, 1, 40) +
		stepwiseSum(level-min(level, 30), 1, 35)*2 +
		uint32(math.Floor(float64(stepwiseSum(level-min(level, 69), 1, 30))*2.4+0.001))
	n = min(n, fpMaxN)

	return fpCache{
		n:  n,
		tn: fpT(n),
		un: fpU(n),
		sn: fpSn(uint32(math.Floor(math.Sqrt(float64(n) + 0.001)))),
	}
}

// stepwiseSum is the integer sum of a step that grows by base every length levels
func stepwiseSum(level, base, length uint32) uint32 {
	if level <= length {
		return level
	}
	level -= length
	cycles := level / length
	mod := level - cycles*length
	return uint32(float64(base)*float64(cycles+1)*(float64(length*cycles)/2+float64(mod))) + length + level
}

func isPow2(n uint32) bool { return n != 0 && n&(n-1) == 0 }

// fpT is the number of cells of the pattern of size n
func fpT(n uint32) float64 {
	if n == 0 {
		return 0
	}
	k := bits.Len32(n) - 1
	if isPow2(n) {
		return (1 + math.Pow(2, float64(2*k+1))) / 3
	}
	i := n - 1<<k
	return fpT(1<<k) + 2*fpT(i) + fpT(i+1) - 1
}

func fpV(n uint32) float64 {
	if n == 0 {
		return 0
	}
	k := bits.Len32(n) - 1
	v := math.Pow(2, float64(2*k))
	if isPow2(n) {
		return v
	}
	return v + 3*fpV(n-1<<k)
}

func fpU(n uint32) float64 {
	return 4.0/3.0*fpV(n) - 1.0/3.0
}

// fpSn returns log10((2*3^n - 3) / 3)
func fpSn(n uint32) float64 {
	return math.Log10(1.0/3.0) + logmath.Sub(log2+log3*float64(n), log3)
}

// fpApprox returns log10((4^(n+1) + 2) / 6)
func fpApprox(n uint32) float64 {
	return math.Log10(1.0/6.0) + logmath.Add(log2*2*float64(n+1), log2)
}
