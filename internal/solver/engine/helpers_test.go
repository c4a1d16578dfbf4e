package engine

import (
	"github.com/napolitain/theory-sim/internal/logmath"
	"github.com/napolitain/theory-sim/internal/models"
)

// toyModel is a configurable single-accumulator theory for engine tests.
// Upgrade 0 multiplies income by 2 per level, upgrade 1 (when present) is a pure
// sink with no effect.
type toyModel struct {
	income    float64 // log10 income per tick at level 0
	upgrades  func() []*models.Upgrade
	order     []int
	coast     func(s *Sim, id int, cost float64) Eval
	ratio     func(s *Sim, id int) Eval
	eligible  func(s *Sim, id int) bool
	record    bool
	purchases int
	preTicks  int
	sch       *Schedule
}

func newToy() *toyModel {
	return &toyModel{
		upgrades: func() []*models.Upgrade {
			return []*models.Upgrade{
				models.NewUpgrade("gen", models.NewExponentialCost(10, 3), models.NewExponentialValue(2)),
			}
		},
		order:  []int{0},
		record: true,
	}
}

func (m *toyModel) Name() string { return "toy" }
func (m *toyModel) Upgrades() []*models.Upgrade { return m.upgrades() }
func (m *toyModel) Accumulators() []string { return []string{"rho"} }
func (m *toyModel) Multiplier(p models.Params) float64 { return 0 }
func (m *toyModel) Order() []int { return m.order }
func (m *toyModel) Currency(int) int { return 0 }
func (m *toyModel) Recording(*Sim) bool { return m.record }
func (m *toyModel) Purchased(*Sim, int) { m.purchases++ }
func (m *toyModel) PreTick(*Sim) { m.preTicks++ }

func (m *toyModel) Tick(s *Sim, logdt float64) {
	s.Acc[0] = logmath.Add(s.Acc[0], m.income+s.Upgrades[0].Value()+logdt+s.Multiplier)
}

func (m *toyModel) Eligible(s *Sim, id int) bool {
	if m.eligible == nil {
		return true
	}
	return m.eligible(s, id)
}

func (m *toyModel) Coast(s *Sim, id int, cost float64) Eval {
	if m.coast == nil {
		return Buy
	}
	return m.coast(s, id, cost)
}

func (m *toyModel) Ratio(s *Sim, id int) Eval {
	if m.ratio == nil {
		return Buy
	}
	return m.ratio(s, id)
}

func (m *toyModel) Clone() Model {
	c := *m
	return &c
}

func (m *toyModel) Schedule(base Schedule) Schedule {
	if m.sch == nil {
		return base
	}
	return *m.sch
}

// bandCoast forks whenever the purchase is within one order of magnitude of the goal
func bandCoast(s *Sim, id int, cost float64) Eval {
	if s.Goal-cost > 1 {
		return Buy
	}
	return Fork
}

func mustNew(m Model, goal float64, opts ...Option) *Sim {
	s, err := New(m, models.Params{}, goal, opts...)
	if err != nil {
		panic(err)
	}
	return s
}
