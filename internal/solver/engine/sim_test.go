package engine

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/napolitain/theory-sim/internal/models"
)

func TestSingleUpgradeBuysInSequence(t *testing.T) {
	m := newToy()
	m.upgrades = func() []*models.Upgrade {
		return []*models.Upgrade{
			models.NewUpgrade("x", models.NewExponentialCost(10, 2), models.EmptyValue{}),
		}
	}

	s := mustNew(m, 3)
	res := s.Simulate()

	if len(res.Purchases) == 0 {
		t.Fatalf("no purchases recorded")
	}
	for i, e := range res.Purchases {
		if want := uint32(i + 2); e.Level != want {
			t.Errorf("purchase %d bought level %d, want %d", i, e.Level, want)
		}
		if i > 0 && e.Time < res.Purchases[i-1].Time {
			t.Errorf("purchase %d at %v precedes previous at %v", i, e.Time, res.Purchases[i-1].Time)
		}
	}
	if res.Time != s.T {
		t.Errorf("result time %v, sim time %v", res.Time, s.T)
	}
	if s.MaxRho < 3 {
		t.Errorf("finished below goal: maxrho %v", s.MaxRho)
	}
	t.Logf("finished in %.0fs with %d purchases", res.Time, len(res.Purchases))
}

func TestTickInvariants(t *testing.T) {
	s := mustNew(newToy(), 8)

	prevRho, prevT, prevDt := s.MaxRho, s.T, s.Dt
	for i := 0; i < 20000 && s.MaxRho < s.Goal; i++ {
		s.Tick()
		s.Buy()
		if s.MaxRho < prevRho {
			t.Fatalf("tick %d: maxrho decreased %v -> %v", i, prevRho, s.MaxRho)
		}
		if s.Rho() > s.MaxRho {
			t.Fatalf("tick %d: rho %v above maxrho %v", i, s.Rho(), s.MaxRho)
		}
		if s.T <= prevT {
			t.Fatalf("tick %d: time did not advance %v -> %v", i, prevT, s.T)
		}
		if s.Dt <= prevDt {
			t.Fatalf("tick %d: dt did not grow %v -> %v", i, prevDt, s.Dt)
		}
		prevRho, prevT, prevDt = s.MaxRho, s.T, s.Dt
	}
}

func TestFirstTickUsesSchedule(t *testing.T) {
	s := mustNew(newToy(), 5)
	s.Tick()
	if s.T != 1 {
		t.Errorf("T after first tick = %v, want 1", s.T)
	}
	if want := 1.5 * 1.0001; s.Dt != want {
		t.Errorf("Dt after first tick = %v, want %v", s.Dt, want)
	}

	m := newToy()
	m.sch = &Schedule{Dt: 1.5, Ddt: 1.00001, Divisor: 1.5}
	s = mustNew(m, 5)
	if s.Ddt != 1.00001 {
		t.Errorf("model schedule ignored: ddt %v", s.Ddt)
	}

	s = mustNew(newToy(), 5, WithSchedule(Schedule{Dt: 3, Ddt: 1.1, Divisor: 3}))
	s.Tick()
	if s.T != 1 || s.Dt != 3*1.1 {
		t.Errorf("WithSchedule ignored: T %v Dt %v", s.T, s.Dt)
	}
}

func TestForkingNeverSlowerThanBuyingEverything(t *testing.T) {
	for _, goal := range []float64{4, 6, 9} {
		m := newToy()
		m.coast = bandCoast

		plain := mustNew(m, goal, WithoutCoasting()).Simulate()
		search := mustNew(m, goal)
		best := search.Simulate()

		if best.Time > plain.Time {
			t.Errorf("goal %v: search %v slower than plain %v", goal, best.Time, plain.Time)
		}
		if search.Stats().Forks() == 0 {
			t.Errorf("goal %v: no forks explored", goal)
		}
		t.Logf("goal %v: plain %.1fs, search %.1fs, %d forks, depth %d",
			goal, plain.Time, best.Time, search.Stats().Forks(), search.Stats().MaxDepth())
	}
}

func TestCoastingDisabledNeverForks(t *testing.T) {
	m := newToy()
	m.coast = func(*Sim, int, float64) Eval {
		t.Fatalf("coast consulted with coasting disabled")
		return Skip
	}
	s := mustNew(m, 6, WithoutCoasting())
	s.Simulate()
	if s.Stats().Forks() != 0 {
		t.Errorf("forks = %d, want 0", s.Stats().Forks())
	}
}

func TestParallelSearchMatchesSequential(t *testing.T) {
	m := newToy()
	m.coast = bandCoast

	seq := mustNew(m, 9).Simulate()
	for _, workers := range []int{2, 4, 16} {
		par := mustNew(m, 9, WithWorkers(workers)).Simulate()
		if par.Time != seq.Time {
			t.Errorf("workers=%d: time %v, sequential %v", workers, par.Time, seq.Time)
		}
		if !reflect.DeepEqual(par.Purchases, seq.Purchases) {
			t.Errorf("workers=%d: purchase log differs from sequential", workers)
		}
	}
}

func TestCoastSkipCapsUpgrade(t *testing.T) {
	m := newToy()
	m.income = 1
	m.coast = func(*Sim, int, float64) Eval { return Skip }

	s := mustNew(m, 4)
	res := s.Simulate()

	if s.Upgrades[0].Level() != 1 {
		t.Errorf("capped upgrade reached level %d", s.Upgrades[0].Level())
	}
	if s.Caps[0] != 1 {
		t.Errorf("cap = %d, want 1", s.Caps[0])
	}
	if len(res.Purchases) != 0 {
		t.Errorf("purchases recorded for capped upgrade: %v", res.Purchases)
	}
}

func TestRatioSkipOnlyDelays(t *testing.T) {
	m := newToy()
	// hold the purchase until rho is 10x the price
	m.ratio = func(s *Sim, id int) Eval {
		if s.Acc[0] > s.Upgrades[id].Cost()+1 {
			return Buy
		}
		return Skip
	}

	s := mustNew(m, 6)
	s.Simulate()
	if s.Caps[0] != math.MaxUint32 {
		t.Errorf("ratio skip capped the upgrade at %d", s.Caps[0])
	}
	if s.Upgrades[0].Level() < 2 {
		t.Errorf("upgrade never bought")
	}
}

func TestRatioForkSkipsInFork(t *testing.T) {
	m := newToy()
	m.ratio = func(s *Sim, id int) Eval {
		if s.Goal-s.Upgrades[id].Cost() < 1 {
			return Fork
		}
		return Buy
	}

	plain := mustNew(newToy(), 6).Simulate()
	s := mustNew(m, 6)
	best := s.Simulate()
	if s.Stats().Forks() == 0 {
		t.Fatalf("no ratio forks created")
	}
	if best.Time > plain.Time {
		t.Errorf("ratio search %v slower than plain %v", best.Time, plain.Time)
	}
}

func TestIneligibleUpgradeNeverBought(t *testing.T) {
	m := newToy()
	m.income = 1
	m.upgrades = func() []*models.Upgrade {
		return []*models.Upgrade{
			models.NewUpgrade("gen", models.NewExponentialCost(10, 3), models.NewExponentialValue(2)),
			models.NewUpgrade("locked", models.NewExponentialCost(1, 1.1), models.EmptyValue{}),
		}
	}
	m.order = []int{1, 0}
	m.eligible = func(s *Sim, id int) bool { return id != 1 }

	s := mustNew(m, 5)
	res := s.Simulate()
	if s.Upgrades[1].Level() != 1 {
		t.Errorf("ineligible upgrade reached level %d", s.Upgrades[1].Level())
	}
	if _, ok := models.LastPurchase(res.Purchases, "locked"); ok {
		t.Errorf("ineligible upgrade appears in the log")
	}
}

func TestPurchaseHooks(t *testing.T) {
	m := newToy()
	s := mustNew(m, 5)
	res := s.Simulate()

	if m.preTicks == 0 {
		t.Errorf("PreTick never called")
	}
	if m.purchases != int(s.Upgrades[0].Level()-1) {
		t.Errorf("Purchased called %d times for %d levels", m.purchases, s.Upgrades[0].Level()-1)
	}
	if len(res.Purchases) != m.purchases {
		t.Errorf("log has %d events, want %d", len(res.Purchases), m.purchases)
	}

	m = newToy()
	m.record = false
	if res := mustNew(m, 5).Simulate(); len(res.Purchases) != 0 {
		t.Errorf("events logged below the recording threshold")
	}
	if res := mustNew(newToy(), 5, WithoutLog()).Simulate(); res.Purchases != nil {
		t.Errorf("WithoutLog still returned a log")
	}
}

func TestForkIsIndependent(t *testing.T) {
	s := mustNew(newToy(), 6)
	for i := 0; i < 500; i++ {
		s.Tick()
		s.Buy()
	}

	f := s.Fork()
	if f.Depth != s.Depth+1 {
		t.Errorf("fork depth %d, want %d", f.Depth, s.Depth+1)
	}
	if f.best.Found() {
		t.Errorf("fork inherited a best result")
	}
	if f.T != s.T || f.Acc[0] != s.Acc[0] || f.Upgrades[0].Level() != s.Upgrades[0].Level() {
		t.Fatalf("fork does not start from the parent position")
	}

	level, acc, logLen := s.Upgrades[0].Level(), s.Acc[0], len(s.Log)
	f.Upgrades[0].Buy()
	f.Acc[0] = 0
	f.Caps[0] = 0
	f.Skips[0] = true
	f.Log = append(f.Log, models.PurchaseEvent{Upgrade: "fake"})
	f.Simulate()

	if s.Upgrades[0].Level() != level || s.Acc[0] != acc || len(s.Log) != logLen {
		t.Errorf("fork mutated its parent")
	}
	if s.Caps[0] != math.MaxUint32 || s.Skips[0] {
		t.Errorf("fork caps or skips leaked into parent")
	}
}

func TestSimulateKeepsFasterResult(t *testing.T) {
	s := mustNew(newToy(), 4)
	s.best = models.Result{Time: 1, Purchases: []models.PurchaseEvent{{Upgrade: "fork"}}}
	res := s.Simulate()
	if res.Time != 1 || res.Purchases[0].Upgrade != "fork" {
		t.Errorf("faster recorded result was not returned: %+v", res)
	}

	s = mustNew(newToy(), 4)
	own := s.Fork().Simulate()
	s.best = models.Result{Time: own.Time, Purchases: []models.PurchaseEvent{{Upgrade: "tie"}}}
	if res := s.Simulate(); res.Purchases[0].Upgrade != "tie" {
		t.Errorf("tie should keep the recorded result")
	}
}

func TestSeed(t *testing.T) {
	m := newToy()
	seed := models.Seed{
		Levels:       []uint32{12},
		Accumulators: map[string]float64{"rho": 2.5},
	}
	s, err := New(m, models.Params{}, 6, WithSeed(seed))
	if err != nil {
		t.Fatalf("New with seed failed: %v", err)
	}
	if s.Upgrades[0].Level() != 12 {
		t.Errorf("seeded level = %d, want 12", s.Upgrades[0].Level())
	}
	if s.Acc[0] != 2.5 {
		t.Errorf("seeded rho = %v, want 2.5", s.Acc[0])
	}

	bad := []models.Seed{
		{Levels: []uint32{1, 2}},
		{Accumulators: map[string]float64{"tau": 1}},
	}
	for _, b := range bad {
		if _, err := New(newToy(), models.Params{}, 6, WithSeed(b)); !errors.Is(err, ErrBadSeed) {
			t.Errorf("seed %+v: error = %v, want ErrBadSeed", b, err)
		}
	}
}

func TestEvalString(t *testing.T) {
	for e, want := range map[Eval]string{Buy: "buy", Fork: "fork", Skip: "skip", Eval(9): "unknown"} {
		if e.String() != want {
			t.Errorf("Eval(%d).String() = %q, want %q", int(e), e.String(), want)
		}
	}
}

func BenchmarkSearch(b *testing.B) {
	m := newToy()
	m.coast = bandCoast
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mustNew(m, 9).Simulate()
	}
}

func TestSequentialForksMergeImmediately(t *testing.T) {
	m := newToy()
	pending := 0
	m.coast = func(s *Sim, id int, cost float64) Eval {
		pending = max(pending, len(s.pending))
		return bandCoast(s, id, cost)
	}

	s := mustNew(m, 9)
	res := s.Simulate()
	if s.Stats().Forks() == 0 {
		t.Fatal("no forks created")
	}
	if pending != 0 {
		t.Errorf("sequential search held %d fork results", pending)
	}
	if want := mustNew(newToyWithCoast(), 9, WithWorkers(4)).Simulate(); want.Time != res.Time {
		t.Errorf("time %v, parallel %v", res.Time, want.Time)
	}
}

func newToyWithCoast() *toyModel {
	m := newToy()
	m.coast = bandCoast
	return m
}
