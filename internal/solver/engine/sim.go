// Package engine runs theory simulations: the tick/buy loop and the forking
// branch-and-bound search over purchase timing.
package engine

import (
	"errors"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/napolitain/theory-sim/internal/logmath"
	"github.com/napolitain/theory-sim/internal/models"
)

// ErrBadSeed is returned when a seed does not fit the theory it is applied to
var ErrBadSeed = errors.New("seed does not match theory")

// Sim is one simulation branch. A fork is a deep copy that shares nothing mutable
// with its parent.
type Sim struct {
	Params     models.Params
	Goal       float64 // log10, the run ends once MaxRho reaches it
	Acc        []float64
	MaxRho     float64
	T          float64
	Dt         float64
	Ddt        float64
	Multiplier float64
	Upgrades   []*models.Upgrade
	Caps       []uint32
	Skips      []bool
	Depth      int
	Coasting   bool
	Log        []models.PurchaseEvent

	model        Model
	schedule     Schedule
	logger       *log.Logger
	pool         *pool
	stats        *Stats
	seed         *models.Seed
	keepLog      bool
	forkLogDepth int

	best    models.Result
	pending []*forkResult
}

// Option configures a new Sim
type Option func(*Sim)

// WithSeed starts the run from saved levels and accumulators instead of level 1
func WithSeed(seed models.Seed) Option {
	return func(s *Sim) { s.seed = &seed }
}

// WithSchedule replaces the default tick schedule
func WithSchedule(sch Schedule) Option {
	return func(s *Sim) { s.schedule = sch }
}

// WithLogger sets the logger used for fork telemetry
func WithLogger(l *log.Logger) Option {
	return func(s *Sim) { s.logger = l }
}

// WithWorkers lets up to n-1 forks run on other goroutines. n <= 1 keeps the
// search on the calling goroutine.
func WithWorkers(n int) Option {
	return func(s *Sim) { s.pool = newPool(n) }
}

// WithForkLogDepth logs fork creation down to depth d
func WithForkLogDepth(d int) Option {
	return func(s *Sim) { s.forkLogDepth = d }
}

// WithoutCoasting makes every coast decision Buy, so the run never forks on timing
func WithoutCoasting() Option {
	return func(s *Sim) { s.Coasting = false }
}

// WithoutLog drops purchase events; results then carry a nil log
func WithoutLog() Option {
	return func(s *Sim) { s.keepLog = false }
}

// New creates a top-level simulation of model for params, running until goal
func New(model Model, params models.Params, goal float64, opts ...Option) (*Sim, error) {
	upgrades := model.Upgrades()
	s := &Sim{
		Params:       params,
		Goal:         goal,
		Acc:          make([]float64, len(model.Accumulators())),
		Upgrades:     upgrades,
		Caps:         make([]uint32, len(upgrades)),
		Skips:        make([]bool, len(upgrades)),
		Coasting:     true,
		model:        model,
		schedule:     DefaultSchedule(),
		logger:       log.New(io.Discard),
		stats:        &Stats{},
		keepLog:      true,
		forkLogDepth: 3,
		best:         models.NoResult(),
	}
	for i := range s.Caps {
		s.Caps[i] = math.MaxUint32
	}

	for _, opt := range opts {
		opt(s)
	}

	if sch, ok := model.(Scheduler); ok {
		s.schedule = sch.Schedule(s.schedule)
	}
	s.Dt = s.schedule.Dt
	s.Ddt = s.schedule.Ddt
	s.Acc[0] = params.Rho

	if s.seed != nil {
		if err := s.applySeed(*s.seed); err != nil {
			return nil, err
		}
	}
	s.Multiplier = model.Multiplier(params)
	return s, nil
}

func (s *Sim) applySeed(seed models.Seed) error {
	if len(seed.Levels) > 0 {
		if len(seed.Levels) != len(s.Upgrades) {
			return fmt.Errorf("%w: %s has %d upgrades, seed has %d levels",
				ErrBadSeed, s.model.Name(), len(s.Upgrades), len(seed.Levels))
		}
		for i, lvl := range seed.Levels {
			s.Upgrades[i].Set(lvl)
		}
	}

	for name, v := range seed.Accumulators {
		i := s.AccIndex(name)
		if i < 0 {
			return fmt.Errorf("%w: %s has no accumulator %q", ErrBadSeed, s.model.Name(), name)
		}
		s.Acc[i] = v
	}

	if seeder, ok := s.model.(Seeder); ok {
		if err := seeder.Seed(s, seed); err != nil {
			return fmt.Errorf("%w: %v", ErrBadSeed, err)
		}
	}
	return nil
}

// Model returns the theory plug-in of this branch
func (s *Sim) Model() Model { return s.model }

// Stats returns the search counters shared by this branch and all its forks
func (s *Sim) Stats() *Stats { return s.stats }

// AccIndex returns the index of the named accumulator, or -1
func (s *Sim) AccIndex(name string) int {
	return slices.Index(s.model.Accumulators(), name)
}

// Rho returns the primary accumulator
func (s *Sim) Rho() float64 { return s.Acc[0] }

// Tick advances the simulation by one step
func (s *Sim) Tick() {
	s.model.Tick(s, math.Log10(s.Dt))
	s.MaxRho = math.Max(s.MaxRho, s.Rho())
	s.T += s.Dt / s.schedule.Divisor
	s.Dt *= s.Ddt
}

// Buy spends the accumulators on upgrades in priority order, forking where the
// model cannot decide between buying now and holding back.
func (s *Sim) Buy() {
	for _, id := range s.model.Order() {
		u := s.Upgrades[id]
		if s.Skips[id] || u.Level() >= s.Caps[id] || !s.model.Eligible(s, id) {
			continue
		}
		cur := s.model.Currency(id)

		for s.Acc[cur] > u.Cost() && s.model.Eligible(s, id) {
			coast := Buy
			if s.Coasting {
				coast = s.model.Coast(s, id, u.Cost())
			}
			if coast == Skip {
				s.Caps[id] = u.Level()
				break
			}
			ratio := s.model.Ratio(s, id)
			if ratio == Skip {
				break
			}

			if coast == Fork {
				f := s.Fork()
				f.Caps[id] = u.Level()
				s.spawn(f, "coasting", id)
			}
			if ratio == Fork {
				f := s.Fork()
				f.Skips[id] = true
				s.spawn(f, "ratio", id)
			}

			s.purchase(id, cur)
		}
	}
}

func (s *Sim) purchase(id, cur int) {
	u := s.Upgrades[id]
	s.Acc[cur] = logmath.Sub(s.Acc[cur], u.Cost())
	u.Buy()
	clear(s.Skips)
	s.model.Purchased(s, id)

	if s.keepLog && s.model.Recording(s) {
		s.Log = append(s.Log, models.PurchaseEvent{Upgrade: u.Name, Level: u.Level(), Time: s.T})
	}
}

func (s *Sim) spawn(f *Sim, kind string, id int) {
	if s.Depth <= s.forkLogDepth {
		s.logger.Debug("creating fork",
			"kind", kind, "depth", s.Depth, "upgrade", s.Upgrades[id].Name, "level", s.Upgrades[id].Level())
	}
	s.stats.record(f.Depth)
	s.settle(s.pool.run(f))
}

// Fork returns an independent copy of this branch one level deeper, with an
// empty best result.
func (s *Sim) Fork() *Sim {
	f := *s
	f.Acc = slices.Clone(s.Acc)
	f.Caps = slices.Clone(s.Caps)
	f.Skips = slices.Clone(s.Skips)
	f.Log = slices.Clone(s.Log)
	f.Upgrades = make([]*models.Upgrade, len(s.Upgrades))
	for i, u := range s.Upgrades {
		f.Upgrades[i] = u.Mirror()
	}
	f.model = s.model.Clone()
	f.Depth = s.Depth + 1
	f.best = models.NoResult()
	f.pending = nil
	return &f
}

// Simulate runs until MaxRho reaches Goal and returns the fastest finish found
// by this branch or any of its forks. On a tie the fork wins.
func (s *Sim) Simulate() models.Result {
	pre, _ := s.model.(PreTicker)
	for s.MaxRho < s.Goal {
		if pre != nil {
			pre.PreTick(s)
		}
		s.Tick()
		s.Buy()
	}
	s.collect()

	if s.T < s.best.Time {
		res := models.Result{Time: s.T}
		if s.keepLog {
			res.Purchases = slices.Clone(s.Log)
			if res.Purchases == nil {
				res.Purchases = []models.PurchaseEvent{}
			}
		}
		return res
	}
	return s.best
}
