package engine

import "github.com/napolitain/theory-sim/internal/models"

// Eval is a purchase decision
type Eval int

const (
	// Buy purchases now
	Buy Eval = iota
	// Fork explores both buying now and holding back
	Fork
	// Skip holds back
	Skip
)

func (e Eval) String() string {
	switch e {
	case Buy:
		return "buy"
	case Fork:
		return "fork"
	case Skip:
		return "skip"
	}
	return "unknown"
}

// Model is the theory-specific part of a simulation: growth formula, purchase
// heuristics and buy priority. The engine owns all shared state; a model keeps
// only its private extras and must return an independent copy from Clone.
type Model interface {
	Name() string

	// Upgrades returns a fresh set at level 1, indexed by upgrade id
	Upgrades() []*models.Upgrade

	// Accumulators names the log10 accumulators; index 0 is rho and drives MaxRho
	Accumulators() []string

	// Multiplier is the constant log10 bonus derived from the run parameters
	Multiplier(p models.Params) float64

	// Tick applies the growth formula for one step of length 10^logdt
	Tick(s *Sim, logdt float64)

	// Order lists upgrade ids in buy priority
	Order() []int

	// Eligible gates an upgrade behind milestones
	Eligible(s *Sim, id int) bool

	// Currency is the accumulator index an upgrade is paid from
	Currency(id int) int

	// Coast decides whether delaying the purchase could finish sooner.
	// Only called while coasting is enabled.
	Coast(s *Sim, id int, cost float64) Eval

	// Ratio decides whether the upgrade is currently worth its price
	Ratio(s *Sim, id int) Eval

	// Recording reports whether purchases are close enough to the goal to be logged
	Recording(s *Sim) bool

	// Purchased runs after every purchase of id
	Purchased(s *Sim, id int)

	Clone() Model
}

// PreTicker is implemented by models that update milestones before each tick
type PreTicker interface {
	PreTick(s *Sim)
}

// Seeder is implemented by models that keep private state restored from a seed
type Seeder interface {
	Seed(s *Sim, seed models.Seed) error
}

// Scheduler is implemented by models that tick on a non-default schedule
type Scheduler interface {
	Schedule(base Schedule) Schedule
}

// Schedule is the tick-length progression: the first tick lasts Dt/Divisor
// seconds and each following tick is Ddt times longer.
type Schedule struct {
	Dt      float64
	Ddt     float64
	Divisor float64
}

// DefaultSchedule is the schedule all stored publication tables were built with
func DefaultSchedule() Schedule {
	return Schedule{Dt: 1.5, Ddt: 1.0001, Divisor: 1.5}
}

// ScheduleFrom converts the config section
func ScheduleFrom(c models.ScheduleConfig) Schedule {
	return Schedule{Dt: c.Dt, Ddt: c.Ddt, Divisor: c.Divisor}
}
