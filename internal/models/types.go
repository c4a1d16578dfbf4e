package models

import (
	"fmt"
	"math"

	"github.com/napolitain/theory-sim/internal/logmath"
)

// Params is the immutable per-run configuration of a theory
type Params struct {
	Tau      float64 // log10
	Students uint32
	Rho      float64 // log10 starting amount
}

// PurchaseEvent records one upgrade purchase
type PurchaseEvent struct {
	Upgrade string
	Level   uint32
	Time    float64
}

func (e PurchaseEvent) String() string {
	return fmt.Sprintf("%s: lvl %d, %s", e.Upgrade, e.Level, logmath.FormatDuration(e.Time))
}

// Result is the outcome of a completed simulation.
// Purchases is nil when the run did not keep a purchase log.
type Result struct {
	Time      float64
	Purchases []PurchaseEvent
}

// NoResult is the empty best-result slot; every finished run beats it
func NoResult() Result {
	return Result{Time: math.Inf(1)}
}

// Found reports whether r holds a finished run
func (r Result) Found() bool {
	return !math.IsInf(r.Time, 1)
}

// LastPurchase returns the highest level bought for the named upgrade
func LastPurchase(events []PurchaseEvent, name string) (uint32, bool) {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Upgrade == name {
			return events[i].Level, true
		}
	}
	return 0, false
}

// Seed is an explicit starting position used to resume a run near its goal.
// Levels are in the theory's upgrade order; Accumulators hold log10 amounts keyed
// by accumulator name; Values carries theory-specific plain numbers.
type Seed struct {
	Levels       []uint32           `json:"levels" yaml:"levels"`
	Accumulators map[string]float64 `json:"accumulators,omitempty" yaml:"accumulators,omitempty"`
	Values       map[string]float64 `json:"values,omitempty" yaml:"values,omitempty"`
}
