// Package pubtable builds and reads publication lookup tables: for every starting
// rho on a grid, the best next publication point and the total time remaining
// until the end of the theory.
package pubtable

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/napolitain/theory-sim/internal/logmath"
	"github.com/napolitain/theory-sim/internal/models"
)

// ErrNoEntry is returned when an index is missing from a table
var ErrNoEntry = errors.New("no table entry")

// missingTime stands in for the remaining time of an end index that has no entry yet
const missingTime = 1e100

// Entry is the best publication from one index
type Entry struct {
	Next uint32  `json:"next" db:"next_idx"`
	T    float64 `json:"t" db:"t"`
}

// Table maps a grid index to its best publication
type Table map[uint32]Entry

// Key returns the table index of a log10 rho on the given grid
func Key(rho, grid float64) uint32 {
	return uint32(math.Round(rho * grid))
}

// Keys returns the table indexes in ascending order
func (t Table) Keys() []uint32 {
	keys := make([]uint32, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// remaining is the stored total time from idx, or missingTime
func (t Table) remaining(idx uint32) float64 {
	if e, ok := t[idx]; ok {
		return e.T
	}
	return missingTime
}

// Step is one publication of a chain read-out
type Step struct {
	From      uint32
	To        uint32
	Remaining float64 // seconds until the end of the table from From
	Current   float64 // seconds spent on this publication alone
	Gain      float64 // multiplier gained by publishing at To
}

// gainExponent converts rho orders into multiplier orders for the read-out
const gainExponent = 0.152

// Chain follows the table from rho until an entry with no time left, or a
// missing entry. The second case returns the steps so far with ErrNoEntry.
func Chain(t Table, rho, grid float64) ([]Step, error) {
	var steps []Step
	idx := Key(rho, grid)
	seen := make(map[uint32]bool)

	for {
		e, ok := t[idx]
		if !ok {
			return steps, fmt.Errorf("%w for %s", ErrNoEntry, logmath.Format(float64(idx)/grid))
		}
		if seen[idx] {
			return steps, fmt.Errorf("table loops at %s", logmath.Format(float64(idx)/grid))
		}
		seen[idx] = true

		step := Step{
			From:      idx,
			To:        e.Next,
			Remaining: e.T,
			Gain:      math.Pow(10, (float64(e.Next)-float64(idx))/grid*gainExponent),
		}
		if next, ok := t[e.Next]; ok {
			step.Current = e.T - next.T
		}
		steps = append(steps, step)

		if e.T <= 0 {
			return steps, nil
		}
		idx = e.Next
	}
}

// Range returns the smallest and largest publication length, in grid steps,
// over all entries except end. Entries that do not move forward are ignored.
func Range(t Table, end uint32) (low, high uint32, err error) {
	low = math.MaxUint32
	found := false
	for k, e := range t {
		if k == end || e.Next <= k {
			continue
		}
		d := e.Next - k
		low = min(low, d)
		high = max(high, d)
		found = true
	}
	if !found {
		return 0, 0, ErrNoEntry
	}
	return low, high, nil
}

// DiffLine describes one index of a Diff read-out
type DiffLine struct {
	Index uint32
	Next  uint32
	Diff  uint32
	Found bool
}

// Diff lists the next index and publication length for every index in [start, end].
// The length is 0 for entries that do not move forward.
func Diff(t Table, start, end uint32) []DiffLine {
	var lines []DiffLine
	for i := start; i <= end; i++ {
		e, ok := t[i]
		line := DiffLine{Index: i, Found: ok}
		if ok {
			line.Next = e.Next
			if e.Next > i {
				line.Diff = e.Next - i
			}
		}
		lines = append(lines, line)
		if i == math.MaxUint32 {
			break
		}
	}
	return lines
}

// Compress drops the times and keeps only the next index of every entry
func Compress(t Table) map[uint32]uint32 {
	out := make(map[uint32]uint32, len(t))
	for k, e := range t {
		out[k] = e.Next
	}
	return out
}

// NextGoal looks up where a run starting at rho should publish, for a theory
// whose tau is rho*TauFactor. It returns the tau and goal in log10.
func NextGoal(t Table, cfg models.TableConfig, rho float64) (tau, goal float64, err error) {
	e, ok := t[cfg.Index(rho)]
	if !ok {
		return 0, 0, fmt.Errorf("%w for rho %s", ErrNoEntry, logmath.Format(rho))
	}
	return rho * cfg.TauFactor, float64(e.Next) / cfg.Grid, nil
}
