package models

import "math"

// CostModel maps an upgrade level to its log10 purchase price
type CostModel interface {
	Cost(level uint32) float64
}

// ExponentialCost prices level l at base * exp^l, stored in log10
type ExponentialCost struct {
	LogBase float64
	LogExp  float64
}

// NewExponentialCost builds an ExponentialCost from linear base and growth factor
func NewExponentialCost(base, exp float64) ExponentialCost {
	return ExponentialCost{LogBase: math.Log10(base), LogExp: math.Log10(exp)}
}

// NewExponentialCostLog builds an ExponentialCost whose base is already a log10 value.
// Used for prices too large for a float64, e.g. 1e730.
func NewExponentialCostLog(logBase, exp float64) ExponentialCost {
	return ExponentialCost{LogBase: logBase, LogExp: math.Log10(exp)}
}

// Cost returns log10(base) + log10(exp) * level
func (c ExponentialCost) Cost(level uint32) float64 {
	return c.LogBase + c.LogExp*float64(level)
}

// FirstFreeCost makes the first level free by pricing level l as Model(l-1).
// Evaluating it at level 0 is a configuration error.
type FirstFreeCost struct {
	Model CostModel
}

// Cost delegates to the wrapped model one level lower
func (c FirstFreeCost) Cost(level uint32) float64 {
	return c.Model.Cost(level - 1)
}

// CompositeCost switches pricing at Cutoff. Levels below the cutoff use Below,
// the rest use Above counted from the cutoff. Continuity is not enforced.
type CompositeCost struct {
	Below  CostModel
	Above  CostModel
	Cutoff uint32
}

// Cost dispatches on the cutoff
func (c CompositeCost) Cost(level uint32) float64 {
	if level < c.Cutoff {
		return c.Below.Cost(level)
	}
	return c.Above.Cost(level - c.Cutoff)
}
