package models

import (
	"math"

	"github.com/napolitain/theory-sim/internal/logmath"
)

// ValueModel maps an upgrade level to its contribution to a growth formula.
// Most models return a log10 value; LinearValue returns a plain number that the
// formulas use as an exponent.
type ValueModel interface {
	Value(level uint32) float64
}

// ExponentialValue is base^level, stored in log10
type ExponentialValue struct {
	LogBase float64
}

// NewExponentialValue builds an ExponentialValue from a linear base
func NewExponentialValue(base float64) ExponentialValue {
	return ExponentialValue{LogBase: math.Log10(base)}
}

// Value returns log10(base) * level
func (v ExponentialValue) Value(level uint32) float64 {
	return v.LogBase * float64(level)
}

// LinearValue is Slope*level + Offset
type LinearValue struct {
	Slope  float64
	Offset float64
}

// Value returns Slope*level + Offset
func (v LinearValue) Value(level uint32) float64 {
	return v.Slope*float64(level) + v.Offset
}

// StepwiseValue grows by a constant step that is multiplied by Exp every Len levels.
// The sum is evaluated in closed form, so the cost of Value does not depend on level.
type StepwiseValue struct {
	Exp float64
	Len uint32
}

// NewStepwiseValue returns a StepwiseValue with step multiplier exp and period length
func NewStepwiseValue(exp float64, length uint32) StepwiseValue {
	return StepwiseValue{Exp: exp, Len: length}
}

// Value returns log10 of the stepwise sum at level. Level 0 yields -Inf.
func (v StepwiseValue) Value(level uint32) float64 {
	intPart := float64(level / v.Len)
	modPart := float64(level) - intPart*float64(v.Len)
	d := float64(v.Len) / (v.Exp - 1)

	return logmath.Sub(math.Log10(d+modPart)+math.Log10(v.Exp)*intPart, math.Log10(d))
}

// EmptyValue is for upgrades whose effect is read from their level directly
type EmptyValue struct{}

// Value always returns 0
func (EmptyValue) Value(uint32) float64 {
	return 0
}

// ValueFunc adapts a closed-form function to ValueModel
type ValueFunc func(level uint32) float64

// Value calls f(level)
func (f ValueFunc) Value(level uint32) float64 {
	return f(level)
}
