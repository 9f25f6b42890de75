package ir

import (
	"math"
	"math/bits"
)

// Unbounded is the sentinel for "no limit": an unbounded acceleration
// factor, or the energy limit of a zero-cost recipe.
const Unbounded int64 = math.MaxInt64

// Bound names the constraint that decided a plan's resolved count.
type Bound string

const (
	BoundNone     Bound = "none"
	BoundFactor   Bound = "factor"
	BoundMaterial Bound = "material"
	BoundOutput   Bound = "output"
	BoundEnergy   Bound = "energy"
)

// Limits holds the three independent resource limits of a plan.
type Limits struct {
	Material int64 `json:"material"`
	Output   int64 `json:"output"`
	Energy   int64 `json:"energy"`
}

// BatchPlan is the result of one resolution.
//
// Invariant: 0 <= Resolved <= Requested, and Resolved is no greater than any
// of the limits. TotalCost == Resolved * UnitCost.
type BatchPlan struct {
	Requested int64   `json:"requested"`
	Resolved  int64   `json:"resolved"`
	UnitCost  float64 `json:"unit_cost"`
	TotalCost float64 `json:"total_cost"`
	Limits    Limits  `json:"limits"`
	Bound     Bound   `json:"bound"`
}

// IsEmpty reports whether the plan executes nothing.
func (p BatchPlan) IsEmpty() bool {
	return p.Resolved <= 0
}

// MulClamp multiplies two non-negative quantities in a 128-bit intermediate
// and clamps the product to math.MaxInt64. ok is false when clamping
// happened. Negative operands yield (0, true).
func MulClamp(a, b int64) (product int64, ok bool) {
	if a <= 0 || b <= 0 {
		return 0, true
	}
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi != 0 || lo > math.MaxInt64 {
		return math.MaxInt64, false
	}
	return int64(lo), true
}
