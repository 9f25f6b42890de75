package resolve

import (
	"math"

	"github.com/roach88/overclock/internal/ir"
)

// ZeroCostEpsilon is the unit cost at or below which a recipe is treated as
// free and the energy limit is Unbounded.
const ZeroCostEpsilon = 0.001

// Sink accepts output. TryInsert returns the leftover that did not (or, when
// simulate is true, would not) fit. Leftover must be monotonically
// non-decreasing in the requested count.
type Sink interface {
	TryInsert(stack ir.Stack, simulate bool) int64
}

// MaterialLimit returns how many repetitions the available material covers.
func MaterialLimit(available, perUnit int64) int64 {
	if available <= 0 || perUnit <= 0 {
		return 0
	}
	return available / perUnit
}

// EnergyLimit returns how many repetitions the available energy pays for.
func EnergyLimit(available, unitCost float64) int64 {
	if unitCost <= ZeroCostEpsilon {
		return ir.Unbounded
	}
	if available <= 0 || math.IsNaN(available) {
		return 0
	}
	n := math.Floor(available / unitCost)
	if n >= math.MaxInt64 {
		return ir.Unbounded
	}
	return int64(n)
}

// OutputLimit returns the largest c <= upper such that inserting c units of
// unitOutput as one combined stack, in simulate mode, leaves nothing over.
//
// An empty unitOutput means the recipe has no output constraint and upper is
// returned unchanged. A nil sink accepts nothing.
func OutputLimit(sink Sink, unitOutput ir.Stack, upper int64) int64 {
	if unitOutput.IsEmpty() {
		return max(upper, 0)
	}
	if sink == nil || upper <= 0 {
		return 0
	}

	fits := func(c int64) bool {
		q, ok := ir.MulClamp(c, unitOutput.Count)
		if !ok {
			return false
		}
		return sink.TryInsert(unitOutput.WithCount(q), true) <= 0
	}

	// Common case: everything fits in one simulated insert.
	if fits(upper) {
		return upper
	}

	// Invariant: fits(lo) holds (0 trivially), fits(hi+1) does not.
	lo, hi := int64(0), upper-1
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		if fits(mid) {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// Chain is a Sink that offers each stack to Primary and forwards the
// leftover to Secondary. A nil Secondary forwards nothing.
type Chain struct {
	Primary   Sink
	Secondary Sink
}

// TryInsert implements Sink.
func (c Chain) TryInsert(stack ir.Stack, simulate bool) int64 {
	left := stack.Count
	if c.Primary != nil {
		left = c.Primary.TryInsert(stack, simulate)
	}
	if left > 0 && c.Secondary != nil {
		left = c.Secondary.TryInsert(stack.WithCount(left), simulate)
	}
	return left
}
