package energy

import "math"

// Tolerance absorbs float rounding when comparing extracted and requested
// energy.
const Tolerance = 0.01

// Source is anything energy can be extracted from.
//
// Extract removes up to amount and returns what was (or, when simulate is
// true, would be) extracted. A simulated extraction never changes state.
type Source interface {
	Extract(amount float64, simulate bool) float64
}

// Ledger is the ordered pair (local, pooled). Either side may be nil, which
// behaves like an empty source.
type Ledger struct {
	Local  Source
	Pooled Source
}

// Available reports the energy extractable from both sources combined.
func (l Ledger) Available() float64 {
	return peek(l.Local, math.MaxFloat64) + peek(l.Pooled, math.MaxFloat64)
}

// Withdrawable reports the largest amount a single TryWithdraw can cover.
// Since an amount is never split, that is the larger of the two sources,
// not their sum.
func (l Ledger) Withdrawable() float64 {
	return max(peek(l.Local, math.MaxFloat64), peek(l.Pooled, math.MaxFloat64))
}

// CanWithdraw reports whether TryWithdraw(amount) would succeed right now.
func (l Ledger) CanWithdraw(amount float64) bool {
	if amount <= 0 {
		return true
	}
	return sufficient(peek(l.Local, amount), amount) || sufficient(peek(l.Pooled, amount), amount)
}

// TryWithdraw withdraws amount from the local source if it can cover all of
// it, otherwise from the pooled source. It returns false with no state
// change when neither can. The amount is never split across sources.
func (l Ledger) TryWithdraw(amount float64) bool {
	if amount <= 0 {
		return true
	}
	if l.Local != nil && sufficient(l.Local.Extract(amount, true), amount) {
		l.Local.Extract(amount, false)
		return true
	}
	if l.Pooled != nil && sufficient(l.Pooled.Extract(amount, true), amount) {
		l.Pooled.Extract(amount, false)
		return true
	}
	return false
}

func peek(s Source, amount float64) float64 {
	if s == nil {
		return 0
	}
	return s.Extract(amount, true)
}

func sufficient(extracted, amount float64) bool {
	return extracted >= amount-Tolerance
}
