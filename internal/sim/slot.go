package sim

import "github.com/roach88/overclock/internal/ir"

// Slot holds a single stack up to a limit. It serves both as an input
// container and as an output sink.
type Slot struct {
	stack ir.Stack
	limit int64
}

// NewSlot creates a slot holding stack with the given limit. A limit <= 0
// is unlimited.
func NewSlot(stack ir.Stack, limit int64) *Slot {
	if limit <= 0 {
		limit = ir.Unbounded
	}
	if stack.Count < 0 {
		stack.Count = 0
	}
	return &Slot{stack: stack, limit: limit}
}

// Stack returns the slot contents.
func (s *Slot) Stack() ir.Stack {
	return s.stack
}

// Limit returns the slot limit.
func (s *Slot) Limit() int64 {
	return s.limit
}

// SetLimit changes the limit. Items above a lowered limit stay in the slot
// but nothing more is accepted until it drains.
func (s *Slot) SetLimit(limit int64) {
	if limit <= 0 {
		limit = ir.Unbounded
	}
	s.limit = limit
}

// QuantityOf implements commit.Container.
func (s *Slot) QuantityOf(kind ir.Kind) int64 {
	if s.stack.Kind != kind {
		return 0
	}
	return max(s.stack.Count, 0)
}

// Withdraw implements commit.Container.
func (s *Slot) Withdraw(kind ir.Kind, amount int64, simulate bool) int64 {
	if amount <= 0 || s.stack.Kind != kind {
		return 0
	}
	n := min(amount, s.stack.Count)
	if !simulate {
		s.stack.Count -= n
	}
	return n
}

// TryInsert implements resolve.Sink. A slot holding another kind rejects
// the whole stack.
func (s *Slot) TryInsert(stack ir.Stack, simulate bool) int64 {
	if stack.IsEmpty() {
		return 0
	}
	if s.stack.Count > 0 && s.stack.Kind != stack.Kind {
		return stack.Count
	}
	accepted := min(stack.Count, max(s.limit-s.stack.Count, 0))
	if !simulate && accepted > 0 {
		s.stack.Kind = stack.Kind
		s.stack.Count += accepted
	}
	return stack.Count - accepted
}

// Take removes up to n items and returns how many were removed.
func (s *Slot) Take(n int64) int64 {
	n = min(max(n, 0), s.stack.Count)
	s.stack.Count -= n
	return n
}
