package energy

import "sync"

// Buffer is an in-memory energy store with a capacity.
// It is the local tier of a Ledger for the reference host.
type Buffer struct {
	mu       sync.Mutex
	stored   float64
	capacity float64
}

// NewBuffer creates a buffer holding stored energy, clamped to capacity.
func NewBuffer(stored, capacity float64) *Buffer {
	b := &Buffer{capacity: max(capacity, 0)}
	b.stored = min(max(stored, 0), b.capacity)
	return b
}

// Extract implements Source.
func (b *Buffer) Extract(amount float64, simulate bool) float64 {
	if amount <= 0 {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	out := min(amount, b.stored)
	if !simulate {
		b.stored -= out
	}
	return out
}

// Insert adds up to amount and returns what was (or would be) accepted.
func (b *Buffer) Insert(amount float64, simulate bool) float64 {
	if amount <= 0 {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	in := min(amount, b.capacity-b.stored)
	if in < 0 {
		in = 0
	}
	if !simulate {
		b.stored += in
	}
	return in
}

// Stored returns the energy currently held.
func (b *Buffer) Stored() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stored
}

// Capacity returns the buffer capacity.
func (b *Buffer) Capacity() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.capacity
}

// SetCapacity changes the capacity. Stored energy above the new capacity is
// discarded, the way a machine loses charge when its energy card is pulled.
func (b *Buffer) SetCapacity(capacity float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.capacity = max(capacity, 0)
	if b.stored > b.capacity {
		b.stored = b.capacity
	}
}
