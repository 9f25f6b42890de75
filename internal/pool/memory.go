package pool

import (
	"context"
	"math"
	"sync"

	"github.com/roach88/overclock/internal/energy"
	"github.com/roach88/overclock/internal/ir"
	"github.com/roach88/overclock/internal/resolve"
)

// Memory is an in-process pool.
type Memory struct {
	mu       sync.Mutex
	items    map[ir.Kind]int64
	capacity int64 // total items; negative is unlimited
	energy   *energy.Buffer
}

// NewMemory creates a pool holding up to capacity items in total (negative
// for unlimited) and the given stored energy, with unlimited energy capacity.
func NewMemory(capacity int64, stored float64) *Memory {
	return &Memory{
		items:    make(map[ir.Kind]int64),
		capacity: capacity,
		energy:   energy.NewBuffer(stored, math.MaxFloat64),
	}
}

// Insert adds up to count items of kind and returns the leftover.
func (m *Memory) Insert(_ context.Context, kind ir.Kind, count int64, simulate bool) (int64, error) {
	if count <= 0 {
		return 0, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	accepted := count
	if m.capacity >= 0 {
		var total int64
		for _, n := range m.items {
			total += n
		}
		accepted = min(accepted, max(m.capacity-total, 0))
	}
	if !simulate && accepted > 0 {
		m.items[kind] += accepted
	}
	return count - accepted, nil
}

// ExtractEnergy removes up to amount of pooled energy.
func (m *Memory) ExtractEnergy(_ context.Context, amount float64, simulate bool) (float64, error) {
	return m.energy.Extract(amount, simulate), nil
}

// DepositEnergy adds energy to the pool.
func (m *Memory) DepositEnergy(_ context.Context, amount float64) error {
	m.energy.Insert(amount, false)
	return nil
}

// Quantity returns how many items of kind the pool holds.
func (m *Memory) Quantity(_ context.Context, kind ir.Kind) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[kind], nil
}

// Energy returns the pooled energy.
func (m *Memory) Energy(_ context.Context) (float64, error) {
	return m.energy.Stored(), nil
}

// Sink adapts the pool to resolve.Sink.
func (m *Memory) Sink(ctx context.Context) resolve.Sink {
	return sink{backend: m, ctx: ctx}
}

// EnergySource adapts the pool to energy.Source.
func (m *Memory) EnergySource(ctx context.Context) energy.Source {
	return source{backend: m, ctx: ctx}
}
