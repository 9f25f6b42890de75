package engine

import (
	"github.com/roach88/overclock/internal/commit"
	"github.com/roach88/overclock/internal/energy"
	"github.com/roach88/overclock/internal/ir"
	"github.com/roach88/overclock/internal/resolve"
)

// Machine is the adapter a host processing node implements.
//
// Upgrades are found through upgrade.FindInventory, so a Machine either
// implements upgrade.Holder itself or leads to one through the lookup
// strategies. A Machine with no reachable inventory is never accelerated.
type Machine interface {
	// ID identifies the node. Sessions are keyed by it.
	ID() string

	// Recipe returns the recipe the current inputs would run.
	Recipe() (ir.RecipeUnit, bool)

	// Inputs returns the material containers in drain order.
	Inputs() []commit.Container

	// Output is the primary output sink. Overflow is the secondary sink and
	// may be nil.
	Output() resolve.Sink
	Overflow() resolve.Sink

	// Energy returns the node's ledger (local buffer, then pooled).
	Energy() energy.Ledger

	// Progress is the host's native single-unit progress counter.
	Progress() int64
}

// InstantCapable is implemented by hosts whose native progress the engine
// may reset. Only these support instant completion.
type InstantCapable interface {
	ResetProgress()
}

// ResetMarker is implemented by hosts whose progress does not reset to 0
// when a unit completes.
type ResetMarker interface {
	ResetValue() int64
}

// CompletionCounter is implemented by hosts that count the units their
// native logic completes. When present, a step completed a unit if the count
// advanced since the plan was armed, which also covers hosts that finish a
// unit within a single step.
type CompletionCounter interface {
	Completed() int64
}

func completions(m Machine) int64 {
	if c, ok := m.(CompletionCounter); ok {
		return c.Completed()
	}
	return 0
}

// completedUnit reports whether the host completed its own unit since s was
// armed. Without a CompletionCounter the edge is progress moving from a
// non-reset marker to the reset value.
func completedUnit(m Machine, s *Session) bool {
	if c, ok := m.(CompletionCounter); ok {
		return c.Completed() > s.Completions
	}
	reset := resetValue(m)
	return s.Marker != reset && m.Progress() == reset
}

func resetValue(m Machine) int64 {
	if r, ok := m.(ResetMarker); ok {
		return r.ResetValue()
	}
	return 0
}

func target(m Machine) commit.Target {
	return commit.Target{
		Inputs:    m.Inputs(),
		Primary:   m.Output(),
		Secondary: m.Overflow(),
		Energy:    m.Energy(),
	}
}
