package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/overclock/internal/ir"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEvent creates a content-addressed event with minimal fields.
func createTestEvent(runID, nodeID string, seq int64, kind ir.EventKind) ir.StepEvent {
	ev := ir.StepEvent{
		Seq:       seq,
		RunID:     runID,
		NodeID:    nodeID,
		Step:      1,
		Kind:      kind,
		Recipe:    "inscriber/printed_silicon",
		Requested: 4,
		Resolved:  4,
		Bound:     ir.BoundFactor,
		Limits:    ir.Limits{Material: 10, Output: 4, Energy: 100},
	}
	if kind == ir.EventExtra || kind == ir.EventInstant {
		ev.Committed = 4
		ev.Energy = 40_000
	}
	ev.ID = ir.MustStepEventID(ev)
	return ev
}
