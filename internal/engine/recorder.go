package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/overclock/internal/ir"
)

// Recorder receives every step event the engine emits.
//
// Implemented by store.Store (journal), metrics.Recorder and MemoryRecorder.
type Recorder interface {
	Record(ctx context.Context, ev ir.StepEvent) error
}

// multiRecorder fans one event out to several recorders.
type multiRecorder []Recorder

func (m multiRecorder) Record(ctx context.Context, ev ir.StepEvent) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorders combines recorders; nil entries are skipped. Every recorder sees
// every event even if an earlier one fails.
func Recorders(rs ...Recorder) Recorder {
	out := make(multiRecorder, 0, len(rs))
	for _, r := range rs {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// MemoryRecorder keeps events in memory.
type MemoryRecorder struct {
	mu     sync.Mutex
	events []ir.StepEvent
}

// NewMemoryRecorder creates an empty MemoryRecorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// Record implements Recorder.
func (m *MemoryRecorder) Record(_ context.Context, ev ir.StepEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, ev)
	return nil
}

// Events returns a copy of the recorded events in emission order.
func (m *MemoryRecorder) Events() []ir.StepEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ir.StepEvent, len(m.events))
	copy(out, m.events)
	return out
}

// Reset drops all recorded events.
func (m *MemoryRecorder) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = nil
}
