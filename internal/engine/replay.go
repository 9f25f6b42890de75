package engine

import (
	"fmt"

	"github.com/roach88/overclock/internal/ir"
	"github.com/roach88/overclock/internal/resolve"
)

// ReplayReport is the result of replaying a journaled run.
type ReplayReport struct {
	RunID      string
	Events     int
	Mismatches []*ReplayError
}

// OK reports whether the replay found no discrepancies.
func (r ReplayReport) OK() bool {
	return len(r.Mismatches) == 0
}

// Err returns the first mismatch, or nil.
func (r ReplayReport) Err() error {
	if r.OK() {
		return nil
	}
	return r.Mismatches[0]
}

// Replay checks a journaled run for determinism.
//
// Every event carries the limits its plan was resolved from. Resolution is a
// pure function of those limits and the requested factor, so re-resolving
// them must give the recorded count and bound. Replay also recomputes each
// content-addressed ID and checks that seq numbers increase and that no
// event committed more than it resolved.
//
// events must be in journal order (store.ReadRun returns them that way).
func Replay(runID string, events []ir.StepEvent) ReplayReport {
	report := ReplayReport{RunID: runID, Events: len(events)}
	fail := func(ev ir.StepEvent, code ReplayErrorCode, msg string) {
		report.Mismatches = append(report.Mismatches, &ReplayError{
			Code:    code,
			Message: msg,
			RunID:   runID,
			Seq:     ev.Seq,
		})
	}

	var lastSeq int64
	for i, ev := range events {
		if ev.RunID != runID {
			fail(ev, ErrCodeRunMismatch, fmt.Sprintf("event belongs to run %q", ev.RunID))
			continue
		}
		if i > 0 && ev.Seq <= lastSeq {
			fail(ev, ErrCodeOrder, fmt.Sprintf("seq %d follows %d", ev.Seq, lastSeq))
		}
		lastSeq = ev.Seq

		if id, err := ir.StepEventID(ev); err != nil || id != ev.ID {
			fail(ev, ErrCodeIDMismatch, fmt.Sprintf("stored id %s does not match content", ev.ID))
		}

		if ev.Committed > ev.Resolved {
			fail(ev, ErrCodeOvercommit, fmt.Sprintf("committed %d of %d resolved", ev.Committed, ev.Resolved))
		}

		// Plans rejected before probing carry no limits.
		if ev.Bound == ir.BoundNone {
			if ev.Resolved != 0 {
				report.Mismatches = append(report.Mismatches, NewPlanMismatch(runID, ev.Seq, ev.Resolved, 0))
			}
			continue
		}
		replayed := resolve.Combine(ev.Requested, 0, ev.Limits)
		if replayed.Resolved != ev.Resolved {
			report.Mismatches = append(report.Mismatches, NewPlanMismatch(runID, ev.Seq, ev.Resolved, replayed.Resolved))
			continue
		}
		if replayed.Bound != ev.Bound {
			fail(ev, ErrCodePlanMismatch, fmt.Sprintf("recorded bound %s, replayed %s", ev.Bound, replayed.Bound))
		}
	}
	return report
}
