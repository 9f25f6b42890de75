package ir

import "math"

// EventKind classifies a step event.
type EventKind string

const (
	// EventArmed records a plan cached at step start on the acceleration path.
	EventArmed EventKind = "armed"

	// EventInstant records a full batch committed at step start.
	EventInstant EventKind = "instant"

	// EventExtra records the extra repetitions committed after the host
	// completed its own unit.
	EventExtra EventKind = "extra"

	// EventAborted records a commit that stopped before doing any work.
	EventAborted EventKind = "aborted"

	// EventExpired records an armed plan discarded because the host did not
	// complete a unit during the step.
	EventExpired EventKind = "expired"
)

// StepEvent is one journaled synchronizer transition.
//
// Energy is stored in milli-units so the event stays float-free for
// canonical JSON and content addressing.
type StepEvent struct {
	ID        string    `json:"id"`
	Seq       int64     `json:"seq"`
	RunID     string    `json:"run_id"`
	NodeID    string    `json:"node_id"`
	Step      int64     `json:"step"`
	Kind      EventKind `json:"kind"`
	Recipe    string    `json:"recipe,omitempty"`
	Requested int64     `json:"requested"`
	Resolved  int64     `json:"resolved"`
	Committed int64     `json:"committed"`
	Energy    int64     `json:"energy_milli"`
	Bound     Bound     `json:"bound"`
	Reason    string    `json:"reason,omitempty"`
	Limits    Limits    `json:"limits"`
}

// MilliEnergy converts an energy amount to rounded milli-units, clamped to
// the int64 range.
func MilliEnergy(amount float64) int64 {
	if amount <= 0 || math.IsNaN(amount) {
		return 0
	}
	v := math.Round(amount * 1000)
	if v >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}

// CanonicalMap returns the event as a map suitable for MarshalCanonical.
// The ID is excluded: it is derived from this map.
func (e StepEvent) CanonicalMap() map[string]any {
	m := map[string]any{
		"seq":          e.Seq,
		"run_id":       e.RunID,
		"node_id":      e.NodeID,
		"step":         e.Step,
		"kind":         string(e.Kind),
		"requested":    e.Requested,
		"resolved":     e.Resolved,
		"committed":    e.Committed,
		"energy_milli": e.Energy,
		"bound":        string(e.Bound),
		"limits": map[string]any{
			"material": e.Limits.Material,
			"output":   e.Limits.Output,
			"energy":   e.Limits.Energy,
		},
	}
	if e.Recipe != "" {
		m["recipe"] = e.Recipe
	}
	if e.Reason != "" {
		m["reason"] = e.Reason
	}
	return m
}
