package engine

import "github.com/roach88/overclock/internal/ir"

// Phase is the synchronizer state of one node.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseArmed
	PhaseCommitting
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseArmed:
		return "ARMED"
	case PhaseCommitting:
		return "COMMITTING"
	}
	return "UNKNOWN"
}

// Session is the per-node synchronizer state. It lives as long as the node.
type Session struct {
	NodeID string
	Phase  Phase

	// Step counts the host steps seen for this node.
	Step int64

	// Plan and Recipe are cached while ARMED.
	Plan   ir.BatchPlan
	Recipe ir.RecipeUnit

	// Marker is the host progress recorded at arm time, and Completions the
	// host's completed-unit count if it keeps one.
	Marker      int64
	Completions int64
}

func (s *Session) arm(recipe ir.RecipeUnit, plan ir.BatchPlan, marker, completions int64) {
	s.Phase = PhaseArmed
	s.Recipe = recipe
	s.Plan = plan
	s.Marker = marker
	s.Completions = completions
}

func (s *Session) clear() {
	s.Phase = PhaseIdle
	s.Recipe = ir.RecipeUnit{}
	s.Plan = ir.BatchPlan{}
	s.Marker = 0
	s.Completions = 0
}
