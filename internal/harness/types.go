package harness

import "github.com/roach88/overclock/internal/ir"

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every assertion held and the journal replayed
	// cleanly.
	Pass bool `json:"pass"`

	RunID string `json:"run_id"`

	// Trace is every step event in emission order.
	Trace []ir.StepEvent `json:"trace"`

	Errors []string `json:"errors,omitempty"`

	// State is the final state of each node, keyed by node ID.
	State map[string]NodeState `json:"state,omitempty"`
}

// NodeState is a node's counters after the last step.
type NodeState struct {
	Output      ir.Stack   `json:"output"`
	Inputs      []ir.Stack `json:"inputs"`
	Energy      float64    `json:"energy"`
	Progress    int64      `json:"progress"`
	Completed   int64      `json:"completed"`
	StoredItems int64      `json:"stored_items"`
}

// NewResult creates a passing result.
func NewResult(runID string) *Result {
	return &Result{
		Pass:   true,
		RunID:  runID,
		Trace:  []ir.StepEvent{},
		Errors: []string{},
		State:  make(map[string]NodeState),
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
