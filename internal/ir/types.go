package ir

import "slices"

// Kind identifies a material or product kind, e.g. "ae2:silicon".
type Kind string

// Stack is a quantity of a single kind.
type Stack struct {
	Kind  Kind  `json:"kind"`
	Count int64 `json:"count"`
}

// IsEmpty reports whether the stack carries nothing.
func (s Stack) IsEmpty() bool {
	return s.Kind == "" || s.Count <= 0
}

// WithCount returns a copy of the stack holding n items.
func (s Stack) WithCount(n int64) Stack {
	return Stack{Kind: s.Kind, Count: n}
}

// Requirement is the per-repetition need for one input slot.
//
// Accepts lists the kinds that satisfy the requirement in preference order.
// Containers are drained in that order when a batch is consumed.
type Requirement struct {
	Accepts []Kind `json:"accepts"`
	Count   int64  `json:"count"`
}

// Matches is the kind-match predicate for the requirement.
func (r Requirement) Matches(k Kind) bool {
	return slices.Contains(r.Accepts, k)
}

// RecipeUnit describes one repetition of a recipe.
// It is immutable for the duration of one resolution.
type RecipeUnit struct {
	ID     string        `json:"id"`
	Inputs []Requirement `json:"inputs"`
	Output Stack         `json:"output"`

	// Energy is the fixed cost of one repetition.
	Energy float64 `json:"energy"`

	// Steps is the number of host steps one native repetition takes.
	// Only the host's own progress tracker reads it.
	Steps int64 `json:"steps,omitempty"`
}

// Valid reports whether the recipe can be resolved at all.
func (r RecipeUnit) Valid() bool {
	if len(r.Inputs) == 0 {
		return false
	}
	for _, in := range r.Inputs {
		if in.Count <= 0 || len(in.Accepts) == 0 {
			return false
		}
	}
	return true
}
