package commit

import (
	"log/slog"

	"github.com/roach88/overclock/internal/energy"
	"github.com/roach88/overclock/internal/ir"
	"github.com/roach88/overclock/internal/resolve"
)

// Container holds input material.
type Container interface {
	QuantityOf(kind ir.Kind) int64
	Withdraw(kind ir.Kind, amount int64, simulate bool) int64
}

// Reason explains why a commit did less than planned.
type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonEmptyPlan            Reason = "empty_plan"
	ReasonInsufficientEnergy   Reason = "insufficient_energy"
	ReasonInsufficientMaterial Reason = "insufficient_material"
	ReasonOutputRejected       Reason = "output_rejected"
)

// Target is everything a commit touches on one node.
type Target struct {
	Inputs    []Container
	Primary   resolve.Sink
	Secondary resolve.Sink
	Energy    energy.Ledger
}

// Outcome reports what a commit actually did.
type Outcome struct {
	// Committed is the number of repetitions whose output was accepted.
	Committed int64

	// Energy is the amount debited from the ledger.
	Energy float64

	// Consumed is the total material withdrawn across all inputs.
	Consumed int64

	// Produced and Overflowed split the accepted output between the primary
	// and secondary sinks. Stranded is output neither sink accepted.
	Produced   int64
	Overflowed int64
	Stranded   int64

	Reason Reason
}

// Aborted reports whether the commit stopped before touching any resource.
func (o Outcome) Aborted() bool {
	return o.Reason != ReasonNone && o.Consumed == 0
}

// Committer executes batches.
type Committer struct {
	logger *slog.Logger
}

// Option configures a Committer.
type Option func(*Committer)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Committer) {
		c.logger = l
	}
}

// New creates a Committer.
func New(opts ...Option) *Committer {
	c := &Committer{logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Available sums what the containers hold of every kind the requirement
// accepts.
func Available(inputs []Container, req ir.Requirement) int64 {
	var total int64
	for _, c := range inputs {
		for _, k := range req.Accepts {
			q := c.QuantityOf(k)
			if q <= 0 {
				continue
			}
			if total > ir.Unbounded-q {
				return ir.Unbounded
			}
			total += q
		}
	}
	return total
}

// Commit executes p repetitions of recipe against t.
func (c *Committer) Commit(t Target, recipe ir.RecipeUnit, p int64) Outcome {
	if p <= 0 || !recipe.Valid() {
		return Outcome{Reason: ReasonEmptyPlan}
	}

	needs := make([]int64, len(recipe.Inputs))
	for i, req := range recipe.Inputs {
		need, ok := ir.MulClamp(p, req.Count)
		if !ok || drain(t.Inputs, req, need, true) < need {
			return c.abort(recipe, p, ReasonInsufficientMaterial)
		}
		needs[i] = need
	}

	var quantity int64
	if !recipe.Output.IsEmpty() {
		q, ok := ir.MulClamp(p, recipe.Output.Count)
		if !ok {
			return c.abort(recipe, p, ReasonOutputRejected)
		}
		quantity = q
		chain := resolve.Chain{Primary: t.Primary, Secondary: t.Secondary}
		if chain.TryInsert(recipe.Output.WithCount(quantity), true) > 0 {
			return c.abort(recipe, p, ReasonOutputRejected)
		}
	}

	cost := float64(p) * recipe.Energy
	if !t.Energy.CanWithdraw(cost) {
		return c.abort(recipe, p, ReasonInsufficientEnergy)
	}

	// Everything is simulated. Energy is debited before any material moves.
	if !t.Energy.TryWithdraw(cost) {
		return c.abort(recipe, p, ReasonInsufficientEnergy)
	}

	out := Outcome{Committed: p, Energy: max(cost, 0)}

	for i, req := range recipe.Inputs {
		got := drain(t.Inputs, req, needs[i], false)
		out.Consumed += got
		if got < needs[i] {
			// The simulation said this could not happen: a container changed
			// between simulate and withdraw.
			c.logger.Error("material shortfall after simulate",
				"recipe", recipe.ID,
				"need", needs[i],
				"got", got,
			)
			out.Committed = min(out.Committed, got/req.Count)
			out.Reason = ReasonInsufficientMaterial
		}
	}

	if recipe.Output.IsEmpty() {
		return out
	}

	if out.Committed < p {
		quantity = out.Committed * recipe.Output.Count
	}
	stack := recipe.Output.WithCount(quantity)

	left := quantity
	if t.Primary != nil {
		left = t.Primary.TryInsert(stack, false)
	}
	out.Produced = quantity - left
	if left > 0 && t.Secondary != nil {
		rest := t.Secondary.TryInsert(stack.WithCount(left), false)
		out.Overflowed = left - rest
		left = rest
	}

	if left > 0 {
		accepted := out.Produced + out.Overflowed
		out.Committed = accepted / recipe.Output.Count
		out.Stranded = left
		out.Reason = ReasonOutputRejected
		c.logger.Error("output stranded after simulate",
			"recipe", recipe.ID,
			"stranded", left,
			"committed", out.Committed,
		)
	}
	return out
}

func (c *Committer) abort(recipe ir.RecipeUnit, p int64, reason Reason) Outcome {
	c.logger.Debug("commit aborted",
		"recipe", recipe.ID,
		"repetitions", p,
		"reason", string(reason),
	)
	return Outcome{Reason: reason}
}

// drain withdraws up to need of the requirement, walking containers in
// order and, within each container, accepted kinds in order.
func drain(inputs []Container, req ir.Requirement, need int64, simulate bool) int64 {
	var got int64
	for _, c := range inputs {
		for _, k := range req.Accepts {
			if got >= need {
				return got
			}
			got += max(c.Withdraw(k, need-got, simulate), 0)
		}
	}
	return got
}
