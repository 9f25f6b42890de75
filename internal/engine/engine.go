package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/overclock/internal/commit"
	"github.com/roach88/overclock/internal/config"
	"github.com/roach88/overclock/internal/ir"
	"github.com/roach88/overclock/internal/resolve"
	"github.com/roach88/overclock/internal/upgrade"
)

// Decision tells the host what to do with its own step logic.
type Decision int

const (
	// Native means the host runs its own step logic unmodified.
	Native Decision = iota

	// Skip means the engine already did this step's work; the host must not
	// run its own logic.
	Skip
)

// String returns the decision name.
func (d Decision) String() string {
	if d == Skip {
		return "skip"
	}
	return "native"
}

// Engine is the step-phase synchronizer for any number of nodes.
//
// Not safe for concurrent use: one driver goroutine owns it.
type Engine struct {
	logger     *slog.Logger
	committer  *commit.Committer
	recorder   Recorder
	clock      Sequencer
	runID      string
	cfg        config.Config
	strategies []upgrade.Strategy
	sessions   map[string]*Session
	guard      *Guard
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithRecorder sets where step events go. Use Recorders to fan out.
func WithRecorder(r Recorder) EngineOption {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithConfig sets the configuration ceilings. Defaults to config.Default().
func WithConfig(c config.Config) EngineOption {
	return func(e *Engine) {
		e.cfg = c
	}
}

// WithClock sets the logical clock, e.g. NewClockAt to continue a
// journaled run.
func WithClock(c Sequencer) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithRunIDGenerator sets the generator the run ID is drawn from.
// Defaults to UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) EngineOption {
	return func(e *Engine) {
		e.runID = g.Generate()
	}
}

// WithStrategies sets the owner lookup strategies used to find a node's
// upgrade inventory. Defaults to upgrade.DefaultStrategies.
func WithStrategies(s ...upgrade.Strategy) EngineOption {
	return func(e *Engine) {
		e.strategies = s
	}
}

// New creates an Engine.
func New(opts ...EngineOption) *Engine {
	e := &Engine{
		logger:   slog.Default(),
		clock:    NewClock(),
		cfg:      config.Default(),
		sessions: make(map[string]*Session),
		guard:    NewGuard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.runID == "" {
		e.runID = UUIDv7Generator{}.Generate()
	}
	if e.recorder == nil {
		e.recorder = Recorders()
	}
	e.committer = commit.New(commit.WithLogger(e.logger))
	return e
}

// RunID returns the run ID stamped on every event.
func (e *Engine) RunID() string {
	return e.runID
}

// Clock returns the engine's logical clock.
func (e *Engine) Clock() Sequencer {
	return e.clock
}

// Config returns the configuration in effect.
func (e *Engine) Config() config.Config {
	return e.cfg
}

// Session returns a copy of the session for nodeID.
func (e *Engine) Session(nodeID string) (Session, bool) {
	s, ok := e.sessions[nodeID]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Forget drops the session of a node that left the simulation.
func (e *Engine) Forget(nodeID string) {
	delete(e.sessions, nodeID)
}

// BeginStep runs before the host's own step logic.
func (e *Engine) BeginStep(ctx context.Context, m Machine) Decision {
	id := m.ID()
	if e.guard.Active(id) {
		return Native
	}

	s := e.session(id)
	s.Step++
	if s.Phase == PhaseArmed {
		// EndStep was never called for the previous step.
		e.emit(ctx, s, ir.EventExpired, s.Recipe.ID, s.Plan, commit.Outcome{})
		s.clear()
	}

	inv, ok := upgrade.FindInventory(m, e.strategies...)
	if !ok {
		s.clear()
		return Native
	}
	tier, accelerated := inv.AccelerationTier()
	resetter, resettable := m.(InstantCapable)
	instant := inv.Instant() && resettable
	if !accelerated && !instant {
		s.clear()
		return Native
	}

	marker := m.Progress()
	recipe, ok := m.Recipe()
	if !ok || !recipe.Valid() {
		s.clear()
		return Native
	}

	factor := int64(1)
	if accelerated {
		factor = tier.Multiplier(e.cfg.MaxFactor())
	}
	plan := e.resolve(m, recipe, factor, m.Energy().Available())

	if instant {
		return e.instant(ctx, m, s, resetter, recipe, plan)
	}

	s.arm(recipe, plan, marker, completions(m))
	e.logger.Debug("plan armed",
		"node_id", id,
		"step", s.Step,
		"recipe", recipe.ID,
		"requested", plan.Requested,
		"resolved", plan.Resolved,
		"bound", string(plan.Bound),
	)
	e.emit(ctx, s, ir.EventArmed, recipe.ID, plan, commit.Outcome{})
	return Native
}

// EndStep runs after the host's own step logic. If the host completed its
// own unit during this step, the remaining repetitions of the armed plan
// are committed.
func (e *Engine) EndStep(ctx context.Context, m Machine) {
	id := m.ID()
	if e.guard.Active(id) {
		return
	}
	s, ok := e.sessions[id]
	if !ok || s.Phase != PhaseArmed {
		return
	}
	defer s.clear()

	if !completedUnit(m, s) {
		e.logger.Debug("no completion edge",
			"node_id", id,
			"step", s.Step,
			"marker", s.Marker,
		)
		e.emit(ctx, s, ir.EventExpired, s.Recipe.ID, s.Plan, commit.Outcome{})
		return
	}

	extras := s.Plan.Resolved - 1
	if extras <= 0 {
		return
	}

	if !e.guard.Enter(id) {
		return
	}
	defer e.guard.Leave(id)
	s.Phase = PhaseCommitting

	e.commitExtras(ctx, m, s, extras)
}

// commitExtras commits up to extras repetitions in chunks. Each chunk is
// resolved against the resources as they are now, capped at what is still
// owed, with energy limited to what one ledger source can pay. The loop
// stops at the first chunk that cannot run in full.
func (e *Engine) commitExtras(ctx context.Context, m Machine, s *Session, extras int64) {
	remaining := extras
	var committed int64
	for remaining > 0 {
		plan := e.resolveChunk(m, s.Recipe, remaining)
		if plan.Resolved <= 0 {
			e.emit(ctx, s, ir.EventAborted, s.Recipe.ID, plan, commit.Outcome{Reason: reasonFor(plan)})
			break
		}

		out := e.committer.Commit(target(m), s.Recipe, plan.Resolved)
		if out.Aborted() {
			e.logger.Warn("extra commit aborted",
				"node_id", s.NodeID,
				"step", s.Step,
				"reason", string(out.Reason),
			)
			e.emit(ctx, s, ir.EventAborted, s.Recipe.ID, plan, out)
			break
		}

		e.emit(ctx, s, ir.EventExtra, s.Recipe.ID, plan, out)
		committed += out.Committed
		remaining -= out.Committed
		if out.Committed < plan.Resolved || out.Committed == 0 {
			break
		}
	}

	e.logger.Info("extras committed",
		"node_id", s.NodeID,
		"step", s.Step,
		"recipe", s.Recipe.ID,
		"planned", extras,
		"committed", committed,
	)
}

// instant commits the full plan in this step and resets host progress.
func (e *Engine) instant(ctx context.Context, m Machine, s *Session, resetter InstantCapable, recipe ir.RecipeUnit, plan ir.BatchPlan) Decision {
	defer s.clear()

	if plan.Resolved <= 0 {
		e.emit(ctx, s, ir.EventAborted, recipe.ID, plan, commit.Outcome{Reason: reasonFor(plan)})
		return Native
	}

	if !e.guard.Enter(s.NodeID) {
		return Native
	}
	defer e.guard.Leave(s.NodeID)
	s.Phase = PhaseCommitting

	out, last := e.commitChunks(m, recipe, plan.Resolved)
	if out.Committed == 0 {
		if out.Reason == commit.ReasonNone {
			out.Reason = reasonFor(last)
		}
		e.logger.Warn("instant commit aborted",
			"node_id", s.NodeID,
			"step", s.Step,
			"reason", string(out.Reason),
		)
		e.emit(ctx, s, ir.EventAborted, recipe.ID, plan, out)
		return Native
	}

	resetter.ResetProgress()
	e.logger.Info("instant batch committed",
		"node_id", s.NodeID,
		"step", s.Step,
		"recipe", recipe.ID,
		"committed", out.Committed,
		"bound", string(plan.Bound),
	)
	e.emit(ctx, s, ir.EventInstant, recipe.ID, plan, out)
	return Skip
}

// commitChunks commits up to want repetitions as a sequence of chunks sized
// by resolveChunk, so a batch can be paid from local and pooled energy in
// turn. It returns the summed outcome and the last chunk plan.
func (e *Engine) commitChunks(m Machine, recipe ir.RecipeUnit, want int64) (commit.Outcome, ir.BatchPlan) {
	var total commit.Outcome
	var plan ir.BatchPlan
	for total.Committed < want {
		plan = e.resolveChunk(m, recipe, want-total.Committed)
		if plan.Resolved <= 0 {
			break
		}
		out := e.committer.Commit(target(m), recipe, plan.Resolved)
		total.Committed += out.Committed
		total.Energy += out.Energy
		total.Consumed += out.Consumed
		total.Produced += out.Produced
		total.Overflowed += out.Overflowed
		total.Stranded += out.Stranded
		total.Reason = out.Reason
		if out.Committed < plan.Resolved || out.Committed == 0 {
			break
		}
	}
	return total, plan
}

// resolveChunk resolves the largest chunk a single commit can pay for. A
// debit never spans both ledger sources.
func (e *Engine) resolveChunk(m Machine, recipe ir.RecipeUnit, factor int64) ir.BatchPlan {
	return e.resolve(m, recipe, factor, m.Energy().Withdrawable())
}

// resolve snapshots the node's material and output space and resolves a
// plan against the given energy.
func (e *Engine) resolve(m Machine, recipe ir.RecipeUnit, factor int64, available float64) ir.BatchPlan {
	inputs := m.Inputs()
	supplies := make([]resolve.Supply, len(recipe.Inputs))
	for i, req := range recipe.Inputs {
		supplies[i] = resolve.Supply{
			Available: commit.Available(inputs, req),
			PerUnit:   req.Count,
		}
	}
	return resolve.Resolve(resolve.Request{
		Factor:   factor,
		Inputs:   supplies,
		Output:   recipe.Output,
		Sink:     resolve.Chain{Primary: m.Output(), Secondary: m.Overflow()},
		Energy:   available,
		UnitCost: recipe.Energy,
	})
}

func (e *Engine) session(id string) *Session {
	s, ok := e.sessions[id]
	if !ok {
		s = &Session{NodeID: id}
		e.sessions[id] = s
	}
	return s
}

func (e *Engine) emit(ctx context.Context, s *Session, kind ir.EventKind, recipeID string, plan ir.BatchPlan, out commit.Outcome) {
	ev := ir.StepEvent{
		Seq:       e.clock.Next(),
		RunID:     e.runID,
		NodeID:    s.NodeID,
		Step:      s.Step,
		Kind:      kind,
		Recipe:    recipeID,
		Requested: plan.Requested,
		Resolved:  plan.Resolved,
		Committed: out.Committed,
		Energy:    ir.MilliEnergy(out.Energy),
		Bound:     plan.Bound,
		Reason:    string(out.Reason),
		Limits:    plan.Limits,
	}
	id, err := ir.StepEventID(ev)
	if err != nil {
		e.logger.Error("step event id failed", "node_id", s.NodeID, "seq", ev.Seq, "error", err)
		return
	}
	ev.ID = id

	// Recorder failures are logged and the step goes on: the resources have
	// already moved.
	if err := e.recorder.Record(ctx, ev); err != nil {
		e.logger.Error("step event not recorded",
			"node_id", s.NodeID,
			"seq", ev.Seq,
			"kind", string(kind),
			"error", err,
		)
	}
}

// reasonFor names why a zero plan could not run.
func reasonFor(plan ir.BatchPlan) commit.Reason {
	switch {
	case plan.Requested <= 0:
		return commit.ReasonEmptyPlan
	case plan.Limits.Material == 0:
		return commit.ReasonInsufficientMaterial
	case plan.Limits.Energy == 0:
		return commit.ReasonInsufficientEnergy
	case plan.Limits.Output == 0:
		return commit.ReasonOutputRejected
	}
	return commit.ReasonEmptyPlan
}
