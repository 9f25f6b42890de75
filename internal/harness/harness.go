package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/overclock/internal/config"
	"github.com/roach88/overclock/internal/engine"
	"github.com/roach88/overclock/internal/ir"
	"github.com/roach88/overclock/internal/pool"
	"github.com/roach88/overclock/internal/sim"
	"github.com/roach88/overclock/internal/store"
	"github.com/roach88/overclock/internal/testutil"
	"github.com/roach88/overclock/internal/upgrade"
)

// Pool is a shared pool the harness can connect nodes to and inspect.
// pool.Memory and pool.Redis implement it.
type Pool interface {
	sim.Network
	Quantity(ctx context.Context, kind ir.Kind) (int64, error)
	Energy(ctx context.Context) (float64, error)
}

type options struct {
	cfg      config.Config
	store    *store.Store
	recorder engine.Recorder
	pool     Pool
	runIDs   engine.RunIDGenerator
	logger   *slog.Logger
}

// Option configures a run.
type Option func(*options)

// WithConfig sets the configuration the scenario's overrides apply to.
// Defaults to config.Default().
func WithConfig(c config.Config) Option {
	return func(o *options) {
		o.cfg = c
	}
}

// WithStore journals to st instead of a fresh in-memory store. The caller
// owns st.
func WithStore(st *store.Store) Option {
	return func(o *options) {
		o.store = st
	}
}

// WithRecorder adds a recorder that sees every event, e.g. a
// metrics.Recorder.
func WithRecorder(r engine.Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// WithPool connects networked nodes to p instead of an in-memory pool
// seeded from the scenario. The caller seeds p.
func WithPool(p Pool) Option {
	return func(o *options) {
		o.pool = p
	}
}

// WithRunIDGenerator overrides the scenario's fixed run ID.
func WithRunIDGenerator(g engine.RunIDGenerator) Option {
	return func(o *options) {
		o.runIDs = g
	}
}

// WithLogger sets the logger. Defaults to discarding everything.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Run executes a scenario with a background context.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	return RunContext(context.Background(), scenario, opts...)
}

// RunContext executes a scenario and evaluates its assertions.
//
// The returned error is for runs that could not execute at all (bad config
// overrides, unbuildable nodes, journal failures). Failed assertions and
// replay mismatches are reported in the Result.
func RunContext(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{
		cfg:    config.Default(),
		runIDs: testutil.NewFixedRunIDGenerator(scenario.RunID),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}

	cfg, err := o.cfg.Apply(scenario.Config)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	st := o.store
	if st == nil {
		st, err = store.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		defer st.Close()
	}

	trace := engine.NewMemoryRecorder()
	eng := engine.New(
		engine.WithLogger(o.logger),
		engine.WithConfig(cfg),
		engine.WithClock(testutil.NewDeterministicClock()),
		engine.WithRunIDGenerator(o.runIDs),
		engine.WithRecorder(engine.Recorders(trace, st, o.recorder)),
	)
	runID := eng.RunID()

	if err := st.WriteRun(ctx, runID, scenario.Name, cfg); err != nil {
		return nil, fmt.Errorf("failed to journal run: %w", err)
	}

	net := o.pool
	if net == nil && scenario.Pool != nil {
		capacity := int64(-1)
		if scenario.Pool.Capacity != nil {
			capacity = *scenario.Pool.Capacity
		}
		net = pool.NewMemory(capacity, scenario.Pool.Energy)
	}

	driver := sim.NewDriver(eng, sim.WithLogger(o.logger))
	recipes := scenario.recipeUnits()
	for _, def := range scenario.Nodes {
		n, err := buildNode(def, scenario, recipes, cfg, o.logger)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
		if def.Network && net != nil {
			n.Connect(ctx, net)
		}
		if err := driver.Add(n); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
	}

	if err := driver.Run(ctx, scenario.Steps); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	result := NewResult(runID)
	result.Trace = trace.Events()
	for _, n := range driver.Nodes() {
		result.State[n.ID()] = NodeState{
			Output:      n.OutputStack(),
			Inputs:      n.InputStacks(),
			Energy:      n.StoredEnergy(),
			Progress:    n.Progress(),
			Completed:   n.Completed(),
			StoredItems: n.StoredItems(),
		}
	}

	journaled, err := st.ReadRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	report := engine.Replay(runID, journaled)
	for _, m := range report.Mismatches {
		result.AddError("replay: " + m.Error())
	}
	if len(journaled) != len(result.Trace) {
		result.AddError(fmt.Sprintf("journal: %d events journaled, %d emitted", len(journaled), len(result.Trace)))
	}

	actx := &AssertionContext{Ctx: ctx, Pool: net}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	o.logger.Info("scenario complete",
		"scenario", scenario.Name,
		"run_id", runID,
		"events", len(result.Trace),
		"pass", result.Pass,
	)
	return result, nil
}

func buildNode(def NodeDef, scenario *Scenario, recipes map[string]ir.RecipeUnit, cfg config.Config, logger *slog.Logger) (*sim.Node, error) {
	spec := sim.Spec{
		ID:          def.ID,
		MachineType: def.Machine,
		Output:      ir.Stack{Kind: ir.Kind(def.Output.Kind), Count: def.Output.Count},
		Energy:      def.Energy,
	}

	ids := def.Recipes
	if len(ids) == 0 {
		for _, r := range scenario.Recipes {
			ids = append(ids, r.ID)
		}
	}
	for _, id := range ids {
		spec.Recipes = append(spec.Recipes, recipes[id])
	}

	for _, in := range def.Inputs {
		spec.Inputs = append(spec.Inputs, ir.Stack{Kind: ir.Kind(in.Kind), Count: in.Count})
	}
	for _, c := range def.Cards {
		card, err := upgrade.ParseCard(c)
		if err != nil {
			return nil, err
		}
		spec.Cards = append(spec.Cards, card)
	}
	return sim.NewNode(spec, cfg, sim.WithNodeLogger(logger))
}
