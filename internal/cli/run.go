package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/overclock/internal/config"
	"github.com/roach88/overclock/internal/engine"
	"github.com/roach88/overclock/internal/harness"
	"github.com/roach88/overclock/internal/metrics"
	"github.com/roach88/overclock/internal/pool"
	"github.com/roach88/overclock/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database    string
	Config      string
	Redis       string
	RedisPrefix string
	Metrics     bool

	// RunIDs overrides the run ID generator when --db is set (for testing).
	// Defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// RunSummary is the output of the run command.
type RunSummary struct {
	Scenario string                       `json:"scenario"`
	RunID    string                       `json:"run_id"`
	Pass     bool                         `json:"pass"`
	Events   int                          `json:"events"`
	Errors   []string                     `json:"errors,omitempty"`
	Nodes    map[string]harness.NodeState `json:"nodes"`
	Metrics  string                       `json:"metrics,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Simulate one scenario",
		Long: `Simulate one scenario and report each node's final state.

With --db, the run is journaled to SQLite under a fresh UUIDv7 run ID so it
can be inspected with trace and checked with replay. With --redis, networked
nodes share a pool in Redis, seeded from the scenario's pool section.

Exit codes:
  0 - Scenario passed
  1 - Scenario assertions failed
  2 - Command error (missing files, unreachable Redis, etc.)

Examples:
  overclock run ./testdata/scenarios/scenario_a_output_bound.yaml
  overclock run scenario.yaml --db ./overclock.db --config ./overclock.cue
  overclock run scenario.yaml --redis localhost:6379 --metrics`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "journal the run to this SQLite database")
	cmd.Flags().StringVar(&opts.Config, "config", "", "CUE configuration file")
	cmd.Flags().StringVar(&opts.Redis, "redis", "", "Redis address of a shared pool")
	cmd.Flags().StringVar(&opts.RedisPrefix, "redis-prefix", pool.DefaultPrefix, "key prefix of the shared pool")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print Prometheus metrics after the run")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	logger := f.Logger()

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runOpts := []harness.Option{harness.WithLogger(logger)}

	if opts.Config != "" {
		cfg, err := config.Load(opts.Config)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to load config", err)
		}
		runOpts = append(runOpts, harness.WithConfig(cfg))
	}

	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if err := st.Close(); err != nil {
				logger.Error("error closing database", "error", err)
			}
		}()
		ids := opts.RunIDs
		if ids == nil {
			ids = engine.UUIDv7Generator{}
		}
		runOpts = append(runOpts, harness.WithStore(st), harness.WithRunIDGenerator(ids))
	}

	if opts.Redis != "" {
		p := pool.NewRedis(opts.Redis, pool.WithPrefix(opts.RedisPrefix), pool.WithLogger(logger))
		defer p.Close()
		if err := seedRedis(ctx, p, scenario); err != nil {
			return WrapExitError(ExitCommandError, "failed to prepare shared pool", err)
		}
		runOpts = append(runOpts, harness.WithPool(p))
	}

	var rec *metrics.Recorder
	if opts.Metrics {
		rec = metrics.New()
		runOpts = append(runOpts, harness.WithRecorder(rec))
	}

	f.VerboseLog("Running scenario %s (%d steps, %d nodes)", scenario.Name, scenario.Steps, len(scenario.Nodes))
	result, err := harness.RunContext(ctx, scenario, runOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "scenario did not run", err)
	}

	summary := RunSummary{
		Scenario: scenario.Name,
		RunID:    result.RunID,
		Pass:     result.Pass,
		Events:   len(result.Trace),
		Errors:   result.Errors,
		Nodes:    result.State,
	}
	if rec != nil {
		var buf bytes.Buffer
		if err := rec.WriteText(&buf); err != nil {
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
		summary.Metrics = buf.String()
	}

	if f.JSON() {
		if !summary.Pass {
			if err := f.Failure(ErrCodeTestFailed, "scenario failed", summary); err != nil {
				return err
			}
			return NewExitError(ExitFailure, "scenario failed")
		}
		return f.Success(summary)
	}
	return outputRunText(cmd, summary)
}

// seedRedis pings the pool and applies the scenario's capacity and energy.
func seedRedis(ctx context.Context, p *pool.Redis, scenario *harness.Scenario) error {
	if err := p.Ping(ctx); err != nil {
		return err
	}
	if scenario.Pool == nil {
		return nil
	}
	capacity := int64(-1)
	if scenario.Pool.Capacity != nil {
		capacity = *scenario.Pool.Capacity
	}
	if err := p.SetCapacity(ctx, capacity); err != nil {
		return err
	}
	if scenario.Pool.Energy > 0 {
		return p.DepositEnergy(ctx, scenario.Pool.Energy)
	}
	return nil
}

func outputRunText(cmd *cobra.Command, s RunSummary) error {
	w := cmd.OutOrStdout()

	mark := "✓"
	if !s.Pass {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s (run %s, %d events)\n", mark, s.Scenario, s.RunID, s.Events)

	ids := make([]string, 0, len(s.Nodes))
	for id := range s.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		n := s.Nodes[id]
		fmt.Fprintf(w, "  %s: output %s x%d, completed %d, progress %d, energy %g\n",
			id, n.Output.Kind, n.Output.Count, n.Completed, n.Progress, n.Energy)
	}
	for _, e := range s.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
	if s.Metrics != "" {
		fmt.Fprintln(w)
		fmt.Fprint(w, s.Metrics)
	}

	if !s.Pass {
		return NewExitError(ExitFailure, "scenario failed")
	}
	return nil
}
