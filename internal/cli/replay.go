package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/overclock/internal/engine"
	"github.com/roach88/overclock/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - one run only
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID         string   `json:"run_id"`
	Label         string   `json:"label,omitempty"`
	Events        int      `json:"events"`
	Deterministic bool     `json:"deterministic"`
	Mismatches    []string `json:"mismatches,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay journaled runs and verify determinism",
		Long: `Replay journaled runs and verify that every event is reproducible.

Each event's plan is re-resolved from its recorded limits and compared with
the recorded resolved count and bound. Content-addressed IDs are recomputed,
seq order is checked, and no event may commit more than it resolved.

Exit codes:
  0 - All runs are deterministic
  1 - Replay found mismatches
  2 - Command error (database not found, etc.)

Examples:
  overclock replay --db ./overclock.db
  overclock replay --db ./overclock.db --run 01931c1e-...
  overclock replay --db ./overclock.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay one run only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	f := newFormatter(opts.RootOptions, cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var runs []store.Run
	if opts.RunID != "" {
		run, err := st.ReadRunInfo(ctx, opts.RunID)
		if errors.Is(err, sql.ErrNoRows) {
			return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read run", err)
		}
		runs = []store.Run{run}
	} else {
		runs, err = st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
	}

	result := ReplayResult{
		Runs:             make([]ReplayRunResult, 0, len(runs)),
		TotalRuns:        len(runs),
		AllDeterministic: true,
	}
	for _, run := range runs {
		rr, err := replayRun(ctx, st, run)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay run %s", run.ID), err)
		}
		f.VerboseLog("Replayed %s: %d events", run.ID, rr.Events)
		result.Runs = append(result.Runs, rr)
		if !rr.Deterministic {
			result.AllDeterministic = false
		}
	}

	if f.JSON() {
		if !result.AllDeterministic {
			if err := f.Failure(ErrCodeReplay, "determinism verification failed", result); err != nil {
				return err
			}
			return NewExitError(ExitFailure, "determinism verification failed")
		}
		return f.Success(result)
	}
	return outputReplayText(cmd.OutOrStdout(), result)
}

func replayRun(ctx context.Context, st *store.Store, run store.Run) (ReplayRunResult, error) {
	events, err := st.ReadRun(ctx, run.ID)
	if err != nil {
		return ReplayRunResult{}, err
	}
	report := engine.Replay(run.ID, events)

	rr := ReplayRunResult{
		RunID:         run.ID,
		Label:         run.Label,
		Events:        report.Events,
		Deterministic: report.OK(),
	}
	for _, m := range report.Mismatches {
		rr.Mismatches = append(rr.Mismatches, m.Error())
	}
	return rr, nil
}

func outputReplayText(w io.Writer, result ReplayResult) error {
	if result.TotalRuns == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d run(s)\n", result.TotalRuns)
	fmt.Fprintln(w)

	for _, run := range result.Runs {
		status := "✓"
		if !run.Deterministic {
			status = "✗"
		}
		fmt.Fprintf(w, "%s Run: %s", status, run.RunID)
		if run.Label != "" {
			fmt.Fprintf(w, " (%s)", run.Label)
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  Events: %d\n", run.Events)
		for _, m := range run.Mismatches {
			fmt.Fprintf(w, "  %s\n", m)
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All runs verified deterministic")
		return nil
	}
	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, "determinism verification failed")
}
