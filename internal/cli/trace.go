package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/overclock/internal/ir"
	"github.com/roach88/overclock/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Node     string // optional - filter to one node
	Export   bool   // raw canonical JSON lines
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	RunID    string              `json:"run_id"`
	Label    string              `json:"label,omitempty"`
	Timeline []ir.StepEvent      `json:"timeline"`
	Nodes    []store.NodeSummary `json:"nodes"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the journaled step events of a run",
		Long: `Show the step events of a journaled run in seq order, with per-node totals.

With --export, the canonical JSON payload of every event is written one per
line, byte-identical to what the event IDs were hashed from.

Examples:
  overclock trace --db ./overclock.db --run 01931c1e-...
  overclock trace --db ./overclock.db --run 01931c1e-... --node inscriber-1
  overclock trace --db ./overclock.db --run 01931c1e-... --export`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to trace (required)")
	_ = cmd.MarkFlagRequired("run")
	cmd.Flags().StringVar(&opts.Node, "node", "", "filter to one node")
	cmd.Flags().BoolVar(&opts.Export, "export", false, "write canonical JSON lines")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	f := newFormatter(opts.RootOptions, cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	run, err := st.ReadRunInfo(ctx, opts.RunID)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID), err)
	}

	if opts.Export {
		if err := st.ExportRun(ctx, opts.RunID, cmd.OutOrStdout()); err != nil {
			return WrapExitError(ExitCommandError, "failed to export run", err)
		}
		return nil
	}

	var events []ir.StepEvent
	if opts.Node != "" {
		events, err = st.ReadNode(ctx, opts.RunID, opts.Node)
	} else {
		events, err = st.ReadRun(ctx, opts.RunID)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	summaries, err := st.Summarize(ctx, opts.RunID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to summarize run", err)
	}

	result := TraceResult{
		RunID:    run.ID,
		Label:    run.Label,
		Timeline: events,
		Nodes:    summaries,
	}
	if result.Timeline == nil {
		result.Timeline = []ir.StepEvent{}
	}

	if f.JSON() {
		return f.Success(result)
	}
	outputTraceText(cmd.OutOrStdout(), result, opts.Verbose)
	return nil
}

func outputTraceText(w io.Writer, result TraceResult, verbose bool) {
	fmt.Fprintf(w, "Trace for Run: %s", result.RunID)
	if result.Label != "" {
		fmt.Fprintf(w, " (%s)", result.Label)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	}
	for _, ev := range result.Timeline {
		formatTimelineEvent(w, ev, verbose)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Nodes ===")
	if len(result.Nodes) == 0 {
		fmt.Fprintln(w, "  (no nodes)")
	}
	for _, n := range result.Nodes {
		fmt.Fprintf(w, "  %s: %d events, %d committed, %s energy, %d aborts\n",
			n.NodeID, n.Events, n.Committed, formatMilli(n.Energy), n.Aborts)
	}
}

// formatTimelineEvent writes one event line, plus its limits and ID in
// verbose mode.
func formatTimelineEvent(w io.Writer, ev ir.StepEvent, verbose bool) {
	fmt.Fprintf(w, "  [%d] %s step %d %-7s %d/%d bound=%s",
		ev.Seq, ev.NodeID, ev.Step, ev.Kind, ev.Resolved, ev.Requested, ev.Bound)
	if ev.Committed > 0 {
		fmt.Fprintf(w, " committed=%d energy=%s", ev.Committed, formatMilli(ev.Energy))
	}
	if ev.Reason != "" {
		fmt.Fprintf(w, " reason=%s", ev.Reason)
	}
	fmt.Fprintln(w)
	if verbose {
		fmt.Fprintf(w, "       Limits: material=%s output=%s energy=%s\n",
			formatLimit(ev.Limits.Material), formatLimit(ev.Limits.Output), formatLimit(ev.Limits.Energy))
		fmt.Fprintf(w, "       ID: %s\n", truncateID(ev.ID))
	}
}

func formatMilli(milli int64) string {
	if milli%1000 == 0 {
		return fmt.Sprintf("%d", milli/1000)
	}
	return fmt.Sprintf("%.3f", float64(milli)/1000)
}

func formatLimit(n int64) string {
	if n == ir.Unbounded {
		return "unbounded"
	}
	return fmt.Sprintf("%d", n)
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
