package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/overclock/internal/ir"
	"github.com/roach88/overclock/internal/resolve"
	"github.com/roach88/overclock/internal/sim"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Factor      int64
	Inputs      []string // "available/per_unit"
	OutputCount int64    // items already in the output slot
	OutputLimit int64    // output slot limit; <= 0 is unlimited
	UnitOutput  int64    // items produced per repetition
	Energy      float64
	UnitCost    float64
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a batch plan from a resource snapshot",
		Long: `Resolve how many repetitions a machine could run for a requested factor.

The resolved count is the smallest of the factor and the material, output
and energy limits. The binding constraint is reported as the plan's bound.

Examples:
  overclock resolve --factor 8 --input 20/1 --output-count 59 --energy 1000 --cost 10
  overclock resolve --factor 64 --input 100/2 --input 30/1 --output-limit 0 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.Factor, "factor", 8, "requested acceleration factor")
	cmd.Flags().StringArrayVar(&opts.Inputs, "input", nil, "input supply as available/per_unit (repeatable)")
	cmd.Flags().Int64Var(&opts.OutputCount, "output-count", 0, "items already in the output slot")
	cmd.Flags().Int64Var(&opts.OutputLimit, "output-limit", 64, "output slot limit (0 for unlimited)")
	cmd.Flags().Int64Var(&opts.UnitOutput, "unit-output", 1, "items produced per repetition")
	cmd.Flags().Float64Var(&opts.Energy, "energy", 0, "withdrawable energy")
	cmd.Flags().Float64Var(&opts.UnitCost, "cost", 0, "energy per repetition")

	return cmd
}

func runResolve(opts *ResolveOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	supplies, err := parseSupplies(opts.Inputs)
	if err != nil {
		_ = f.Error(ErrCodeBadInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid input", err)
	}

	const kind ir.Kind = "output"
	slot := sim.NewSlot(ir.Stack{Kind: kind, Count: opts.OutputCount}, opts.OutputLimit)
	plan := resolve.Resolve(resolve.Request{
		Factor:   opts.Factor,
		Inputs:   supplies,
		Output:   ir.Stack{Kind: kind, Count: opts.UnitOutput},
		Sink:     slot,
		Energy:   opts.Energy,
		UnitCost: opts.UnitCost,
	})

	if f.JSON() {
		return f.Success(plan)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Resolved %d of %d (bound: %s)\n", plan.Resolved, plan.Requested, plan.Bound)
	fmt.Fprintf(w, "  material: %s\n", formatLimit(plan.Limits.Material))
	fmt.Fprintf(w, "  output:   %s\n", formatLimit(plan.Limits.Output))
	fmt.Fprintf(w, "  energy:   %s\n", formatLimit(plan.Limits.Energy))
	fmt.Fprintf(w, "  cost:     %g\n", plan.TotalCost)
	return nil
}

// parseSupplies parses "available/per_unit" pairs.
func parseSupplies(specs []string) ([]resolve.Supply, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("at least one --input is required")
	}
	out := make([]resolve.Supply, 0, len(specs))
	for _, s := range specs {
		avail, per, ok := strings.Cut(s, "/")
		if !ok {
			return nil, fmt.Errorf("input %q: want available/per_unit", s)
		}
		a, err := strconv.ParseInt(strings.TrimSpace(avail), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("input %q: available: %w", s, err)
		}
		p, err := strconv.ParseInt(strings.TrimSpace(per), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("input %q: per_unit: %w", s, err)
		}
		out = append(out, resolve.Supply{Available: a, PerUnit: p})
	}
	return out, nil
}
