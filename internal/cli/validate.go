package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/overclock/internal/config"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                      `json:"valid"`
	Config *config.Config            `json:"config,omitempty"`
	Errors []config.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config.cue>",
		Short: "Validate a configuration file",
		Long: `Validate a CUE configuration file against the engine schema.

Every violation is reported with its field, line and error code. A valid
file is printed with defaults filled in.

Exit codes:
  0 - Configuration is valid
  1 - Configuration has errors
  2 - Command error (file not found, etc.)

Examples:
  overclock validate ./overclock.cue
  overclock validate ./overclock.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			_ = f.Error(ErrCodeNotFound, fmt.Sprintf("config file not found: %s", path), nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("config file not found: %s", path))
		}
		return WrapExitError(ExitCommandError, "failed to read config file", err)
	}
	f.VerboseLog("Validating %s (%d bytes)", path, len(data))

	if errs := config.Validate(data, path); len(errs) > 0 {
		result := ValidationResult{Valid: false, Errors: errs}
		if f.JSON() {
			if err := f.Failure(ErrCodeInvalidConf, fmt.Sprintf("%d validation error(s)", len(errs)), result); err != nil {
				return err
			}
		} else {
			outputValidationErrors(cmd.OutOrStdout(), errs)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", len(errs)))
	}

	cfg, err := config.Parse(data, path)
	if err != nil {
		return WrapExitError(ExitFailure, "invalid config", err)
	}

	if f.JSON() {
		return f.Success(ValidationResult{Valid: true, Config: &cfg})
	}
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "✓ Configuration is valid")
	if opts.Verbose {
		outputEffectiveConfig(w, cfg)
	}
	return nil
}

func outputValidationErrors(w io.Writer, errs []config.ValidationError) {
	fmt.Fprintf(w, "✗ %d validation error(s)\n", len(errs))
	for _, e := range errs {
		fmt.Fprintf(w, "  %s\n", e.Error())
	}
}

func outputEffectiveConfig(w io.Writer, cfg config.Config) {
	fmt.Fprintf(w, "  capacity_card_slot_limit: %d\n", cfg.SlotLimit())
	fmt.Fprintf(w, "  super_energy_card_buffer: %g AE\n", cfg.SuperEnergyBufferAE())
	fmt.Fprintf(w, "  parallel_card_max_multiplier: %d\n", cfg.MaxFactor())
	fmt.Fprintf(w, "  break_protection_item_threshold: %d\n", cfg.BreakProtectionThreshold())
	fmt.Fprintf(w, "  base_energy_buffer: %g\n", cfg.EnergyBuffer())
	fmt.Fprintf(w, "  base_slot_limit: %d\n", cfg.BaseSlot())
}
