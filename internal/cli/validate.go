package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridwire/gridwire/internal/circuit"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Chips  int                        `json:"chips"`
	Wires  int                        `json:"wires"`
	Errors []*circuit.StructuralError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <layout>",
		Short: "Check a circuit layout for structural errors",
		Long: `Build a circuit layout's graph and report structural errors.

Checks wire kind agreement, driver uniqueness, reference resolution, and
combinational cycles without running any ticks. All structural errors are
reported, not just the first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, layoutPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	circ, err := loadCircuit(layoutPath)
	if err != nil {
		outErr := formatter.Error(ErrCodeLayout, err.Error(), nil)
		if outErr != nil {
			return outErr
		}
		return err
	}

	formatter.VerboseLog("Loaded %d chip(s), %d wire(s) from %s",
		len(circ.Placements), len(circ.Wires), layoutPath)

	graph, err := circ.Build()
	if err != nil {
		structural := circuit.StructuralErrors(err)
		if len(structural) == 0 {
			outErr := formatter.Error(ErrCodeGeneric, err.Error(), nil)
			if outErr != nil {
				return outErr
			}
			return WrapExitError(ExitCommandError, "failed to build circuit", err)
		}
		return outputStructuralErrors(formatter, structural)
	}

	result := ValidationResult{
		Valid: true,
		Chips: graph.NumChips(),
		Wires: graph.NumWires(),
	}
	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return formatter.Success(fmt.Sprintf("Valid: %d chip(s), %d wire(s)", result.Chips, result.Wires))
}

func outputStructuralErrors(f *OutputFormatter, structural []*circuit.StructuralError) error {
	if f.Format == "json" {
		result := ValidationResult{Valid: false, Errors: structural}
		if err := f.Error(ErrCodeStructural, "circuit has structural errors", result); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(f.Writer, "Invalid: %d structural error(s)\n", len(structural))
		for _, se := range structural {
			fmt.Fprintf(f.Writer, "  [%s] %s\n", se.Code, se.Message)
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d structural error(s)", len(structural)))
}
