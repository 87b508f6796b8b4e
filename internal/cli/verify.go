package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridwire/gridwire/internal/signal"
	"github.com/gridwire/gridwire/internal/verifier"
)

// VerifyResult holds the verdict for JSON output.
type VerifyResult struct {
	Puzzle     string           `json:"puzzle"`
	Verdict    string           `json:"verdict"`
	FailTick   int64            `json:"fail_tick,omitempty"`
	Mismatches []MismatchOutput `json:"mismatches,omitempty"`
	Fault      *FaultOutput     `json:"fault,omitempty"`
}

// MismatchOutput describes one diverging output port.
type MismatchOutput struct {
	Port     string `json:"port"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <layout> <puzzle>",
		Short: "Verify a circuit layout against a puzzle",
		Long: `Run a puzzle's full script against a circuit layout and report the
verdict: pass, mismatch at the first diverging tick, or fault at the
first faulting tick.

Exit code is 0 on pass and 1 otherwise.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runVerify(opts *RootOptions, layoutPath, puzzlePath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	circ, graph, err := buildCircuit(layoutPath)
	if err != nil {
		return err
	}
	p, script, err := loadScript(circ, puzzlePath)
	if err != nil {
		return err
	}

	outcome, err := verifier.Run(graph, script)
	if err != nil {
		return WrapExitError(ExitCommandError, "verification aborted", err)
	}

	result := VerifyResult{
		Puzzle:  p.Name,
		Verdict: outcome.Verdict.String(),
	}
	if outcome.Verdict != verifier.VerdictPass {
		result.FailTick = outcome.FailTick
	}
	for _, m := range outcome.Mismatches {
		result.Mismatches = append(result.Mismatches, MismatchOutput{
			Port:     circ.PortName(m.Port),
			Expected: signal.String(m.Expected),
			Actual:   signal.String(m.Actual),
		})
	}
	if outcome.Fault != nil {
		result.Fault = &FaultOutput{
			Chip:  circ.ChipName(outcome.Fault.Chip),
			Cause: outcome.Fault.Cause,
			Fatal: outcome.Fault.Fatal,
		}
	}

	if opts.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		printVerdict(formatter, result)
	}

	if outcome.Verdict != verifier.VerdictPass {
		return NewExitError(ExitFailure, fmt.Sprintf("verdict: %s", result.Verdict))
	}
	return nil
}

func printVerdict(f *OutputFormatter, result VerifyResult) {
	switch result.Verdict {
	case "pass":
		fmt.Fprintf(f.Writer, "PASS %s\n", result.Puzzle)

	case "mismatch":
		fmt.Fprintf(f.Writer, "MISMATCH %s at tick %d\n", result.Puzzle, result.FailTick)
		for _, m := range result.Mismatches {
			fmt.Fprintf(f.Writer, "  %s: expected %s, got %s\n", m.Port, m.Expected, m.Actual)
		}

	case "fault":
		fmt.Fprintf(f.Writer, "FAULT %s at tick %d: %s: %s\n",
			result.Puzzle, result.FailTick, result.Fault.Chip, result.Fault.Cause)
	}
}
