package cli

import (
	"github.com/spf13/cobra"

	"github.com/gridwire/gridwire/internal/harness"
	"github.com/gridwire/gridwire/internal/verifier"
)

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace <layout> <puzzle>",
		Short: "Emit a canonical JSON trace snapshot",
		Long: `Run a puzzle's script against a circuit layout and emit the complete
trace as canonical JSON. Identical inputs always produce byte-identical
output, so snapshots diff cleanly and work as golden files.

Example:
  gridwire trace layouts/xor.yaml puzzles/xor.cue > xor.golden`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runTrace(opts *RootOptions, layoutPath, puzzlePath string, cmd *cobra.Command) error {
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

	snapshot := harness.TraceSnapshot{
		ScenarioName: p.Name,
		Verdict:      outcome.Verdict.String(),
	}
	for _, trace := range outcome.Trace {
		snapshot.Trace = append(snapshot.Trace, harness.NameTrace(circ, trace))
	}
	if outcome.Fault != nil {
		snapshot.Faults = append(snapshot.Faults, harness.FaultEvent{
			Tick:  outcome.Fault.Tick,
			Chip:  circ.ChipName(outcome.Fault.Chip),
			Cause: outcome.Fault.Cause,
			Fatal: outcome.Fault.Fatal,
		})
	}

	data, err := snapshot.MarshalIndent()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to serialize trace", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
