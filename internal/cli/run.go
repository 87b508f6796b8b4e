package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gridwire/gridwire/internal/engine"
	"github.com/gridwire/gridwire/internal/signal"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <layout> <puzzle>",
		Short: "Run a puzzle's input script and print the trace",
		Long: `Drive a circuit with a puzzle's input script and print every tick's
outputs. Expectations in the puzzle are ignored - use verify to score the
circuit against them.

Example:
  gridwire run layouts/xor.yaml puzzles/xor.cue
  gridwire run --format json layouts/div.yaml puzzles/div.cue`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

// TickOutput is one tick of JSON run output.
type TickOutput struct {
	Tick    int64                   `json:"tick"`
	Outputs map[string]signal.Value `json:"outputs"`
	Fault   *FaultOutput            `json:"fault,omitempty"`
}

// FaultOutput describes a chip fault in JSON run output.
type FaultOutput struct {
	Chip  string `json:"chip"`
	Cause string `json:"cause"`
	Fatal bool   `json:"fatal,omitempty"`
}

func runRun(opts *RootOptions, layoutPath, puzzlePath string, cmd *cobra.Command) error {
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

	formatter.VerboseLog("Running %q for %d tick(s)", p.Name, script.Ticks())

	eval := engine.New(graph)
	var ticks []TickOutput

	for t := 0; t < script.Ticks(); t++ {
		trace, fault, err := eval.Tick(script.Inputs[t])
		if err != nil {
			// A fatal fault accompanies its error; name the chip in the
			// message so the report is not lost.
			if fault != nil {
				return WrapExitError(ExitCommandError,
					fmt.Sprintf("tick %d: chip %s", t, circ.ChipName(fault.Chip)), err)
			}
			return WrapExitError(ExitCommandError, fmt.Sprintf("tick %d", t), err)
		}

		out := TickOutput{
			Tick:    trace.Tick,
			Outputs: make(map[string]signal.Value, len(trace.Outputs)),
		}
		for _, pv := range trace.Outputs {
			out.Outputs[circ.PortName(pv.Port)] = pv.Value
		}
		if fault != nil {
			out.Fault = &FaultOutput{
				Chip:  circ.ChipName(fault.Chip),
				Cause: fault.Cause,
				Fatal: fault.Fatal,
			}
		}
		ticks = append(ticks, out)
	}

	if opts.Format == "json" {
		return formatter.Success(ticks)
	}

	for _, out := range ticks {
		fmt.Fprintf(formatter.Writer, "tick %d: %s\n", out.Tick, formatOutputs(out.Outputs))
		if out.Fault != nil {
			fmt.Fprintf(formatter.Writer, "tick %d: fault: %s: %s\n", out.Tick, out.Fault.Chip, out.Fault.Cause)
		}
	}
	return nil
}

// formatOutputs renders a tick's outputs as "name=value" pairs in port
// name order.
func formatOutputs(outputs map[string]signal.Value) string {
	names := make([]string, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%s", name, signal.String(outputs[name]))
	}
	return strings.Join(parts, " ")
}
