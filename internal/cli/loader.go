package cli

import (
	"github.com/gridwire/gridwire/internal/chips"
	"github.com/gridwire/gridwire/internal/circuit"
	"github.com/gridwire/gridwire/internal/layout"
	"github.com/gridwire/gridwire/internal/puzzle"
	"github.com/gridwire/gridwire/internal/verifier"
)

// loadCircuit parses a layout file against the default chip catalog.
// Does not build the graph - validate wants the structural errors itself.
func loadCircuit(layoutPath string) (*layout.Circuit, error) {
	circ, err := layout.Load(layoutPath, chips.Default())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load layout", err)
	}
	return circ, nil
}

// buildCircuit parses a layout file and builds its graph. Structural
// errors map to ExitFailure so scripts can distinguish a bad circuit
// from a bad invocation.
func buildCircuit(layoutPath string) (*layout.Circuit, *circuit.Graph, error) {
	circ, err := loadCircuit(layoutPath)
	if err != nil {
		return nil, nil, err
	}
	graph, err := circ.Build()
	if err != nil {
		if len(circuit.StructuralErrors(err)) > 0 {
			return nil, nil, WrapExitError(ExitFailure, "circuit has structural errors", err)
		}
		return nil, nil, WrapExitError(ExitCommandError, "failed to build circuit", err)
	}
	return circ, graph, nil
}

// loadScript loads a puzzle file and binds it against a circuit.
func loadScript(circ *layout.Circuit, puzzlePath string) (*puzzle.Puzzle, *verifier.Script, error) {
	p, err := puzzle.Load(puzzlePath)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load puzzle", err)
	}
	script, err := p.Bind(circ)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to bind puzzle to layout", err)
	}
	return p, script, nil
}
