package puzzle_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridwire/gridwire/internal/chips"
	"github.com/gridwire/gridwire/internal/circuit"
	"github.com/gridwire/gridwire/internal/layout"
	"github.com/gridwire/gridwire/internal/puzzle"
	"github.com/gridwire/gridwire/internal/signal"
	"github.com/gridwire/gridwire/internal/verifier"
)

const notPuzzle = `
puzzle: {
	name:        "invert"
	description: "output the logical inverse of the input"
	ticks:       3
	inputs: [
		{"gen.out": 0},
		{"gen.out": 1},
		{"gen.out": 5},
	]
	expected: [
		{"n1.out": 1},
		{"n1.out": 0},
		{"n1.out": 0},
	]
}
`

const notLayout = `
chips:
  - name: gen
    type: input
  - name: n1
    type: not
wires:
  - from: gen.out
    to: n1.in
`

func TestParse(t *testing.T) {
	p, err := puzzle.Parse([]byte(notPuzzle), "invert.cue")
	require.NoError(t, err)

	assert.Equal(t, "invert", p.Name)
	assert.Equal(t, "output the logical inverse of the input", p.Description)
	assert.Equal(t, 3, p.Ticks)
	assert.Equal(t, 0.0, p.Tolerance)
	require.Len(t, p.Inputs, 3)
	require.Len(t, p.Expected, 3)
	assert.Equal(t, puzzle.TickValues{"gen.out": int64(1)}, p.Inputs[1])
	assert.Equal(t, puzzle.TickValues{"n1.out": int64(0)}, p.Expected[1])
}

func TestParse_Tolerance(t *testing.T) {
	src := `
puzzle: {
	name: "analog"
	tolerance: 0.01
	inputs: [{"gen.out": 0.5}]
	expected: [{"gen.out": 0.5}]
}
`
	p, err := puzzle.Parse([]byte(src), "analog.cue")
	require.NoError(t, err)
	assert.Equal(t, 0.01, p.Tolerance)
	assert.Equal(t, puzzle.TickValues{"gen.out": 0.5}, p.Inputs[0])
}

func TestParse_NullValueIsAbsent(t *testing.T) {
	src := `
puzzle: {
	name: "pulse"
	inputs: [{"gen.out": 3}, {"gen.out": null}]
	expected: [{}, {}]
}
`
	p, err := puzzle.Parse([]byte(src), "pulse.cue")
	require.NoError(t, err)
	assert.Equal(t, puzzle.TickValues{"gen.out": nil}, p.Inputs[1])
	assert.Empty(t, p.Expected[0])
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			"no puzzle struct",
			`other: 1`,
			"no top-level puzzle struct found",
		},
		{
			"missing name",
			`puzzle: { inputs: [{}], expected: [{}] }`,
			"name is required",
		},
		{
			"no inputs",
			`puzzle: { name: "x", expected: [{}] }`,
			"at least one input tick is required",
		},
		{
			"length mismatch",
			`puzzle: { name: "x", inputs: [{}, {}], expected: [{}] }`,
			"expected has 1 ticks but inputs has 2",
		},
		{
			"ticks disagrees",
			`puzzle: { name: "x", ticks: 5, inputs: [{}], expected: [{}] }`,
			"ticks is 5 but inputs has 1 entries",
		},
		{
			"negative tolerance",
			`puzzle: { name: "x", tolerance: -0.1, inputs: [{}], expected: [{}] }`,
			"tolerance must be non-negative",
		},
		{
			"non-scalar value",
			`puzzle: { name: "x", inputs: [{"a.out": "hi"}], expected: [{}] }`,
			`port "a.out"`,
		},
		{
			"syntax error",
			`puzzle: {`,
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := puzzle.Parse([]byte(tt.src), tt.name+".cue")
			require.Error(t, err)
			if tt.wantErr != "" {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestBind(t *testing.T) {
	p, err := puzzle.Parse([]byte(notPuzzle), "invert.cue")
	require.NoError(t, err)

	circ, err := layout.Parse([]byte(notLayout), chips.Default())
	require.NoError(t, err)

	script, err := p.Bind(circ)
	require.NoError(t, err)
	require.Len(t, script.Inputs, 3)
	require.Len(t, script.Expected, 3)

	gen := circuit.PortID{Chip: 1, Port: 0}
	out := circuit.PortID{Chip: 2, Port: 1}
	assert.Equal(t, signal.Behavior(5), script.Inputs[2][gen])
	assert.Equal(t, signal.Behavior(0), script.Expected[2][out])

	// The bound script actually passes end to end.
	g, err := circ.Build()
	require.NoError(t, err)
	result, err := verifier.Run(g, script)
	require.NoError(t, err)
	assert.Equal(t, verifier.VerdictPass, result.Verdict)
}

func TestBind_Errors(t *testing.T) {
	circ, err := layout.Parse([]byte(notLayout), chips.Default())
	require.NoError(t, err)

	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			"unknown chip",
			`puzzle: { name: "x", inputs: [{"ghost.out": 1}], expected: [{}] }`,
			`inputs tick 0: unknown chip "ghost"`,
		},
		{
			"input port not an output",
			`puzzle: { name: "x", inputs: [{"n1.in": 1}], expected: [{}] }`,
			`inputs tick 0: "n1.in" is not an output port`,
		},
		{
			"kind mismatch",
			`puzzle: { name: "x", inputs: [{"gen.out": 0.5}], expected: [{}] }`,
			`inputs tick 0: port "gen.out"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := puzzle.Parse([]byte(tt.src), tt.name+".cue")
			require.NoError(t, err)
			_, err = p.Bind(circ)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func writePuzzleFile(t *testing.T, dir, name, puzzleName string) {
	t.Helper()
	src := `puzzle: { name: "` + puzzleName + `", inputs: [{}], expected: [{}] }`
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writePuzzleFile(t, dir, "b.cue", "beta")
	writePuzzleFile(t, dir, "a.cue", "alpha")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	puzzles, err := puzzle.LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, puzzles, 2)
	assert.Equal(t, "alpha", puzzles[0].Name)
	assert.Equal(t, "beta", puzzles[1].Name)
}

func TestLoadDir_Errors(t *testing.T) {
	t.Run("duplicate names", func(t *testing.T) {
		dir := t.TempDir()
		writePuzzleFile(t, dir, "a.cue", "same")
		writePuzzleFile(t, dir, "b.cue", "same")
		_, err := puzzle.LoadDir(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `duplicate puzzle "same"`)
	})

	t.Run("empty dir", func(t *testing.T) {
		_, err := puzzle.LoadDir(t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no CUE files found")
	})

	t.Run("missing dir", func(t *testing.T) {
		_, err := puzzle.LoadDir(filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
	})
}
