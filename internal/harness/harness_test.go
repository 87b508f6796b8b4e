package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridwire/gridwire/internal/chips"
	"github.com/gridwire/gridwire/internal/circuit"
	"github.com/gridwire/gridwire/internal/layout"
	"github.com/gridwire/gridwire/internal/signal"
)

func TestParseScenario(t *testing.T) {
	data, err := os.ReadFile("testdata/scenarios/not_gate.yaml")
	require.NoError(t, err)

	s, err := ParseScenario(data)
	require.NoError(t, err)
	assert.Equal(t, "not-gate", s.Name)
	assert.Len(t, s.Ticks, 2)
	assert.Len(t, s.Assertions, 3)
	assert.Equal(t, map[string]any{"gen.out": 1}, s.Ticks[1].Inputs)
}

func TestParseScenario_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			"missing name",
			"layout: l.yaml\nticks:\n  - inputs: {}\n",
			"name is required",
		},
		{
			"missing layout",
			"name: x\nticks:\n  - inputs: {}\n",
			"layout is required",
		},
		{
			"no drive script",
			"name: x\nlayout: l.yaml\n",
			"either puzzle or ticks is required",
		},
		{
			"both drive scripts",
			"name: x\nlayout: l.yaml\npuzzle: p.cue\nticks:\n  - inputs: {}\n",
			"puzzle and ticks are mutually exclusive",
		},
		{
			"verdict without puzzle",
			"name: x\nlayout: l.yaml\nticks:\n  - inputs: {}\nassertions:\n  - type: verdict\n    verdict: pass\n",
			"verdict requires a puzzle",
		},
		{
			"output assertion without port",
			"name: x\nlayout: l.yaml\nticks:\n  - inputs: {}\nassertions:\n  - type: output_at_tick\n",
			"port is required",
		},
		{
			"unknown assertion type",
			"name: x\nlayout: l.yaml\nticks:\n  - inputs: {}\nassertions:\n  - type: frobnicate\n",
			`unknown type "frobnicate"`,
		},
		{
			"unknown field",
			"name: x\nlayout: l.yaml\nassertion: []\n",
			"failed to parse YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_ResolvesRelativePaths(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/invert_pass.yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "scenarios", "..", "layouts", "not_gate.yaml"), s.Layout)
	assert.Equal(t, filepath.Join("testdata", "scenarios", "..", "puzzles", "invert.cue"), s.Puzzle)
}

func TestRun_InlineTicks_Golden(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/not_gate.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Faults)
	assert.Empty(t, result.Verdict)
	require.Len(t, result.Trace, 2)
}

func TestRun_Puzzle_Golden(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/invert_pass.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass)
	assert.Equal(t, "pass", result.Verdict)
}

func TestRun_PuzzleMismatchFailsScenario(t *testing.T) {
	s := &Scenario{
		Name:   "always-zero",
		Layout: "testdata/layouts/not_gate.yaml",
		Puzzle: "testdata/puzzles/always_zero.cue",
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, "mismatch", result.Verdict)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "verdict mismatch at tick 0")
}

func TestRun_RecordsFault(t *testing.T) {
	s := &Scenario{
		Name:   "fuse-blow",
		Layout: "testdata/layouts/fuse.yaml",
		Ticks: []TickStep{
			{Inputs: map[string]any{"gen.out": 2}},
			{},
		},
		Assertions: []Assertion{
			{Type: AssertFaultAtTick, Tick: 0, Chip: "blow", Cause: "fuse blown"},
			{Type: AssertTickCount, Count: 2},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass)
	require.Len(t, result.Faults, 1)
	assert.Equal(t, int64(0), result.Faults[0].Tick)
	assert.Equal(t, "blow", result.Faults[0].Chip)
	assert.Contains(t, result.Faults[0].Cause, "fuse blown by event value 2")
	assert.False(t, result.Faults[0].Fatal)
}

func TestRunTicks_FatalFaultFailsResult(t *testing.T) {
	// A catalog bug makes the evaluator fault fatally mid-run. The
	// report must land in the result, not vanish behind the error.
	reg := chips.NewRegistry()
	require.NoError(t, reg.Register(chips.NewCombinational("rogue",
		[]circuit.PortSpec{
			{Name: "out", Kind: signal.KindBehavior, Dir: circuit.Output},
		},
		func([]signal.Value) ([]signal.Value, error) {
			return []signal.Value{signal.Event(1)}, nil
		})))

	path := filepath.Join(t.TempDir(), "rogue.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"chips:\n  - name: r1\n    type: rogue\n    pos: [0, 0]\n"), 0o644))

	circ, err := layout.Load(path, reg)
	require.NoError(t, err)
	graph, err := circ.Build()
	require.NoError(t, err)

	s := &Scenario{Name: "rogue", Ticks: []TickStep{{}, {}}}
	result := &Result{Pass: true}
	require.NoError(t, runTicks(s, circ, graph, result))

	assert.False(t, result.Pass)
	require.Len(t, result.Faults, 1)
	assert.True(t, result.Faults[0].Fatal)
	assert.Equal(t, "r1", result.Faults[0].Chip)
	assert.Empty(t, result.Trace)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "tick 0")
}

func TestRun_AssertionFailure(t *testing.T) {
	s := &Scenario{
		Name:   "wrong-expectation",
		Layout: "testdata/layouts/not_gate.yaml",
		Ticks: []TickStep{
			{Inputs: map[string]any{"gen.out": 1}},
		},
		Assertions: []Assertion{
			{Type: AssertOutputAtTick, Tick: 0, Port: "n1.out", Value: 1},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "assertion 0")
	assert.Contains(t, result.Errors[0], "n1.out = 1 at tick 0")
}

func TestRun_BadLayoutIsError(t *testing.T) {
	s := &Scenario{
		Name:   "missing-layout",
		Layout: "testdata/layouts/nope.yaml",
		Ticks:  []TickStep{{}},
	}
	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading layout")
}

func TestRun_BadInputRefIsError(t *testing.T) {
	s := &Scenario{
		Name:   "bad-ref",
		Layout: "testdata/layouts/not_gate.yaml",
		Ticks: []TickStep{
			{Inputs: map[string]any{"ghost.out": 1}},
		},
	}
	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown chip "ghost"`)
}
