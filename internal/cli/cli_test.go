package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridwire/gridwire/internal/store"
	"github.com/gridwire/gridwire/internal/testutil"
)

const notLayout = `chips:
  - name: gen
    type: input
  - name: n1
    type: not
wires:
  - from: gen.out
    to: n1.in
`

const multiDriverLayout = `chips:
  - name: gen
    type: input
  - name: gen2
    type: input
  - name: n1
    type: not
wires:
  - from: gen.out
    to: n1.in
  - from: gen2.out
    to: n1.in
`

const invertPuzzle = `puzzle: {
	name: "invert"
	inputs: [
		{"gen.out": 0},
		{"gen.out": 1},
	]
	expected: [
		{"n1.out": 1},
		{"n1.out": 0},
	]
}
`

const alwaysZeroPuzzle = `puzzle: {
	name: "always-zero"
	inputs: [
		{"gen.out": 0},
		{"gen.out": 1},
	]
	expected: [
		{"n1.out": 0},
		{"n1.out": 0},
	]
}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs the CLI with the given arguments and captures its output.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestValidate_Valid(t *testing.T) {
	dir := t.TempDir()
	layoutPath := writeFile(t, dir, "not.yaml", notLayout)

	out, _, err := execute(t, "validate", layoutPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Valid: 2 chip(s), 1 wire(s)")
}

func TestValidate_ValidJSON(t *testing.T) {
	dir := t.TempDir()
	layoutPath := writeFile(t, dir, "not.yaml", notLayout)

	out, _, err := execute(t, "validate", "--format", "json", layoutPath)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, data["valid"])
	assert.Equal(t, float64(2), data["chips"])
	assert.Equal(t, float64(1), data["wires"])
}

func TestValidate_StructuralErrors(t *testing.T) {
	dir := t.TempDir()
	layoutPath := writeFile(t, dir, "broken.yaml", multiDriverLayout)

	out, _, err := execute(t, "validate", layoutPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Invalid: 1 structural error(s)")
	assert.Contains(t, out, "[MULTIPLE_DRIVERS]")
}

func TestValidate_StructuralErrorsJSON(t *testing.T) {
	dir := t.TempDir()
	layoutPath := writeFile(t, dir, "broken.yaml", multiDriverLayout)

	out, _, err := execute(t, "validate", "--format", "json", layoutPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeStructural, resp.Error.Code)
}

func TestValidate_MissingFile(t *testing.T) {
	out, _, err := execute(t, "validate", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E002]")
}

func TestInvalidFormat(t *testing.T) {
	dir := t.TempDir()
	layoutPath := writeFile(t, dir, "not.yaml", notLayout)

	_, _, err := execute(t, "validate", "--format", "xml", layoutPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestVerify_Pass(t *testing.T) {
	dir := t.TempDir()
	layoutPath := writeFile(t, dir, "not.yaml", notLayout)
	puzzlePath := writeFile(t, dir, "invert.cue", invertPuzzle)

	out, _, err := execute(t, "verify", layoutPath, puzzlePath)
	require.NoError(t, err)
	assert.Contains(t, out, "PASS invert")
}

func TestVerify_Mismatch(t *testing.T) {
	dir := t.TempDir()
	layoutPath := writeFile(t, dir, "not.yaml", notLayout)
	puzzlePath := writeFile(t, dir, "zero.cue", alwaysZeroPuzzle)

	out, _, err := execute(t, "verify", layoutPath, puzzlePath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "MISMATCH always-zero at tick 0")
	assert.Contains(t, out, "n1.out: expected 0, got 1")
}

func TestVerify_MismatchJSON(t *testing.T) {
	dir := t.TempDir()
	layoutPath := writeFile(t, dir, "not.yaml", notLayout)
	puzzlePath := writeFile(t, dir, "zero.cue", alwaysZeroPuzzle)

	out, _, err := execute(t, "verify", "--format", "json", layoutPath, puzzlePath)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "mismatch", data["verdict"])
}

func TestRun_PrintsTrace(t *testing.T) {
	dir := t.TempDir()
	layoutPath := writeFile(t, dir, "not.yaml", notLayout)
	puzzlePath := writeFile(t, dir, "invert.cue", invertPuzzle)

	out, _, err := execute(t, "run", layoutPath, puzzlePath)
	require.NoError(t, err)
	assert.Contains(t, out, "tick 0: gen.out=0 n1.out=1")
	assert.Contains(t, out, "tick 1: gen.out=1 n1.out=0")
}

func TestTrace_Canonical(t *testing.T) {
	dir := t.TempDir()
	layoutPath := writeFile(t, dir, "not.yaml", notLayout)
	puzzlePath := writeFile(t, dir, "invert.cue", invertPuzzle)

	out1, _, err := execute(t, "trace", layoutPath, puzzlePath)
	require.NoError(t, err)
	out2, _, err := execute(t, "trace", layoutPath, puzzlePath)
	require.NoError(t, err)
	assert.Equal(t, out1, out2)

	assert.Contains(t, out1, `"scenario_name": "invert"`)
	assert.Contains(t, out1, `"verdict": "pass"`)
	assert.Contains(t, out1, `"gen.out"`)
}

func TestSubmitAndScore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	layoutPath := writeFile(t, dir, "not.yaml", notLayout)
	dbPath := filepath.Join(dir, "gridwire.db")

	puzzlesDir := filepath.Join(dir, "puzzles")
	require.NoError(t, os.Mkdir(puzzlesDir, 0o755))
	writeFile(t, puzzlesDir, "invert.cue", invertPuzzle)

	out, _, err := execute(t, "submit", "--db", dbPath, "--format", "json", "invert", layoutPath)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]any)
	id, ok := data["id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, id)

	out, _, err = execute(t, "score", "--db", dbPath, puzzlesDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Scored 1 submission(s): 1 passed, 0 mismatched, 0 faulted, 0 disqualified")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	res, err := st.ReadResult(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, store.VerdictPass, res.Verdict)
}

func TestSubmit_RequiresDBFlag(t *testing.T) {
	dir := t.TempDir()
	layoutPath := writeFile(t, dir, "not.yaml", notLayout)

	_, _, err := execute(t, "submit", "invert", layoutPath)
	require.Error(t, err)
}

func TestSubmit_DeterministicIDs(t *testing.T) {
	dir := t.TempDir()
	layoutPath := writeFile(t, dir, "not.yaml", notLayout)

	opts := &SubmitOptions{
		RootOptions: &RootOptions{Format: "text"},
		Database:    filepath.Join(dir, "gridwire.db"),
		IDs:         testutil.NewSequentialIDGenerator("sub"),
	}

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())

	require.NoError(t, runSubmit(opts, "invert", layoutPath, cmd))
	require.NoError(t, runSubmit(opts, "invert", layoutPath, cmd))
	assert.Contains(t, out.String(), "Queued sub-00000001")
	assert.Contains(t, out.String(), "Queued sub-00000002")

	st, err := store.Open(opts.Database)
	require.NoError(t, err)
	defer st.Close()

	pending, err := st.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "sub-00000001", pending[0].ID)
	assert.Equal(t, "sub-00000002", pending[1].ID)
}
