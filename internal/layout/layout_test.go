package layout_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridwire/gridwire/internal/chips"
	"github.com/gridwire/gridwire/internal/circuit"
	"github.com/gridwire/gridwire/internal/layout"
)

const sampleLayout = `
chips:
  - name: gen
    type: input
    pos: [0, 0]
  - name: n1
    type: not
    pos: [2, 0]
    orient: 90
wires:
  - from: gen.out
    to: n1.in
`

func TestParse(t *testing.T) {
	c, err := layout.Parse([]byte(sampleLayout), chips.Default())
	require.NoError(t, err)

	require.Len(t, c.Placements, 2)
	assert.Equal(t, circuit.Placement{
		ID:   1,
		Type: "input",
	}, c.Placements[0])
	assert.Equal(t, circuit.Placement{
		ID:     2,
		Type:   "not",
		Pos:    circuit.Coord{X: 2},
		Orient: circuit.Orient90,
	}, c.Placements[1])

	require.Len(t, c.Wires, 1)
	assert.Equal(t, circuit.Wire{
		Source: circuit.PortID{Chip: 1, Port: 0},
		Dest:   circuit.PortID{Chip: 2, Port: 0},
	}, c.Wires[0])
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			"empty document",
			`wires: []`,
			"layout has no chips",
		},
		{
			"missing chip name",
			"chips:\n  - type: input\n",
			"chip 0: missing name",
		},
		{
			"duplicate chip name",
			"chips:\n  - name: a\n    type: input\n  - name: a\n    type: not\n",
			`chip "a": duplicate name`,
		},
		{
			"bad orient",
			"chips:\n  - name: a\n    type: input\n    orient: 45\n",
			"orient must be 0, 90, 180, or 270, got 45",
		},
		{
			"wire to unknown chip",
			"chips:\n  - name: a\n    type: input\nwires:\n  - from: a.out\n    to: b.in\n",
			`wire 0: to: unknown chip "b"`,
		},
		{
			"wire to unknown port",
			"chips:\n  - name: a\n    type: input\n  - name: b\n    type: not\nwires:\n  - from: a.out\n    to: b.bogus\n",
			`wire 0: to: chip "b" has no port "bogus"`,
		},
		{
			"malformed port ref",
			"chips:\n  - name: a\n    type: input\nwires:\n  - from: aout\n    to: a.out\n",
			`wire 0: from: port ref "aout" is not of the form chip.port`,
		},
		{
			"wire touching unknown chip type",
			"chips:\n  - name: a\n    type: frobnicator\nwires:\n  - from: a.out\n    to: a.out\n",
			`wire 0: from: chip "a" has unknown type "frobnicator"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := layout.Parse([]byte(tt.doc), chips.Default())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParse_UnknownTypeWithoutWiresIsDeferred(t *testing.T) {
	// An unknown chip type only fails at parse time if a wire references
	// its ports. Otherwise the graph build reports it structurally.
	doc := "chips:\n  - name: a\n    type: frobnicator\n"
	c, err := layout.Parse([]byte(doc), chips.Default())
	require.NoError(t, err)

	_, err = c.Build()
	require.Error(t, err)
	assert.True(t, circuit.HasCode(err, circuit.ErrCodeUnknownChipType))
}

func TestResolvePort(t *testing.T) {
	c, err := layout.Parse([]byte(sampleLayout), chips.Default())
	require.NoError(t, err)

	p, err := c.ResolvePort("n1.out")
	require.NoError(t, err)
	assert.Equal(t, circuit.PortID{Chip: 2, Port: 1}, p)

	spec, ok := c.PortSpec(p)
	require.True(t, ok)
	assert.Equal(t, "out", spec.Name)
	assert.Equal(t, circuit.Output, spec.Dir)
}

func TestNames(t *testing.T) {
	c, err := layout.Parse([]byte(sampleLayout), chips.Default())
	require.NoError(t, err)

	assert.Equal(t, "gen", c.ChipName(1))
	assert.Equal(t, "7", c.ChipName(7))
	assert.Equal(t, "n1.in", c.PortName(circuit.PortID{Chip: 2, Port: 0}))
	assert.Equal(t, "9:0", c.PortName(circuit.PortID{Chip: 9, Port: 0}))
}

func TestBuild(t *testing.T) {
	c, err := layout.Parse([]byte(sampleLayout), chips.Default())
	require.NoError(t, err)

	g, err := c.Build()
	require.NoError(t, err)
	assert.Equal(t, 2, g.NumChips())
	assert.Equal(t, 1, g.NumWires())
}

func TestMarshal_Stable(t *testing.T) {
	c, err := layout.Parse([]byte(sampleLayout), chips.Default())
	require.NoError(t, err)

	out1, err := c.Marshal()
	require.NoError(t, err)

	// Round-trip: parsing the output and marshaling again is a fixpoint.
	c2, err := layout.Parse(out1, chips.Default())
	require.NoError(t, err)
	out2, err := c2.Marshal()
	require.NoError(t, err)
	assert.Equal(t, string(out1), string(out2))

	assert.Contains(t, string(out1), "from: gen.out")
	assert.Contains(t, string(out1), "to: n1.in")
}
