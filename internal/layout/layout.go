// Package layout reads and writes circuit layout files.
//
// A layout is the edit layer's serialized form of a circuit: named chip
// placements plus wires referencing ports as "chip.port". Layouts are YAML:
//
//	chips:
//	  - name: gen
//	    type: input
//	    pos: [0, 0]
//	  - name: n1
//	    type: not
//	    pos: [2, 0]
//	    orient: 90
//	wires:
//	  - from: gen.out
//	    to: n1.in
//
// Chip names exist only in the file format; parsing assigns stable numeric
// ChipIDs in declaration order and keeps the name table around so puzzles
// and diagnostics can translate back and forth.
package layout

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gridwire/gridwire/internal/circuit"
)

type chipDecl struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Pos    [2]int `yaml:"pos"`
	Orient int    `yaml:"orient,omitempty"`
}

type wireDecl struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

type fileDecl struct {
	Chips []chipDecl `yaml:"chips"`
	Wires []wireDecl `yaml:"wires"`
}

// Circuit is a parsed layout: placements and wires ready for
// circuit.Build, plus the name tables for resolving "chip.port" refs.
type Circuit struct {
	Placements []circuit.Placement
	Wires      []circuit.Wire

	cat      circuit.Catalog
	ids      map[string]circuit.ChipID
	names    map[circuit.ChipID]string
	decls    map[circuit.ChipID]chipDecl
	portIdx  map[circuit.ChipID]map[string]int
	portSpec map[circuit.PortID]circuit.PortSpec
}

// Load reads and parses a layout file.
func Load(path string, cat circuit.Catalog) (*Circuit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}
	c, err := Parse(data, cat)
	if err != nil {
		return nil, fmt.Errorf("layout %s: %w", path, err)
	}
	return c, nil
}

// Parse parses a layout document. Chip IDs are assigned in declaration
// order starting at 1, so the same file always yields the same graph.
func Parse(data []byte, cat circuit.Catalog) (*Circuit, error) {
	var file fileDecl
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	if len(file.Chips) == 0 {
		return nil, fmt.Errorf("layout has no chips")
	}

	c := &Circuit{
		cat:      cat,
		ids:      make(map[string]circuit.ChipID),
		names:    make(map[circuit.ChipID]string),
		decls:    make(map[circuit.ChipID]chipDecl),
		portIdx:  make(map[circuit.ChipID]map[string]int),
		portSpec: make(map[circuit.PortID]circuit.PortSpec),
	}

	for i, decl := range file.Chips {
		if decl.Name == "" {
			return nil, fmt.Errorf("chip %d: missing name", i)
		}
		if _, dup := c.ids[decl.Name]; dup {
			return nil, fmt.Errorf("chip %q: duplicate name", decl.Name)
		}
		orient, err := parseOrient(decl.Orient)
		if err != nil {
			return nil, fmt.Errorf("chip %q: %w", decl.Name, err)
		}

		id := circuit.ChipID(i + 1)
		c.ids[decl.Name] = id
		c.names[id] = decl.Name
		c.decls[id] = decl
		c.Placements = append(c.Placements, circuit.Placement{
			ID:     id,
			Type:   decl.Type,
			Pos:    circuit.Coord{X: decl.Pos[0], Y: decl.Pos[1]},
			Orient: orient,
		})

		// Port names resolve through the catalog. Unknown chip types are
		// indexed empty here; circuit.Build reports them structurally
		// unless a wire touches one of their ports first.
		if def, ok := cat.Lookup(decl.Type); ok {
			idx := make(map[string]int)
			for pi, spec := range def.Ports() {
				idx[spec.Name] = pi
				c.portSpec[circuit.PortID{Chip: id, Port: pi}] = spec
			}
			c.portIdx[id] = idx
		}
	}

	for i, decl := range file.Wires {
		src, err := c.ResolvePort(decl.From)
		if err != nil {
			return nil, fmt.Errorf("wire %d: from: %w", i, err)
		}
		dst, err := c.ResolvePort(decl.To)
		if err != nil {
			return nil, fmt.Errorf("wire %d: to: %w", i, err)
		}
		c.Wires = append(c.Wires, circuit.Wire{Source: src, Dest: dst})
	}

	return c, nil
}

func parseOrient(degrees int) (circuit.Orientation, error) {
	switch degrees {
	case 0:
		return circuit.Orient0, nil
	case 90:
		return circuit.Orient90, nil
	case 180:
		return circuit.Orient180, nil
	case 270:
		return circuit.Orient270, nil
	default:
		return 0, fmt.Errorf("orient must be 0, 90, 180, or 270, got %d", degrees)
	}
}

// ResolvePort resolves a "chip.port" reference to a PortID.
func (c *Circuit) ResolvePort(ref string) (circuit.PortID, error) {
	chipName, portName, ok := strings.Cut(ref, ".")
	if !ok {
		return circuit.PortID{}, fmt.Errorf("port ref %q is not of the form chip.port", ref)
	}
	id, ok := c.ids[chipName]
	if !ok {
		return circuit.PortID{}, fmt.Errorf("unknown chip %q", chipName)
	}
	idx, ok := c.portIdx[id]
	if !ok {
		return circuit.PortID{}, fmt.Errorf("chip %q has unknown type %q", chipName, c.decls[id].Type)
	}
	pi, ok := idx[portName]
	if !ok {
		return circuit.PortID{}, fmt.Errorf("chip %q has no port %q", chipName, portName)
	}
	return circuit.PortID{Chip: id, Port: pi}, nil
}

// PortSpec returns the spec of a resolved port.
func (c *Circuit) PortSpec(p circuit.PortID) (circuit.PortSpec, bool) {
	spec, ok := c.portSpec[p]
	return spec, ok
}

// ChipName returns the layout name of a chip, for diagnostics. Falls back
// to the numeric ID when the chip is not in this layout.
func (c *Circuit) ChipName(id circuit.ChipID) string {
	if name, ok := c.names[id]; ok {
		return name
	}
	return fmt.Sprintf("%d", id)
}

// PortName renders a PortID back into "chip.port" form for diagnostics.
func (c *Circuit) PortName(p circuit.PortID) string {
	if spec, ok := c.portSpec[p]; ok {
		return c.ChipName(p.Chip) + "." + spec.Name
	}
	return p.String()
}

// Build assembles the circuit graph, collecting structural errors.
func (c *Circuit) Build() (*circuit.Graph, error) {
	return circuit.Build(c.Placements, c.Wires, c.cat)
}

// Marshal serializes the layout back to YAML. Chips are emitted in ID
// order and wires in declaration order, so save files are stable.
func (c *Circuit) Marshal() ([]byte, error) {
	var file fileDecl

	ids := make([]circuit.ChipID, 0, len(c.decls))
	for id := range c.decls {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		file.Chips = append(file.Chips, c.decls[id])
	}

	for _, w := range c.Wires {
		file.Wires = append(file.Wires, wireDecl{
			From: c.PortName(w.Source),
			To:   c.PortName(w.Dest),
		})
	}

	return yaml.Marshal(&file)
}
