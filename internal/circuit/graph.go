// Package circuit models the placed netlist of a puzzle circuit: chips on a
// grid, typed ports, and the wires connecting them.
//
// A Graph is built once per edit from placements and wires. Building
// validates the topology (signal kinds, single-driver wiring, dangling
// references, combinational cycles) and derives the evaluation order the
// engine walks every tick. All structural errors for a layout are collected
// and reported together; a layout with any structural error never yields a
// usable graph.
//
// Cycles through sequential chips are legal and representable: chips and
// wires are addressed by stable IDs, not references, and the topological
// order is a derived index recomputed on every rebuild.
package circuit

import (
	"sort"
)

// Graph is the assembled netlist plus its derived evaluation indexes.
// A Graph is immutable after Build; edits rebuild from scratch.
type Graph struct {
	placements map[ChipID]Placement
	defs       map[ChipID]Chip
	chipIDs    []ChipID // sorted

	wires []Wire // normalized: Source is always the driving port

	inputSource map[PortID]PortID   // input port → the output port driving it
	fanout      map[PortID][]PortID // output port → receiving input ports, sorted

	order       []ChipID // combinational chips in dependency order
	sequential  []ChipID // sorted
	sources     []ChipID // sorted
	outputPorts []PortID // every output port in the graph, sorted
}

// Build assembles a graph from placements and wires, resolving chip types
// against the catalog. It returns an *ErrorList error carrying every
// structural error found; on error no graph is returned.
func Build(placements []Placement, wires []Wire, cat Catalog) (*Graph, error) {
	g := &Graph{
		placements:  make(map[ChipID]Placement, len(placements)),
		defs:        make(map[ChipID]Chip, len(placements)),
		inputSource: make(map[PortID]PortID),
		fanout:      make(map[PortID][]PortID),
	}
	var errs []*StructuralError

	for _, pl := range placements {
		if _, dup := g.placements[pl.ID]; dup {
			errs = append(errs, newDuplicateChipError(pl.ID))
			continue
		}
		def, ok := cat.Lookup(pl.Type)
		if !ok {
			errs = append(errs, newUnknownChipTypeError(pl.ID, pl.Type))
			continue
		}
		g.placements[pl.ID] = pl
		g.defs[pl.ID] = def
		g.chipIDs = append(g.chipIDs, pl.ID)
	}
	sort.Slice(g.chipIDs, func(i, j int) bool { return g.chipIDs[i] < g.chipIDs[j] })

	errs = append(errs, g.resolveWires(wires)...)

	cycleErrs := g.computeOrder()
	errs = append(errs, cycleErrs...)

	if len(errs) > 0 {
		return nil, &ErrorList{Errors: errs}
	}

	g.buildPortIndexes()
	return g, nil
}

// resolveWires validates endpoints, normalizes driver→receiver order, and
// enforces the single-driver invariant. Invalid wires are dropped so later
// phases only see well-formed connections.
func (g *Graph) resolveWires(wires []Wire) []*StructuralError {
	var errs []*StructuralError
	driversFor := make(map[PortID][]PortID) // input port → driving output ports

	for _, w := range wires {
		specA, okA := g.portSpec(w.Source)
		specB, okB := g.portSpec(w.Dest)
		if !okA {
			errs = append(errs, newDanglingReferenceError(w.Source))
		}
		if !okB {
			errs = append(errs, newDanglingReferenceError(w.Dest))
		}
		if !okA || !okB {
			continue
		}

		if specA.Kind != specB.Kind {
			errs = append(errs, newKindMismatchError(w.Source, w.Dest))
			continue
		}

		switch {
		case specA.Dir == Output && specB.Dir == Output:
			errs = append(errs, newMultipleDriversError(w.Source, w.Dest))
			continue
		case specA.Dir == Input && specB.Dir == Input:
			// A wire between two inputs has no driver. It is legal but
			// inert: both ports read their kind's initial value.
			continue
		case specA.Dir == Input:
			// Normalize so Source is the driving port.
			w = Wire{Source: w.Dest, Dest: w.Source}
		}

		g.wires = append(g.wires, w)
		driversFor[w.Dest] = append(driversFor[w.Dest], w.Source)
	}

	inputs := make([]PortID, 0, len(driversFor))
	for in := range driversFor {
		inputs = append(inputs, in)
	}
	sort.Slice(inputs, func(i, j int) bool { return portLess(inputs[i], inputs[j]) })
	for _, in := range inputs {
		drivers := driversFor[in]
		if len(drivers) > 1 {
			errs = append(errs, newMultipleDriversError(append([]PortID{in}, drivers...)...))
		}
	}

	return errs
}

// computeOrder derives the combinational evaluation order with Kahn's
// algorithm. Edges exist only between combinational chips: outputs of
// sequential and source chips are known before evaluation starts, so they
// are never ordering dependencies, which is why a feedback loop is legal
// iff every cycle passes through one of them. Returns one error per
// combinational cycle found.
func (g *Graph) computeOrder() []*StructuralError {
	combinational := make(map[ChipID]bool)
	for _, id := range g.chipIDs {
		def := g.defs[id]
		if _, isSource := def.(Source); isSource {
			g.sources = append(g.sources, id)
			continue
		}
		if def.Sequential() {
			g.sequential = append(g.sequential, id)
			continue
		}
		combinational[id] = true
	}

	succs := make(depGraph)
	indegree := make(map[ChipID]int)
	for id := range combinational {
		succs[id] = nil
		indegree[id] = 0
	}
	for _, w := range g.wires {
		from, to := w.Source.Chip, w.Dest.Chip
		if combinational[from] && combinational[to] {
			succs[from] = append(succs[from], to)
			indegree[to]++
		}
	}

	// Ready set kept sorted so the derived order is identical on every
	// build of the same layout.
	var ready []ChipID
	for id := range combinational {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })

	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		g.order = append(g.order, id)
		for _, succ := range succs[id] {
			indegree[succ]--
			if indegree[succ] == 0 {
				ready = insertSorted(ready, succ)
			}
		}
	}

	if len(g.order) == len(combinational) {
		return nil
	}

	// Chips left with positive indegree are on (or downstream of) a cycle.
	remaining := make(depGraph)
	leftover := make(map[ChipID]bool)
	for id := range combinational {
		if indegree[id] > 0 {
			leftover[id] = true
		}
	}
	for id := range leftover {
		for _, succ := range succs[id] {
			if leftover[succ] {
				remaining[id] = append(remaining[id], succ)
			}
		}
		if remaining[id] == nil {
			remaining[id] = []ChipID{}
		}
	}
	return cycleErrors(remaining)
}

func (g *Graph) buildPortIndexes() {
	for _, w := range g.wires {
		g.inputSource[w.Dest] = w.Source
		g.fanout[w.Source] = append(g.fanout[w.Source], w.Dest)
	}
	for _, dests := range g.fanout {
		sort.Slice(dests, func(i, j int) bool { return portLess(dests[i], dests[j]) })
	}
	for _, id := range g.chipIDs {
		for i, spec := range g.defs[id].Ports() {
			if spec.Dir == Output {
				g.outputPorts = append(g.outputPorts, PortID{Chip: id, Port: i})
			}
		}
	}
}

func (g *Graph) portSpec(p PortID) (PortSpec, bool) {
	def, ok := g.defs[p.Chip]
	if !ok {
		return PortSpec{}, false
	}
	ports := def.Ports()
	if p.Port < 0 || p.Port >= len(ports) {
		return PortSpec{}, false
	}
	return ports[p.Port], true
}

// PortSpec returns the spec of the given port, if it exists in the graph.
func (g *Graph) PortSpec(p PortID) (PortSpec, bool) {
	return g.portSpec(p)
}

// Chip returns the definition of the given chip.
func (g *Graph) Chip(id ChipID) (Chip, bool) {
	def, ok := g.defs[id]
	return def, ok
}

// Placement returns the placement of the given chip.
func (g *Graph) Placement(id ChipID) (Placement, bool) {
	pl, ok := g.placements[id]
	return pl, ok
}

// ChipIDs returns every chip ID in the graph, sorted.
func (g *Graph) ChipIDs() []ChipID { return g.chipIDs }

// CombinationalOrder returns the combinational chips in evaluation order.
func (g *Graph) CombinationalOrder() []ChipID { return g.order }

// SequentialChips returns the sequential chips, sorted by ID.
func (g *Graph) SequentialChips() []ChipID { return g.sequential }

// SourceChips returns the externally driven chips, sorted by ID.
func (g *Graph) SourceChips() []ChipID { return g.sources }

// OutputPorts returns every output port in the graph, sorted by
// (chip ID, port index). This is the trace ordering.
func (g *Graph) OutputPorts() []PortID { return g.outputPorts }

// InputSource returns the output port driving the given input port, if any
// wire connects it.
func (g *Graph) InputSource(p PortID) (PortID, bool) {
	src, ok := g.inputSource[p]
	return src, ok
}

// Fanout returns the input ports receiving the given output port's value.
func (g *Graph) Fanout(p PortID) []PortID { return g.fanout[p] }

// Wires returns the normalized wires in the graph.
func (g *Graph) Wires() []Wire { return g.wires }

// NumChips returns the number of placed chips.
func (g *Graph) NumChips() int { return len(g.chipIDs) }

// NumWires returns the number of driven wires.
func (g *Graph) NumWires() int { return len(g.wires) }

func portLess(a, b PortID) bool {
	if a.Chip != b.Chip {
		return a.Chip < b.Chip
	}
	return a.Port < b.Port
}

func insertSorted(ids []ChipID, id ChipID) []ChipID {
	i := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
	ids = append(ids, 0)
	copy(ids[i+1:], ids[i:])
	ids[i] = id
	return ids
}
