package circuit

import (
	"fmt"
	"sort"
	"strings"
)

// Combinational cycle reporting.
//
// Ordering is computed with Kahn's algorithm (see graph.go). When it cannot
// consume every combinational chip, the leftovers contain at least one cycle.
// Tarjan's algorithm over the leftover subgraph identifies each strongly
// connected component, which is exactly the set of chips the player has to
// break apart with a sequential element or a wire removal.

// depGraph maps a combinational chip to the combinational chips it feeds.
type depGraph map[ChipID][]ChipID

// cycleErrors converts the cyclic remainder of the dependency graph into one
// COMBINATIONAL_CYCLE error per strongly connected component. Chip IDs in
// each error are sorted so reports are deterministic.
func cycleErrors(remaining depGraph) []*StructuralError {
	sccs := tarjanSCC(remaining)

	var errs []*StructuralError
	for _, scc := range sccs {
		// A chip not on any cycle forms an SCC of size 1; a self-loop is
		// also size 1. Only the latter is an error.
		if len(scc) == 1 && !hasSelfLoop(scc[0], remaining) {
			continue
		}
		path := reconstructCyclePath(scc, remaining)
		sort.Slice(scc, func(i, j int) bool { return scc[i] < scc[j] })
		errs = append(errs, newCombinationalCycleError(scc, path))
	}

	// Deterministic error order across identical builds.
	sort.Slice(errs, func(i, j int) bool { return errs[i].Chips[0] < errs[j].Chips[0] })
	return errs
}

func hasSelfLoop(node ChipID, graph depGraph) bool {
	for _, succ := range graph[node] {
		if succ == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in sorted order so component discovery is deterministic.
func tarjanSCC(graph depGraph) [][]ChipID {
	var (
		index   = 0
		stack   []ChipID
		indices = make(map[ChipID]int)
		lowlink = make(map[ChipID]int)
		onStack = make(map[ChipID]bool)
		sccs    [][]ChipID
	)

	var strongConnect func(ChipID)
	strongConnect = func(v ChipID) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v roots an SCC; pop the stack down to it.
		if lowlink[v] == indices[v] {
			var scc []ChipID
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]ChipID, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// reconstructCyclePath builds a human-readable cycle traversal from an SCC,
// e.g. "3 → 5 → 3". For self-loops the path is "3 → 3".
func reconstructCyclePath(scc []ChipID, graph depGraph) string {
	if len(scc) == 1 {
		return fmt.Sprintf("%d → %d", scc[0], scc[0])
	}

	inSCC := make(map[ChipID]bool, len(scc))
	for _, id := range scc {
		inSCC[id] = true
	}

	start := scc[0]
	for _, id := range scc {
		if id < start {
			start = id
		}
	}

	path := []string{fmt.Sprintf("%d", start)}
	visited := map[ChipID]bool{start: true}
	current := start
	for {
		var next ChipID
		found := false
		for _, succ := range graph[current] {
			if inSCC[succ] && !visited[succ] {
				next = succ
				found = true
				break
			}
		}
		if !found {
			break
		}
		path = append(path, fmt.Sprintf("%d", next))
		visited[next] = true
		current = next
	}
	path = append(path, fmt.Sprintf("%d", start))

	return strings.Join(path, " → ")
}
