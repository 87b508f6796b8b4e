// Package engine implements the circuit evaluator: the component that takes
// a built circuit graph and computes, tick by tick, the signal values
// propagated through it.
//
// ARCHITECTURE:
//
// Single-Owner Synchronous Ticks:
// An Evaluator is owned by exactly one caller and evaluates synchronously.
// A tick is an atomic computation over the graph's topological order; no
// partial mid-tick state is ever observable from outside. This ensures:
//   - Deterministic traces: identical graph + identical inputs produce
//     identical committed states and outputs on every run
//   - Simple reasoning about causality within a tick
//   - Lock-free horizontal scaling: concurrent batch scoring gives each
//     circuit its own Evaluator, with no shared mutable state
//
// Tick Algorithm:
//  1. Clear event outputs (events are single-tick pulses)
//  2. Apply external inputs to source chip outputs (analog clamped)
//  3. Seed sequential chip outputs from last tick's committed state
//  4. Evaluate combinational chips in topological order, propagating
//     along wires
//  5. Run sequential state transitions with this tick's resolved inputs
//  6. Commit next states and advance the tick counter
//
// Determinism Rules:
// All per-tick iteration is over sorted or topologically ordered slices.
// No map iteration order, wall-clock time, or uninitialized memory affects
// results. Fresh sequential state starts at chip-defined initial values.
//
// Failure Semantics:
// Chip-reported faults (division by zero, a blown fuse) are recoverable:
// they are surfaced in the tick's FaultReport, the tick commits, and the
// caller decides whether its puzzle rules end the run. The evaluator
// transitions to Faulted only on internal invariant violations, such as an
// evaluation order that reads an unresolved combinational output. That is
// an engine bug, not a user error.
package engine
