package chips

import (
	"github.com/gridwire/gridwire/internal/circuit"
	"github.com/gridwire/gridwire/internal/signal"
)

// The built-in catalog. Logic chips operate bitwise on behavior values
// (which reduces to boolean logic on 0/1 wires); "not" treats its input as
// a boolean since bitwise negation has no meaning without a fixed width.
// Arithmetic wraps modulo 2^32 except "div", which faults on a zero
// divisor. Analog chips clamp everything they produce.

// Default returns a registry holding the built-in catalog.
func Default() *Registry {
	r := NewRegistry()
	for _, def := range builtins() {
		if err := r.Register(def); err != nil {
			panic(err)
		}
	}
	return r
}

func builtins() []circuit.Chip {
	return []circuit.Chip{
		// Externally driven sources, one per signal kind.
		NewSource("input", outs(sigB("out"))),
		NewSource("input-event", outs(sigE("out"))),
		NewSource("input-analog", outs(sigA("out"))),

		// Behavior logic.
		comb1("not", sigB("in"), sigB("out"), func(a uint32) uint32 {
			if a == 0 {
				return 1
			}
			return 0
		}),
		comb2("and", func(a, b uint32) uint32 { return a & b }),
		comb2("or", func(a, b uint32) uint32 { return a | b }),
		comb2("xor", func(a, b uint32) uint32 { return a ^ b }),
		comb1("buffer", sigB("in"), sigB("out"), func(a uint32) uint32 { return a }),
		muxDef(),

		// Behavior arithmetic.
		comb2("add", func(a, b uint32) uint32 { return a + b }),
		comb2("sub", func(a, b uint32) uint32 { return a - b }),
		comb2("mul", func(a, b uint32) uint32 { return a * b }),
		divDef(),
		comb2("cmp", func(a, b uint32) uint32 {
			if a < b {
				return 1
			}
			return 0
		}),
		comb2("eq", func(a, b uint32) uint32 {
			if a == b {
				return 1
			}
			return 0
		}),

		// Event plumbing.
		sampleDef(),
		latestDef(),
		discardDef(),
		joinDef(),
		demuxDef(),
		incDef(),
		fuseDef(),

		// Sequential state.
		delayDef(),
		delayEventDef(),
		counterDef(),
		latchDef(),
		clockDef(),

		// Analog.
		asumDef(),
		ampDef(),
	}
}

// Port spec helpers. Inputs face west/south, outputs east; the flow is only
// a presentation hint.

func sigB(name string) circuit.PortSpec {
	return circuit.PortSpec{Name: name, Kind: signal.KindBehavior}
}

func sigE(name string) circuit.PortSpec {
	return circuit.PortSpec{Name: name, Kind: signal.KindEvent}
}

func sigA(name string) circuit.PortSpec {
	return circuit.PortSpec{Name: name, Kind: signal.KindAnalog}
}

func ins(specs ...circuit.PortSpec) []circuit.PortSpec {
	out := make([]circuit.PortSpec, len(specs))
	for i, s := range specs {
		s.Dir = circuit.Input
		if i == 0 {
			s.Flow = circuit.FlowWest
		} else {
			s.Flow = circuit.FlowSouth
		}
		out[i] = s
	}
	return out
}

func outs(specs ...circuit.PortSpec) []circuit.PortSpec {
	out := make([]circuit.PortSpec, len(specs))
	for i, s := range specs {
		s.Dir = circuit.Output
		s.Flow = circuit.FlowEast
		out[i] = s
	}
	return out
}

func ports(in []circuit.PortSpec, out []circuit.PortSpec) []circuit.PortSpec {
	return append(append([]circuit.PortSpec{}, in...), out...)
}

// Input readers. Ports are kind-checked at build time, so a wrong dynamic
// type here would be an engine bug; the readers fall back to the kind's
// initial value rather than guessing.

func behaviorIn(v signal.Value) uint32 {
	if b, ok := v.(signal.Behavior); ok {
		return uint32(b)
	}
	return 0
}

func eventIn(v signal.Value) (uint32, bool) {
	if e, ok := v.(signal.Event); ok {
		return uint32(e), true
	}
	return 0, false
}

func analogIn(v signal.Value) float64 {
	if a, ok := v.(signal.Analog); ok {
		return float64(a)
	}
	return signal.AnalogMin
}

// comb1 builds a one-input one-output behavior chip.
func comb1(typ string, in, out circuit.PortSpec, fn func(uint32) uint32) circuit.Chip {
	return NewCombinational(typ, ports(ins(in), outs(out)),
		func(vals []signal.Value) ([]signal.Value, error) {
			return []signal.Value{signal.Behavior(fn(behaviorIn(vals[0])))}, nil
		})
}

// comb2 builds a two-input one-output behavior chip with ports a, b → out.
func comb2(typ string, fn func(a, b uint32) uint32) circuit.Chip {
	return NewCombinational(typ, ports(ins(sigB("a"), sigB("b")), outs(sigB("out"))),
		func(vals []signal.Value) ([]signal.Value, error) {
			return []signal.Value{signal.Behavior(fn(behaviorIn(vals[0]), behaviorIn(vals[1])))}, nil
		})
}

func constDef(tag string, value uint32) circuit.Chip {
	return NewCombinational(tag, outs(sigB("out")),
		func([]signal.Value) ([]signal.Value, error) {
			return []signal.Value{signal.Behavior(value)}, nil
		})
}

// mux selects "on" when sel is nonzero, "off" otherwise.
func muxDef() circuit.Chip {
	return NewCombinational("mux", ports(ins(sigB("on"), sigB("off"), sigB("sel")), outs(sigB("out"))),
		func(vals []signal.Value) ([]signal.Value, error) {
			if behaviorIn(vals[2]) != 0 {
				return []signal.Value{vals[0]}, nil
			}
			return []signal.Value{vals[1]}, nil
		})
}

// div faults on a zero divisor; the excluded input is a puzzle mechanic,
// not an engine failure.
func divDef() circuit.Chip {
	return NewCombinational("div", ports(ins(sigB("a"), sigB("b")), outs(sigB("out"))),
		func(vals []signal.Value) ([]signal.Value, error) {
			b := behaviorIn(vals[1])
			if b == 0 {
				return nil, Faultf("division by zero")
			}
			return []signal.Value{signal.Behavior(behaviorIn(vals[0]) / b)}, nil
		})
}

// sample emits the current behavior value as an event when triggered.
func sampleDef() circuit.Chip {
	return NewCombinational("sample", ports(ins(sigE("trig"), sigB("val")), outs(sigE("out"))),
		func(vals []signal.Value) ([]signal.Value, error) {
			if _, present := eventIn(vals[0]); present {
				return []signal.Value{signal.Event(behaviorIn(vals[1]))}, nil
			}
			return []signal.Value{signal.Absent{}}, nil
		})
}

// latest holds the value of the most recent event as a behavior.
func latestDef() circuit.Chip {
	return NewSequential("latest", ports(ins(sigE("in")), outs(sigB("out"))),
		func() []signal.Value { return []signal.Value{signal.Behavior(0)} },
		func(state []signal.Value) []signal.Value { return []signal.Value{state[0]} },
		func(state, in []signal.Value) ([]signal.Value, error) {
			if v, present := eventIn(in[0]); present {
				return []signal.Value{signal.Behavior(v)}, nil
			}
			return state, nil
		})
}

// discard forwards event presence but drops the payload.
func discardDef() circuit.Chip {
	return NewCombinational("discard", ports(ins(sigE("in")), outs(sigE("out"))),
		func(vals []signal.Value) ([]signal.Value, error) {
			if _, present := eventIn(vals[0]); present {
				return []signal.Value{signal.Event(0)}, nil
			}
			return []signal.Value{signal.Absent{}}, nil
		})
}

// join merges two event streams; when both fire on the same tick, "a" wins.
func joinDef() circuit.Chip {
	return NewCombinational("join", ports(ins(sigE("a"), sigE("b")), outs(sigE("out"))),
		func(vals []signal.Value) ([]signal.Value, error) {
			if v, present := eventIn(vals[0]); present {
				return []signal.Value{signal.Event(v)}, nil
			}
			if v, present := eventIn(vals[1]); present {
				return []signal.Value{signal.Event(v)}, nil
			}
			return []signal.Value{signal.Absent{}}, nil
		})
}

// demux routes an event to "on" when sel is nonzero, "off" otherwise.
func demuxDef() circuit.Chip {
	return NewCombinational("demux", ports(ins(sigE("in"), sigB("sel")), outs(sigE("on"), sigE("off"))),
		func(vals []signal.Value) ([]signal.Value, error) {
			v, present := eventIn(vals[0])
			if !present {
				return []signal.Value{signal.Absent{}, signal.Absent{}}, nil
			}
			if behaviorIn(vals[1]) != 0 {
				return []signal.Value{signal.Event(v), signal.Absent{}}, nil
			}
			return []signal.Value{signal.Absent{}, signal.Event(v)}, nil
		})
}

// inc adds a behavior offset to each passing event's value.
func incDef() circuit.Chip {
	return NewCombinational("inc", ports(ins(sigE("in"), sigB("by")), outs(sigE("out"))),
		func(vals []signal.Value) ([]signal.Value, error) {
			if v, present := eventIn(vals[0]); present {
				return []signal.Value{signal.Event(v + behaviorIn(vals[1]))}, nil
			}
			return []signal.Value{signal.Absent{}}, nil
		})
}

// fuse is the simulated error device: any event that reaches it blows the
// fuse and reports a fault for that tick.
func fuseDef() circuit.Chip {
	return NewCombinational("fuse", ins(sigE("in")),
		func(vals []signal.Value) ([]signal.Value, error) {
			if v, present := eventIn(vals[0]); present {
				return nil, Faultf("fuse blown by event value %d", v)
			}
			return nil, nil
		})
}

// delay is a one-tick behavior delay register. Its output this tick is the
// input it saw last tick, which is what makes it a legal cycle breaker.
func delayDef() circuit.Chip {
	return NewSequential("delay", ports(ins(sigB("in")), outs(sigB("out"))),
		func() []signal.Value { return []signal.Value{signal.Behavior(0)} },
		func(state []signal.Value) []signal.Value { return []signal.Value{state[0]} },
		func(_, in []signal.Value) ([]signal.Value, error) {
			return []signal.Value{signal.Behavior(behaviorIn(in[0]))}, nil
		})
}

// delay-event re-emits last tick's event, if any.
func delayEventDef() circuit.Chip {
	return NewSequential("delay-event", ports(ins(sigE("in")), outs(sigE("out"))),
		func() []signal.Value { return []signal.Value{signal.Absent{}} },
		func(state []signal.Value) []signal.Value { return []signal.Value{state[0]} },
		func(_, in []signal.Value) ([]signal.Value, error) {
			if v, present := eventIn(in[0]); present {
				return []signal.Value{signal.Event(v)}, nil
			}
			return []signal.Value{signal.Absent{}}, nil
		})
}

// counter counts inc events, with an event reset. Reset beats inc on ticks
// where both fire.
func counterDef() circuit.Chip {
	return NewSequential("counter", ports(ins(sigE("inc"), sigE("reset")), outs(sigB("count"))),
		func() []signal.Value { return []signal.Value{signal.Behavior(0)} },
		func(state []signal.Value) []signal.Value { return []signal.Value{state[0]} },
		func(state, in []signal.Value) ([]signal.Value, error) {
			if _, present := eventIn(in[1]); present {
				return []signal.Value{signal.Behavior(0)}, nil
			}
			if _, present := eventIn(in[0]); present {
				return []signal.Value{signal.Behavior(behaviorIn(state[0]) + 1)}, nil
			}
			return state, nil
		})
}

// latch is a set/reset flip-flop. Set beats reset on ticks where both fire.
func latchDef() circuit.Chip {
	return NewSequential("latch", ports(ins(sigE("set"), sigE("reset")), outs(sigB("out"))),
		func() []signal.Value { return []signal.Value{signal.Behavior(0)} },
		func(state []signal.Value) []signal.Value { return []signal.Value{state[0]} },
		func(state, in []signal.Value) ([]signal.Value, error) {
			if _, present := eventIn(in[0]); present {
				return []signal.Value{signal.Behavior(1)}, nil
			}
			if _, present := eventIn(in[1]); present {
				return []signal.Value{signal.Behavior(0)}, nil
			}
			return state, nil
		})
}

// clock emits an event every "period" ticks (period 0 is treated as 1).
// State is the countdown until the next emission.
func clockDef() circuit.Chip {
	return NewSequential("clock", ports(ins(sigB("period")), outs(sigE("tick"))),
		func() []signal.Value { return []signal.Value{signal.Behavior(0)} },
		func(state []signal.Value) []signal.Value {
			if behaviorIn(state[0]) == 0 {
				return []signal.Value{signal.Event(0)}
			}
			return []signal.Value{signal.Absent{}}
		},
		func(state, in []signal.Value) ([]signal.Value, error) {
			period := behaviorIn(in[0])
			if period == 0 {
				period = 1
			}
			countdown := behaviorIn(state[0])
			if countdown == 0 {
				countdown = period
			}
			return []signal.Value{signal.Behavior(countdown - 1)}, nil
		})
}

// asum adds two analog inputs, clamped to the legal domain.
func asumDef() circuit.Chip {
	return NewCombinational("asum", ports(ins(sigA("a"), sigA("b")), outs(sigA("out"))),
		func(vals []signal.Value) ([]signal.Value, error) {
			return []signal.Value{signal.Clamp(analogIn(vals[0]) + analogIn(vals[1]))}, nil
		})
}

// amp doubles an analog input, clamped to the legal domain.
func ampDef() circuit.Chip {
	return NewCombinational("amp", ports(ins(sigA("in")), outs(sigA("out"))),
		func(vals []signal.Value) ([]signal.Value, error) {
			return []signal.Value{signal.Clamp(2 * analogIn(vals[0]))}, nil
		})
}
