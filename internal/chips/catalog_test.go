package chips

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridwire/gridwire/internal/circuit"
	"github.com/gridwire/gridwire/internal/signal"
)

func evalComb(t *testing.T, typ string, in ...signal.Value) ([]signal.Value, error) {
	t.Helper()
	def, ok := Default().Lookup(typ)
	require.True(t, ok, "chip type %q not in catalog", typ)
	comb, ok := def.(circuit.Combinational)
	require.True(t, ok, "chip type %q is not combinational", typ)
	return comb.Evaluate(in)
}

func mustEval(t *testing.T, typ string, in ...signal.Value) []signal.Value {
	t.Helper()
	out, err := evalComb(t, typ, in...)
	require.NoError(t, err)
	return out
}

func TestLogicChips(t *testing.T) {
	tests := []struct {
		typ  string
		a, b uint32
		want uint32
	}{
		{"and", 0b1100, 0b1010, 0b1000},
		{"or", 0b1100, 0b1010, 0b1110},
		{"xor", 0b1100, 0b1010, 0b0110},
		{"add", 5, 7, 12},
		{"sub", 3, 5, 4294967294}, // wraps modulo 2^32
		{"mul", 6, 7, 42},
		{"cmp", 3, 5, 1},
		{"cmp", 5, 3, 0},
		{"eq", 4, 4, 1},
		{"eq", 4, 5, 0},
	}

	for _, tt := range tests {
		out := mustEval(t, tt.typ, signal.Behavior(tt.a), signal.Behavior(tt.b))
		require.Len(t, out, 1)
		assert.Equal(t, signal.Behavior(tt.want), out[0], "%s(%d, %d)", tt.typ, tt.a, tt.b)
	}
}

func TestNot_IsLogical(t *testing.T) {
	assert.Equal(t, signal.Behavior(1), mustEval(t, "not", signal.Behavior(0))[0])
	assert.Equal(t, signal.Behavior(0), mustEval(t, "not", signal.Behavior(1))[0])
	assert.Equal(t, signal.Behavior(0), mustEval(t, "not", signal.Behavior(42))[0])
}

func TestMux(t *testing.T) {
	on, off := signal.Behavior(10), signal.Behavior(20)
	assert.Equal(t, on, mustEval(t, "mux", on, off, signal.Behavior(1))[0])
	assert.Equal(t, off, mustEval(t, "mux", on, off, signal.Behavior(0))[0])
}

func TestDiv_FaultsOnZeroDivisor(t *testing.T) {
	out := mustEval(t, "div", signal.Behavior(10), signal.Behavior(3))
	assert.Equal(t, signal.Behavior(3), out[0])

	_, err := evalComb(t, "div", signal.Behavior(10), signal.Behavior(0))
	require.Error(t, err)
	fault, ok := AsFault(err)
	require.True(t, ok)
	assert.Equal(t, "division by zero", fault.Cause)
}

func TestSample(t *testing.T) {
	out := mustEval(t, "sample", signal.Event(0), signal.Behavior(7))
	assert.Equal(t, signal.Event(7), out[0])

	out = mustEval(t, "sample", signal.Absent{}, signal.Behavior(7))
	assert.Equal(t, signal.Absent{}, out[0])
}

func TestDiscard(t *testing.T) {
	assert.Equal(t, signal.Event(0), mustEval(t, "discard", signal.Event(9))[0])
	assert.Equal(t, signal.Absent{}, mustEval(t, "discard", signal.Absent{})[0])
}

func TestJoin_FirstInputWins(t *testing.T) {
	assert.Equal(t, signal.Event(1), mustEval(t, "join", signal.Event(1), signal.Event(2))[0])
	assert.Equal(t, signal.Event(2), mustEval(t, "join", signal.Absent{}, signal.Event(2))[0])
	assert.Equal(t, signal.Absent{}, mustEval(t, "join", signal.Absent{}, signal.Absent{})[0])
}

func TestDemux(t *testing.T) {
	out := mustEval(t, "demux", signal.Event(5), signal.Behavior(1))
	assert.Equal(t, []signal.Value{signal.Event(5), signal.Absent{}}, out)

	out = mustEval(t, "demux", signal.Event(5), signal.Behavior(0))
	assert.Equal(t, []signal.Value{signal.Absent{}, signal.Event(5)}, out)

	out = mustEval(t, "demux", signal.Absent{}, signal.Behavior(1))
	assert.Equal(t, []signal.Value{signal.Absent{}, signal.Absent{}}, out)
}

func TestInc(t *testing.T) {
	assert.Equal(t, signal.Event(12), mustEval(t, "inc", signal.Event(10), signal.Behavior(2))[0])
	assert.Equal(t, signal.Absent{}, mustEval(t, "inc", signal.Absent{}, signal.Behavior(2))[0])
}

func TestFuse(t *testing.T) {
	out, err := evalComb(t, "fuse", signal.Absent{})
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = evalComb(t, "fuse", signal.Event(3))
	require.Error(t, err)
	fault, ok := AsFault(err)
	require.True(t, ok)
	assert.Equal(t, "fuse blown by event value 3", fault.Cause)
}

func TestAnalogChips_Clamp(t *testing.T) {
	out := mustEval(t, "asum", signal.Analog(0.3), signal.Analog(0.9))
	assert.Equal(t, signal.Analog(1.0), out[0])

	out = mustEval(t, "asum", signal.Analog(0.25), signal.Analog(0.25))
	assert.Equal(t, signal.Analog(0.5), out[0])

	out = mustEval(t, "amp", signal.Analog(0.75))
	assert.Equal(t, signal.Analog(1.0), out[0])
	out = mustEval(t, "amp", signal.Analog(0.2))
	assert.InDelta(t, 0.4, float64(out[0].(signal.Analog)), 1e-12)
}

func seqChip(t *testing.T, typ string) circuit.Sequential {
	t.Helper()
	def, ok := Default().Lookup(typ)
	require.True(t, ok)
	seq, ok := def.(circuit.Sequential)
	require.True(t, ok)
	return seq
}

func TestDelay_OneTickRegister(t *testing.T) {
	delay := seqChip(t, "delay")

	state := delay.InitialState()
	assert.Equal(t, []signal.Value{signal.Behavior(0)}, delay.Outputs(state))

	state, err := delay.Next(state, []signal.Value{signal.Behavior(7)})
	require.NoError(t, err)
	assert.Equal(t, []signal.Value{signal.Behavior(7)}, delay.Outputs(state))
}

func TestCounter_ResetBeatsInc(t *testing.T) {
	counter := seqChip(t, "counter")
	state := counter.InitialState()

	state, err := counter.Next(state, []signal.Value{signal.Event(0), signal.Absent{}})
	require.NoError(t, err)
	state, err = counter.Next(state, []signal.Value{signal.Event(0), signal.Absent{}})
	require.NoError(t, err)
	assert.Equal(t, []signal.Value{signal.Behavior(2)}, counter.Outputs(state))

	// Simultaneous inc and reset: reset wins.
	state, err = counter.Next(state, []signal.Value{signal.Event(0), signal.Event(0)})
	require.NoError(t, err)
	assert.Equal(t, []signal.Value{signal.Behavior(0)}, counter.Outputs(state))
}

func TestLatch_SetBeatsReset(t *testing.T) {
	latch := seqChip(t, "latch")
	state := latch.InitialState()

	state, err := latch.Next(state, []signal.Value{signal.Event(0), signal.Absent{}})
	require.NoError(t, err)
	assert.Equal(t, []signal.Value{signal.Behavior(1)}, latch.Outputs(state))

	state, err = latch.Next(state, []signal.Value{signal.Event(0), signal.Event(0)})
	require.NoError(t, err)
	assert.Equal(t, []signal.Value{signal.Behavior(1)}, latch.Outputs(state))

	state, err = latch.Next(state, []signal.Value{signal.Absent{}, signal.Event(0)})
	require.NoError(t, err)
	assert.Equal(t, []signal.Value{signal.Behavior(0)}, latch.Outputs(state))
}

func TestClock_Period(t *testing.T) {
	clock := seqChip(t, "clock")
	state := clock.InitialState()
	period := []signal.Value{signal.Behavior(3)}

	// Initial state fires immediately, then every 3 ticks.
	var fired []bool
	for i := 0; i < 7; i++ {
		out := clock.Outputs(state)
		_, present := out[0].(signal.Event)
		fired = append(fired, present)
		var err error
		state, err = clock.Next(state, period)
		require.NoError(t, err)
	}
	assert.Equal(t, []bool{true, false, false, true, false, false, true}, fired)
}

func TestRegistry_DuplicateRejected(t *testing.T) {
	r := NewRegistry()
	def := NewSource("input", outs(sigB("out")))
	require.NoError(t, r.Register(def))
	assert.Error(t, r.Register(def))
}

func TestRegistry_ConstLookup(t *testing.T) {
	r := Default()

	def, ok := r.Lookup("const:42")
	require.True(t, ok)
	comb, ok := def.(circuit.Combinational)
	require.True(t, ok)

	out, err := comb.Evaluate(nil)
	require.NoError(t, err)
	assert.Equal(t, []signal.Value{signal.Behavior(42)}, out)

	_, ok = r.Lookup("const:banana")
	assert.False(t, ok)
}

func TestRegistry_Types_Sorted(t *testing.T) {
	types := Default().Types()
	require.NotEmpty(t, types)
	for i := 1; i < len(types); i++ {
		assert.Less(t, types[i-1], types[i])
	}
	assert.Contains(t, types, "not")
	assert.Contains(t, types, "delay")
	assert.Contains(t, types, "input-analog")
}
