package cw

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func Test_NewModulator_UnitSamples(t *testing.T) {
	// 20 WPM is 60 ms per unit.
	assert.Equal(t, 2880, NewModulator(48000, 700, 20, 1).UnitSamples())
	assert.Equal(t, 480, NewModulator(8000, 700, 20, 1).UnitSamples())

	// Absurd speeds still produce at least one sample per unit.
	assert.Equal(t, 1, NewModulator(100, 700, 100000, 1).UnitSamples())
}

func Test_Modulate_MultipleOfUnit(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var wpm = rapid.Float64Range(5, 60).Draw(t, "wpm")
		var units = Units(rapid.SliceOf(rapid.Bool()).Draw(t, "units"))
		var bufLen = rapid.IntRange(0, 20000).Draw(t, "bufLen")

		var m = NewModulator(8000, 600, wpm, 0.5)
		var out = make([]float32, bufLen)
		var cursor = units.Cursor()
		var n = m.Modulate(cursor, out)

		if n%m.UnitSamples() != 0 {
			t.Fatalf("wrote %d samples, not a multiple of %d", n, m.UnitSamples())
		}
		var consumed = len(units) - cursor.Remaining()
		if n != consumed*m.UnitSamples() {
			t.Fatalf("wrote %d samples for %d units", n, consumed)
		}
		if cursor.Remaining() > 0 && bufLen-n >= m.UnitSamples() {
			t.Fatalf("stopped early with room for another unit")
		}
	})
}

func Test_Modulate_GapIsSilent(t *testing.T) {
	var m = NewModulator(8000, 700, 20, 1)
	var u = m.UnitSamples()
	var out = make([]float32, 3*u)

	var n = m.Modulate(Units{true, false, true}.Cursor(), out)
	require.Equal(t, 3*u, n)

	for _, s := range out[u : 2*u] {
		assert.Zero(t, s)
	}

	var peak float32
	for _, s := range out[:u] {
		peak = max(peak, float32(math.Abs(float64(s))))
	}
	assert.InDelta(t, 1.0, peak, 0.01)
}

func Test_Modulate_Level(t *testing.T) {
	var m = NewModulator(8000, 700, 20, 0.1)
	var out = make([]float32, m.UnitSamples())
	m.Modulate(Units{true}.Cursor(), out)

	for _, s := range out {
		assert.LessOrEqual(t, math.Abs(float64(s)), 0.1+1e-6)
	}
}

func Test_Modulate_PhaseContinuity(t *testing.T) {
	var keyed = NewModulator(48000, 700, 25, 1)
	var steady = NewModulator(48000, 700, 25, 1)
	var u = keyed.UnitSamples()

	var out = make([]float32, 2*u)
	keyed.Modulate(Units{true, false}.Cursor(), out)
	steady.Modulate(Units{true, true}.Cursor(), out)

	assert.Equal(t, steady.osc.phase, keyed.osc.phase)

	// And the next tone picks up exactly where a continuous tone would be.
	var a = make([]float32, u)
	var b = make([]float32, u)
	keyed.Modulate(Units{true}.Cursor(), a)
	steady.Modulate(Units{true}.Cursor(), b)
	assert.Equal(t, b, a)
}

func Test_Modulate_PartialBuffer(t *testing.T) {
	var m = NewModulator(8000, 700, 20, 1)
	var u = m.UnitSamples()
	var cursor = Units{true, true, true}.Cursor()

	var out = make([]float32, 2*u+u/2)
	assert.Equal(t, 2*u, m.Modulate(cursor, out))
	assert.Equal(t, 1, cursor.Remaining())

	assert.Equal(t, u, m.Modulate(cursor, out))
	assert.Equal(t, 0, m.Modulate(cursor, out))
}

func Test_ResetPhase(t *testing.T) {
	var m = NewModulator(8000, 700, 20, 1)
	var first = make([]float32, m.UnitSamples())
	m.Modulate(Units{true}.Cursor(), first)

	var second = make([]float32, m.UnitSamples())
	m.ResetPhase()
	m.Modulate(Units{true}.Cursor(), second)

	assert.Equal(t, first, second)
	assert.Zero(t, first[0])
}

func Test_Render(t *testing.T) {
	var audio, err = Render("K", 8000, 700, 20, 0.1)
	require.NoError(t, err)

	var m = NewModulator(8000, 700, 20, 0.1)
	// K is -.- which is 3+1+1+1+3 units.
	assert.Len(t, audio, 9*m.UnitSamples())

	_, err = Render("K{", 8000, 700, 20, 0.1)
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func Test_DecibelsToLevel(t *testing.T) {
	assert.InDelta(t, 0.1, DecibelsToLevel(-20), 1e-12)
	assert.InDelta(t, 1.0, DecibelsToLevel(0), 1e-12)
}

func Test_Oscillator_Wraps(t *testing.T) {
	var o = newOscillator(8000, 1000)
	for range 100000 {
		var v = o.next()
		if v < -1.0001 || v > 1.0001 {
			t.Fatalf("sample out of range: %v", v)
		}
	}
	assert.Less(t, o.phase, float64(SineTableLen))
	assert.GreaterOrEqual(t, o.phase, 0.0)
}

func Test_Oscillator_Advance(t *testing.T) {
	var a = newOscillator(8000, 440)
	var b = newOscillator(8000, 440)
	for range 100 {
		a.next()
	}
	b.advance(100)
	assert.InDelta(t, a.phase, b.phase, 1e-6)
}
