package cw

import (
	"math"
	"sync"
)

// SineTableLen is the number of entries covering one full cycle.
const SineTableLen = 4096

// sineTable is built on first use and shared read-only by every oscillator.
var sineTable = sync.OnceValue(func() []float32 {
	var table = make([]float32, SineTableLen)
	for j := range table {
		var a = float64(j) * 2 * math.Pi / SineTableLen
		table[j] = float32(math.Sin(a))
	}
	return table
})

/*------------------------------------------------------------------
 *
 * Name:        oscillator
 *
 * Purpose:     Table lookup sine generator with a phase accumulator.
 *
 * Description:	Phase is kept in table-index units rather than radians.
 *		Each sample advances it by toneHz * SineTableLen / sampleRate
 *		and the output is linearly interpolated between the two
 *		bracketing table entries.
 *
 *----------------------------------------------------------------*/

type oscillator struct {
	phase    float64
	phaseInc float64
}

func newOscillator(sampleRate, toneHz float64) *oscillator {
	return &oscillator{
		phaseInc: toneHz * SineTableLen / sampleRate,
	}
}

// next returns the current sample and advances by one sample.
func (o *oscillator) next() float32 {
	var table = sineTable()
	var idx = int(o.phase)
	var frac = float32(o.phase - float64(idx))
	var nxt = (idx + 1) % SineTableLen
	var value = table[idx]*(1-frac) + table[nxt]*frac

	o.advance(1)

	return value
}

// advance moves the phase forward n samples without producing output.
func (o *oscillator) advance(n int) {
	if n == 0 {
		return
	}
	o.phase += o.phaseInc * float64(n)
	if o.phase >= SineTableLen {
		o.phase = math.Mod(o.phase, SineTableLen)
	}
}

func (o *oscillator) reset() {
	o.phase = 0
}
