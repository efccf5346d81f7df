package dtmf

import (
	"math"
	"time"
)

/*-------------------------------------------------------------------
 *
 * Name:        Synthesize
 *
 * Purpose:    	Generate DTMF tones from text string.
 *
 * Inputs:	text		- Characters to send.  0-9, A-D, *, #
 *				  A space is a silent slot.
 *		sampleRate	- Samples per second.
 *		tone		- Length of each tone and of the gap after it.
 *		level		- Peak amplitude of the sum of both tones.
 *
 * Returns:	Audio, with a gap of the same length as the tone after
 *		every key.
 *
 *--------------------------------------------------------------------*/

func Synthesize(text string, sampleRate float64, tone time.Duration, level float64) ([]float32, error) {
	var n = DurationToSamples(tone, sampleRate)
	var out = make([]float32, 0, 2*n*len(text))

	for _, ch := range text {
		if ch == ' ' {
			out = append(out, make([]float32, 2*n)...)
			continue
		}

		var k, err = ParseKey(ch)
		if err != nil {
			return nil, err
		}
		out = PushButton(out, k, sampleRate, n, level)
		out = append(out, make([]float32, n)...)
	}

	return out, nil
}

// PushButton appends n samples of key k.  The two sine waves are each at
// half of level so the sum never exceeds it.
func PushButton(out []float32, k Key, sampleRate float64, n int, level float64) []float32 {
	var fa, fb, err = k.Frequencies()
	if err != nil {
		return append(out, make([]float32, n)...)
	}

	var phasea, phaseb float64
	var inca = 2 * math.Pi * fa / sampleRate
	var incb = 2 * math.Pi * fb / sampleRate

	for range n {
		var dtmf = math.Sin(phasea) + math.Sin(phaseb)
		out = append(out, float32(dtmf*level/2))
		phasea += inca
		phaseb += incb
	}

	return out
}
