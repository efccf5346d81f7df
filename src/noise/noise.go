// Package noise fills holes in received audio with something that sounds
// like the background hiss around them.
package noise

import (
	"math"
	"slices"
	"time"
)

const (
	DefaultWindow = 20 * time.Millisecond
	DefaultCutoff = 3000.0 // Hz

	defaultSeed = 0x12345678
)

// Range is a half-open span of sample positions, [Start, End).
type Range struct {
	Start int
	End   int
}

// Len is the number of samples covered.
func (r Range) Len() int {
	return max(r.End-r.Start, 0)
}

/*-------------------------------------------------------------------
 *
 * Name:        EstimateFloor
 *
 * Purpose:    	Find the quietest part of a message outside some ranges.
 *
 * Inputs:	samples		- The whole message.
 *		exclude		- Spans to skip, e.g. where DTMF tones were.
 *		windowLen	- RMS window in samples.
 *
 * Returns:	Smallest RMS of any full window that lies entirely
 *		outside the excluded spans, or 0 if there is none.
 *
 * Description:	The minimum rather than the average keeps the replacement
 *		noise at or below what the listener already hears.
 *
 *--------------------------------------------------------------------*/

func EstimateFloor(samples []float32, exclude []Range, windowLen int) float32 {
	if windowLen <= 0 {
		return 0
	}

	var sorted = slices.Clone(exclude)
	slices.SortFunc(sorted, func(a, b Range) int { return a.Start - b.Start })

	var best = math.Inf(1)
	var pos = 0
	for _, r := range sorted {
		var start = min(max(r.Start, 0), len(samples))
		if pos < start {
			best = minWindowRMS(samples[pos:start], windowLen, best)
		}
		pos = max(pos, min(r.End, len(samples)))
	}
	if pos < len(samples) {
		best = minWindowRMS(samples[pos:], windowLen, best)
	}

	if math.IsInf(best, 1) {
		return 0
	}
	return float32(best)
}

func minWindowRMS(segment []float32, windowLen int, best float64) float64 {
	for i := 0; i+windowLen <= len(segment); i += windowLen {
		var sumSq float64
		for _, s := range segment[i : i+windowLen] {
			sumSq += float64(s) * float64(s)
		}
		best = min(best, math.Sqrt(sumSq/float64(windowLen)))
	}
	return best
}

// WindowSamples converts a window duration to a sample count, at least one.
func WindowSamples(d time.Duration, sampleRate float64) int {
	return max(int(math.Round(d.Seconds()*sampleRate)), 1)
}

/*-------------------------------------------------------------------
 *
 * Name:        FillBandLimitedGaussian
 *
 * Purpose:    	Overwrite samples with low-passed Gaussian noise.
 *
 * Inputs:	out		- Destination.  Every sample is replaced.
 *		level		- Standard deviation before filtering.
 *		sampleRate	- Samples per second.
 *		cutoffHz	- Low-pass corner.  Anything below 1 Hz is
 *				  treated as 1 Hz.
 *
 * Description:	Box-Muller on a fixed-seed xorshift generator, so the
 *		same call always produces the same noise.
 *
 *--------------------------------------------------------------------*/

func FillBandLimitedGaussian(out []float32, level float32, sampleRate, cutoffHz float64) {
	var rng = newXorshift32(defaultSeed)
	var filt = newOnePole(sampleRate, cutoffHz)

	for i := 0; i < len(out); i += 2 {
		var u1 = max(rng.float(), 1e-12)
		var u2 = rng.float()
		var r = math.Sqrt(-2 * math.Log(u1))
		var theta = 2 * math.Pi * u2

		out[i] = filt.process(float32(r*math.Cos(theta)) * level)
		if i+1 < len(out) {
			out[i+1] = filt.process(float32(r*math.Sin(theta)) * level)
		}
	}
}

// Suppress replaces each range of samples with noise at the floor
// measured around them.
func Suppress(samples []float32, ranges []Range, sampleRate float64) {
	if len(ranges) == 0 {
		return
	}

	var floor = EstimateFloor(samples, ranges, WindowSamples(DefaultWindow, sampleRate))
	for _, r := range ranges {
		var start = min(max(r.Start, 0), len(samples))
		var end = min(max(r.End, start), len(samples))
		FillBandLimitedGaussian(samples[start:end], floor, sampleRate, DefaultCutoff)
	}
}

type xorshift32 struct {
	state uint32
}

func newXorshift32(seed uint32) *xorshift32 {
	if seed == 0 {
		seed = 0xA5A51234
	}
	return &xorshift32{state: seed}
}

func (x *xorshift32) next() uint32 {
	var s = x.state
	s ^= s << 13
	s ^= s >> 17
	s ^= s << 5
	x.state = s
	return s
}

// float is uniform in [0, 1].
func (x *xorshift32) float() float64 {
	return float64(x.next()) / math.MaxUint32
}

type onePole struct {
	alpha float32
	z     float32
}

func newOnePole(sampleRate, cutoffHz float64) *onePole {
	var dt = 1 / sampleRate
	var rc = 1 / (2 * math.Pi * max(cutoffHz, 1))
	return &onePole{alpha: float32(dt / (rc + dt))}
}

func (f *onePole) process(x float32) float32 {
	f.z += f.alpha * (x - f.z)
	return f.z
}
