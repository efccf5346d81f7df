package noise

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func constant(n int, v float32) []float32 {
	var out = make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func rms(samples []float32) float64 {
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func Test_EstimateFloor_Minimum(t *testing.T) {
	var samples = append(constant(1000, 0.1), constant(1000, 0.01)...)
	assert.InDelta(t, 0.01, EstimateFloor(samples, nil, 100), 1e-6)
}

func Test_EstimateFloor_SkipsRanges(t *testing.T) {
	var samples = append(constant(1000, 0.1), constant(1000, 0.01)...)
	var floor = EstimateFloor(samples, []Range{{Start: 1000, End: 2000}}, 100)
	assert.InDelta(t, 0.1, floor, 1e-6)
}

func Test_EstimateFloor_RangeOrder(t *testing.T) {
	var samples = append(append(constant(500, 0.2), constant(500, 0.05)...), constant(500, 0.3)...)
	var a = EstimateFloor(samples, []Range{{0, 100}, {400, 1100}}, 50)
	var b = EstimateFloor(samples, []Range{{400, 1100}, {0, 100}}, 50)
	assert.InDelta(t, 0.2, a, 1e-6)
	assert.InDelta(t, a, b, 0)
}

func Test_EstimateFloor_NoWindow(t *testing.T) {
	var samples = constant(150, 0.5)

	// Only 50 samples are free on either side.
	assert.Zero(t, EstimateFloor(samples, []Range{{50, 100}}, 60))
	assert.Zero(t, EstimateFloor(samples, nil, 0))
	assert.Zero(t, EstimateFloor(nil, nil, 10))
}

func Test_EstimateFloor_RangePastEnd(t *testing.T) {
	var samples = constant(300, 0.5)
	assert.InDelta(t, 0.5, EstimateFloor(samples, []Range{{200, 5000}}, 100), 1e-6)
}

func Test_FillBandLimitedGaussian_Deterministic(t *testing.T) {
	var a = make([]float32, 999)
	var b = make([]float32, 999)
	FillBandLimitedGaussian(a, 0.1, 48000, DefaultCutoff)
	FillBandLimitedGaussian(b, 0.1, 48000, DefaultCutoff)
	assert.Equal(t, a, b)
	assert.NotZero(t, a[len(a)-1])
}

func Test_FillBandLimitedGaussian_Level(t *testing.T) {
	var out = make([]float32, 48000)
	FillBandLimitedGaussian(out, 1, 48000, DefaultCutoff)

	// A one-pole at 3 kHz passes about 40% of white noise RMS at 48 kHz.
	var r = rms(out)
	assert.Greater(t, r, 0.3)
	assert.Less(t, r, 0.5)

	FillBandLimitedGaussian(out, 0, 48000, DefaultCutoff)
	for _, s := range out {
		require.Zero(t, s)
	}
}

func Test_FillBandLimitedGaussian_Scales(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var level = rapid.Float32Range(0.001, 1).Draw(t, "level")
		var n = rapid.IntRange(2, 2000).Draw(t, "n")

		var unit = make([]float32, n)
		var scaled = make([]float32, n)
		FillBandLimitedGaussian(unit, 1, 8000, DefaultCutoff)
		FillBandLimitedGaussian(scaled, level, 8000, DefaultCutoff)

		for i := range unit {
			var want = float64(unit[i]) * float64(level)
			if math.Abs(float64(scaled[i])-want) > 1e-4 {
				t.Fatalf("sample %d: %v, want %v", i, scaled[i], want)
			}
		}
	})
}

func Test_Suppress(t *testing.T) {
	var samples = constant(3000, 0.01)
	for i := 1000; i < 2000; i++ {
		samples[i] = float32(0.8 * math.Sin(float64(i)))
	}

	Suppress(samples, []Range{{1000, 2000}}, 8000)

	assert.Equal(t, constant(1000, 0.01), samples[:1000])
	assert.Equal(t, constant(1000, 0.01), samples[2000:])
	assert.Less(t, rms(samples[1000:2000]), 0.01)
	assert.Greater(t, rms(samples[1000:2000]), 0.0)
}

func Test_Suppress_NoRanges(t *testing.T) {
	var samples = constant(100, 0.5)
	Suppress(samples, nil, 8000)
	assert.Equal(t, constant(100, 0.5), samples)
}

func Test_Xorshift32(t *testing.T) {
	var x = newXorshift32(defaultSeed)
	assert.Equal(t, uint32(0x87985aa5), x.next())
	assert.Equal(t, uint32(0x155b24a3), x.next())
	assert.Equal(t, uint32(0x4820f4c4), x.next())

	assert.Equal(t, uint32(0xA5A51234), newXorshift32(0).state)
}

func Test_OnePole_DC(t *testing.T) {
	var f = newOnePole(8000, 100)
	var y float32
	for range 10000 {
		y = f.process(1)
	}
	assert.InDelta(t, 1.0, y, 1e-4)

	// Cutoff below 1 Hz is clamped rather than dividing by zero.
	assert.Greater(t, newOnePole(8000, 0).alpha, float32(0))
}
