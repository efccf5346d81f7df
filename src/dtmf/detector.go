package dtmf

/*------------------------------------------------------------------
 *
 * Purpose:   	Decoder for DTMF, commonly known as "touch tones."
 *
 * Description: This uses the Goertzel Algorithm for tone detection,
 *		one filter for each of the 8 row and column frequencies.
 *
 * References:	http://eetimes.com/design/embedded/4024443/The-Goertzel-Algorithm
 * 		http://www.ti.com/ww/cn/uprogram/share/ppt/c5000/17dtmf_v13.ppt
 *
 *---------------------------------------------------------------*/

import "math"

const (
	DefaultPeakRatio = 6.0
	DefaultTwistDB   = 12.0
)

// Detector accumulates one window of N samples and decides whether it
// holds a key.  It is not safe for concurrent use.
type Detector struct {
	n         int
	coef      [NumTones]float64
	peakRatio float64
	twistDB   float64

	q1   [NumTones]float64
	q2   [NumTones]float64
	seen int
}

// NewDetector creates a detector with the default peak ratio and twist.
func NewDetector(sampleRate float64, n int) *Detector {
	return NewDetectorWithThresholds(sampleRate, n, DefaultPeakRatio, DefaultTwistDB)
}

// NewDetectorWithThresholds creates a detector for windows of n samples.
//
// peakRatio is how much stronger the best tone in a group must be than
// the runner up.  twistDB is the largest allowed level difference between
// the row and column tone.
func NewDetectorWithThresholds(sampleRate float64, n int, peakRatio, twistDB float64) *Detector {
	var d = &Detector{
		n:         max(n, 1),
		peakRatio: peakRatio,
		twistDB:   twistDB,
	}

	// k is deliberately not rounded to an integer bin.  That would move
	// the filter center frequency away from the ideal tone.
	for j, freq := range Tones {
		var omega = 2 * math.Pi * freq / sampleRate
		d.coef[j] = 2 * math.Cos(omega)
	}

	return d
}

// WindowLen is the number of samples in one detection window.
func (d *Detector) WindowLen() int {
	return d.n
}

// Reset clears the filters for a new window.
func (d *Detector) Reset() {
	d.q1 = [NumTones]float64{}
	d.q2 = [NumTones]float64{}
	d.seen = 0
}

// Feed runs samples through the filters.  Anything beyond the window
// length is ignored until Reset.
func (d *Detector) Feed(samples []float32) {
	if d.seen >= d.n {
		return
	}
	var remaining = d.n - d.seen
	if len(samples) > remaining {
		samples = samples[:remaining]
	}

	for _, s := range samples {
		var x = float64(s)
		for i := range NumTones {
			var q0 = x + d.coef[i]*d.q1[i] - d.q2[i]
			d.q2[i] = d.q1[i]
			d.q1[i] = q0
		}
	}
	d.seen += len(samples)
}

// Magnitudes returns the squared magnitude of each bin for the samples
// fed so far.
func (d *Detector) Magnitudes() [NumTones]float64 {
	var mags [NumTones]float64
	for i := range NumTones {
		mags[i] = d.q1[i]*d.q1[i] + d.q2[i]*d.q2[i] - d.coef[i]*d.q1[i]*d.q2[i]
	}
	return mags
}

/*------------------------------------------------------------------
 *
 * Name:        Finish
 *
 * Purpose:     Decide which key, if any, the current window holds.
 *
 * Returns:     The key and true, or false for nothing.
 *
 * Description:	The input level can vary over a couple orders of
 *		magnitude so there is no absolute threshold.  Instead the
 *		strongest row tone must beat the second strongest row tone
 *		by peakRatio, and the same for columns.
 *
 *		Real telephone lines and radios don't deliver both tones at
 *		the same level, so allow some "twist" between them, but
 *		not too much.
 *
 *----------------------------------------------------------------*/

func (d *Detector) Finish() (Key, bool) {
	var mags = d.Magnitudes()

	var row, rowPeak, rowNext = topTwo(mags[:4])
	var col, colPeak, colNext = topTwo(mags[4:])

	if rowPeak < rowNext*d.peakRatio || colPeak < colNext*d.peakRatio {
		return 0, false
	}

	if !twistOK(rowPeak, colPeak, d.twistDB) {
		return 0, false
	}

	return layout[row][col], true
}

// DetectFrame is a one shot Reset, Feed and Finish over exactly one
// window.  A slice of any other length detects nothing.
func (d *Detector) DetectFrame(samples []float32) (Key, bool) {
	if len(samples) != d.n {
		return 0, false
	}
	d.Reset()
	d.Feed(samples)
	return d.Finish()
}

func topTwo(values []float64) (int, float64, float64) {
	var maxI = 0
	var maxV = values[0]
	var nextV = math.Inf(-1)

	for i := 1; i < len(values); i++ {
		var v = values[i]
		if v > maxV {
			nextV = maxV
			maxV = v
			maxI = i
		} else if v > nextV {
			nextV = v
		}
	}

	return maxI, maxV, nextV
}

func twistOK(rowPeak, colPeak, twistDB float64) bool {
	if rowPeak <= 0 || colPeak <= 0 {
		return false
	}
	var db = 10 * math.Abs(math.Log10(colPeak/rowPeak))
	return db <= twistDB
}
