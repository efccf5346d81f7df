package dtmf

import (
	"fmt"
	"math"
	"time"
)

// Debouncer defaults.
const (
	DefaultFrame          = 30 * time.Millisecond
	DefaultMinPressFrames = 2
	DefaultMinGapFrames   = 3
)

// Event is one debounced key press.  Start and End are inclusive sample
// positions counted from the last Reset.
type Event struct {
	Key   Key
	Start uint64
	End   uint64
}

func (e Event) String() string {
	return fmt.Sprintf("%s@%d-%d", e.Key, e.Start, e.End)
}

// Config controls framing and press/release thresholds.
type Config struct {
	SampleRate     float64
	FrameSamples   int
	MinPressFrames int
	MinGapFrames   int

	// Detector thresholds.  Zero means the default.
	PeakRatio float64
	TwistDB   float64
}

// DefaultConfig returns 30 ms frames, 2 frames to accept a press, 3
// empty frames to confirm a release and the default detector thresholds.
func DefaultConfig(sampleRate float64) Config {
	return Config{
		SampleRate:     sampleRate,
		FrameSamples:   DurationToSamples(DefaultFrame, sampleRate),
		MinPressFrames: DefaultMinPressFrames,
		MinGapFrames:   DefaultMinGapFrames,
		PeakRatio:      DefaultPeakRatio,
		TwistDB:        DefaultTwistDB,
	}
}

// DurationToSamples rounds d to a whole number of samples, at least one.
func DurationToSamples(d time.Duration, sampleRate float64) int {
	return max(int(math.Round(d.Seconds()*sampleRate)), 1)
}

// Debouncer turns a stream of samples into key events.  Partial frames
// are carried across calls to Push.
type Debouncer struct {
	frameLen       int
	minPressFrames int
	minGapFrames   int
	detector       *Detector

	inFrame  int
	position uint64 // samples consumed since Reset

	tracking  bool
	gapFrames int
	startPos  uint64
	lastPos   uint64
	history   []Key
}

// NewDebouncer builds a debouncer with its own Goertzel detector sized to
// one frame.
func NewDebouncer(cfg Config) *Debouncer {
	var frameLen = max(cfg.FrameSamples, 1)
	var peakRatio = cfg.PeakRatio
	if peakRatio == 0 {
		peakRatio = DefaultPeakRatio
	}
	var twistDB = cfg.TwistDB
	if twistDB == 0 {
		twistDB = DefaultTwistDB
	}
	return &Debouncer{
		frameLen:       frameLen,
		minPressFrames: max(cfg.MinPressFrames, 1),
		minGapFrames:   max(cfg.MinGapFrames, 1),
		detector:       NewDetectorWithThresholds(cfg.SampleRate, frameLen, peakRatio, twistDB),
	}
}

// FrameLen is the number of samples per detection frame.
func (d *Debouncer) FrameLen() int {
	return d.frameLen
}

/*-------------------------------------------------------------------
 *
 * Name:        Push
 *
 * Purpose:     Feed samples and collect any completed key presses.
 *
 * Inputs:	samples	- Next block of audio, any length.
 *
 * Returns:	Events whose release was confirmed within this block.
 *		A key still held, or released for fewer than the minimum
 *		gap frames, is reported by a later call.
 *
 *--------------------------------------------------------------------*/

func (d *Debouncer) Push(samples []float32) []Event {
	var events []Event

	for len(samples) > 0 {
		var take = min(d.frameLen-d.inFrame, len(samples))
		d.detector.Feed(samples[:take])
		d.inFrame += take
		d.position += uint64(take)
		samples = samples[take:]

		if d.inFrame == d.frameLen {
			var key, ok = d.detector.Finish()
			d.detector.Reset()
			d.inFrame = 0

			var frameEnd = d.position - 1
			var frameStart = d.position - uint64(d.frameLen)
			if ev, done := d.consumeFrame(key, ok, frameStart, frameEnd); done {
				events = append(events, ev)
			}
		}
	}

	return events
}

// Flush feeds enough silence to finish the partial frame and release a
// key still held at the end of the audio.
func (d *Debouncer) Flush() []Event {
	var n = d.frameLen - d.inFrame + d.minGapFrames*d.frameLen
	return d.Push(make([]float32, n))
}

// Reset forgets any press in progress, the partial frame and the sample
// position.
func (d *Debouncer) Reset() {
	d.inFrame = 0
	d.position = 0
	d.tracking = false
	d.gapFrames = 0
	d.startPos = 0
	d.lastPos = 0
	d.history = d.history[:0]
	d.detector.Reset()
}

func (d *Debouncer) consumeFrame(key Key, detected bool, frameStart, frameEnd uint64) (Event, bool) {
	if detected {
		if !d.tracking {
			d.tracking = true
			d.startPos = frameStart
		}
		// Any key, even a different one, keeps the press alive.
		// The majority vote sorts out flicker.
		d.history = append(d.history, key)
		d.lastPos = frameEnd
		d.gapFrames = 0
		return Event{}, false
	}

	if !d.tracking {
		return Event{}, false
	}

	d.gapFrames++
	if d.gapFrames < d.minGapFrames {
		return Event{}, false
	}

	var ev Event
	var emit = len(d.history) >= d.minPressFrames
	if emit {
		ev = Event{Key: majority(d.history), Start: d.startPos, End: d.lastPos}
	}

	d.tracking = false
	d.gapFrames = 0
	d.history = d.history[:0]

	return ev, emit
}

// majority returns the most common key.  Ties go to the key that comes
// first in row-major order.
func majority(history []Key) Key {
	var counts [len(Keys)]int
	for _, k := range history {
		var i = k.Index()
		if i < 0 {
			panic(fmt.Sprintf("dtmf: debouncer history holds non-DTMF key %q", rune(k)))
		}
		counts[i]++
	}

	var best = 0
	for i := 1; i < len(counts); i++ {
		if counts[i] > counts[best] {
			best = i
		}
	}
	return Keys[best]
}
