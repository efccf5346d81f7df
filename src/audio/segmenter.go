// Package audio holds the sample-level plumbing between the sound card
// and the repeater: cutting received audio into bursts and mixing queued
// transmissions into output frames.
package audio

/*------------------------------------------------------------------
 *
 * Purpose:   	Split received audio into bursts of activity.
 *
 * Description: Received samples are grouped into fixed blocks.  A block
 *		whose mean square exceeds the threshold is "loud" and is
 *		added to the current burst.  The first quiet block after a
 *		loud one ends the burst and it is handed on as a TimedChunk.
 *
 *		Quiet blocks are dropped.  The receiver finds out how long
 *		the silence was from the absolute sample positions.
 *
 *---------------------------------------------------------------*/

const (
	DefaultBlockLen  = 1024
	DefaultThreshold = 1.0e-4 // mean square, i.e. -40 dBFS RMS
)

// TimedChunk is one burst of received audio.  EndSample is the absolute
// position, counted from the start of capture, one past the last sample.
type TimedChunk struct {
	Samples   []float32
	EndSample uint64
}

// StartSample is the absolute position of the first sample.
func (c TimedChunk) StartSample() uint64 {
	return c.EndSample - uint64(len(c.Samples))
}

type SegmenterConfig struct {
	BlockLen  int
	Threshold float32
}

func DefaultSegmenterConfig() SegmenterConfig {
	return SegmenterConfig{
		BlockLen:  DefaultBlockLen,
		Threshold: DefaultThreshold,
	}
}

type Segmenter struct {
	blockLen  int
	threshold float32

	block    []float32
	message  []float32
	msgEnd   uint64
	position uint64 // samples seen, including the partial block
}

func NewSegmenter(cfg SegmenterConfig) *Segmenter {
	var blockLen = cfg.BlockLen
	if blockLen <= 0 {
		blockLen = DefaultBlockLen
	}
	return &Segmenter{
		blockLen:  blockLen,
		threshold: cfg.Threshold,
		block:     make([]float32, 0, blockLen),
	}
}

// Position is the number of samples written so far.
func (s *Segmenter) Position() uint64 {
	return s.position
}

// Write takes mono samples and returns any bursts that ended.
func (s *Segmenter) Write(samples []float32) []TimedChunk {
	var out []TimedChunk
	for len(samples) > 0 {
		var take = min(s.blockLen-len(s.block), len(samples))
		s.block = append(s.block, samples[:take]...)
		s.position += uint64(take)
		samples = samples[take:]

		if len(s.block) == s.blockLen {
			if c, ok := s.processBlock(); ok {
				out = append(out, c)
			}
		}
	}
	return out
}

// WriteInterleaved takes frames of the given channel count and uses only
// the first channel.
func (s *Segmenter) WriteInterleaved(data []float32, channels int) []TimedChunk {
	if channels <= 1 {
		return s.Write(data)
	}

	var mono = make([]float32, 0, len(data)/channels)
	for i := 0; i+channels <= len(data); i += channels {
		mono = append(mono, data[i])
	}
	return s.Write(mono)
}

// Flush hands over a burst still in progress, e.g. at shutdown.
func (s *Segmenter) Flush() (TimedChunk, bool) {
	if len(s.message) == 0 {
		return TimedChunk{}, false
	}
	var c = TimedChunk{Samples: s.message, EndSample: s.msgEnd}
	s.message = nil
	return c, true
}

func (s *Segmenter) processBlock() (TimedChunk, bool) {
	var energy float32
	for _, x := range s.block {
		energy += x * x
	}
	energy /= float32(s.blockLen)

	defer func() { s.block = s.block[:0] }()

	if energy > s.threshold {
		s.message = append(s.message, s.block...)
		s.msgEnd = s.position
		return TimedChunk{}, false
	}

	return s.Flush()
}
