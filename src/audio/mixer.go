package audio

import (
	"math"
)

const DefaultKeyToneHz = 1000.0

// Source hands the mixer the next buffer to play without blocking.
type Source interface {
	TryGet() ([]float32, bool)
}

type MixerConfig struct {
	SampleRate float64
	Channels   int
	Level      float32 // applied to the transmitted audio
	KeyToneHz  float64 // tone on the second channel while sending, 0 for none

	// OnKey is called from the audio callback when output starts and
	// stops.  It must not block.
	OnKey func(on bool)
}

/*------------------------------------------------------------------
 *
 * Purpose:   	Turn queued transmissions into interleaved output frames.
 *
 * Description: Buffers are played back to back.  The first channel
 *		carries the audio scaled by the output level.  While any
 *		audio is being sent the second channel carries a steady
 *		tone that a VOX or tone-operated keying circuit can use as
 *		push-to-talk.  All other channels are silent.
 *
 *---------------------------------------------------------------*/

type Mixer struct {
	src      Source
	channels int
	level    float32
	onKey    func(bool)

	phase    float64
	phaseInc float64

	current []float32
	keyed   bool
}

func NewMixer(src Source, cfg MixerConfig) *Mixer {
	var m = &Mixer{
		src:      src,
		channels: max(cfg.Channels, 1),
		level:    cfg.Level,
		onKey:    cfg.OnKey,
	}
	if cfg.KeyToneHz > 0 && cfg.SampleRate > 0 {
		m.phaseInc = 2 * math.Pi * cfg.KeyToneHz / cfg.SampleRate
	}
	return m
}

// Keyed reports whether the last frame filled carried audio.
func (m *Mixer) Keyed() bool {
	return m.keyed
}

// Fill writes as many whole frames as fit in out.
func (m *Mixer) Fill(out []float32) {
	for i := 0; i+m.channels <= len(out); i += m.channels {
		var frame = out[i : i+m.channels]
		var s, ok = m.nextSample()
		m.setKeyed(ok)

		frame[0] = s * m.level
		if m.channels > 1 {
			frame[1] = m.keyTone(ok)
			for c := 2; c < m.channels; c++ {
				frame[c] = 0
			}
		}
	}
}

func (m *Mixer) nextSample() (float32, bool) {
	for len(m.current) == 0 {
		var buf, ok = m.src.TryGet()
		if !ok {
			return 0, false
		}
		m.current = buf
	}

	var s = m.current[0]
	m.current = m.current[1:]
	return s, true
}

func (m *Mixer) keyTone(on bool) float32 {
	if !on || m.phaseInc == 0 {
		return 0
	}
	var tone = float32(math.Sin(m.phase))
	m.phase += m.phaseInc
	if m.phase >= 2*math.Pi {
		m.phase -= 2 * math.Pi
	}
	return tone
}

func (m *Mixer) setKeyed(on bool) {
	if on == m.keyed {
		return
	}
	m.keyed = on
	if m.onKey != nil {
		m.onKey(on)
	}
}
