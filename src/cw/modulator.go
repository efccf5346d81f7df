package cw

import "math"

// UnitSource yields Morse units one at a time.
type UnitSource interface {
	// Next returns the next unit and false once exhausted.
	Next() (on bool, ok bool)
}

// Cursor walks a Units slice as a UnitSource.
type Cursor struct {
	units Units
	pos   int
}

// Cursor returns a UnitSource positioned at the first unit.
func (u Units) Cursor() *Cursor {
	return &Cursor{units: u}
}

func (c *Cursor) Next() (bool, bool) {
	if c.pos >= len(c.units) {
		return false, false
	}
	var on = c.units[c.pos]
	c.pos++
	return on, true
}

// Remaining reports how many units have not been consumed.
func (c *Cursor) Remaining() int {
	return len(c.units) - c.pos
}

// Modulator turns Morse units into keyed sine audio.
type Modulator struct {
	unitSamples int
	osc         *oscillator
	level       float32
}

// NewModulator creates a modulator for the sample rate, tone frequency,
// speed in words per minute and linear output level.
func NewModulator(sampleRate, toneHz, wpm, level float64) *Modulator {
	// PARIS standard: 50 units per word.
	var unitSeconds = 60.0 / (wpm * 50.0)
	var unitSamples = int(math.Round(sampleRate * unitSeconds))

	return &Modulator{
		unitSamples: max(unitSamples, 1),
		osc:         newOscillator(sampleRate, toneHz),
		level:       float32(level),
	}
}

// UnitSamples is the number of samples per Morse unit.
func (m *Modulator) UnitSamples() int {
	return m.unitSamples
}

// ResetPhase restarts the tone at phase zero.
func (m *Modulator) ResetPhase() {
	m.osc.reset()
}

/*-------------------------------------------------------------------
 *
 * Name:        Modulate
 *
 * Purpose:    	Fill a buffer with audio for as many whole units as fit.
 *
 * Inputs:	src	- Units to send.  Only consumed when a full unit
 *			  still fits in the remaining buffer.
 *		out	- Destination samples.
 *
 * Returns:	Number of samples written, always a multiple of
 *		UnitSamples().
 *
 * Description:	Quiet units write zeros but keep the oscillator running
 *		so the next tone continues in phase, as if the carrier
 *		had never stopped.  No clicks.
 *
 *--------------------------------------------------------------------*/

func (m *Modulator) Modulate(src UnitSource, out []float32) int {
	var offset = 0
	for offset+m.unitSamples <= len(out) {
		var on, ok = src.Next()
		if !ok {
			break
		}

		for j := offset; j < offset+m.unitSamples; j++ {
			if on {
				out[j] = m.osc.next() * m.level
			} else {
				m.osc.advance(1)
				out[j] = 0
			}
		}

		offset += m.unitSamples
	}

	return offset
}

// Render encodes text and modulates all of it in one buffer, starting at
// phase zero.  Used to prepare a station ID once at startup.
func Render(text string, sampleRate, toneHz, wpm, level float64) ([]float32, error) {
	var units, err = Encode(text)
	if err != nil {
		return nil, err
	}

	var m = NewModulator(sampleRate, toneHz, wpm, level)
	var out = make([]float32, len(units)*m.UnitSamples())
	var n = m.Modulate(units.Cursor(), out)

	return out[:n], nil
}

// DecibelsToLevel converts a gain in dB (negative for attenuation) to a
// linear amplitude factor.
func DecibelsToLevel(db float64) float64 {
	return math.Pow(10, db/20)
}
