package repeater

import (
	"math"
	"time"

	"github.com/doismellburning/simplex/src/config"
	"github.com/doismellburning/simplex/src/dtmf"
)

// Config holds everything the control loop needs.  Durations are turned
// into sample counts at SampleRate.
type Config struct {
	SampleRate int

	Callsign  string
	IDToneHz  float64
	IDWPM     float64
	IDLevelDB float64

	IdleID     time.Duration // Wait this long after a message without ID, then send one.
	Continuity time.Duration // Longest pause inside one message.
	CommandGap time.Duration // Longer pauses split DTMF digit sequences.
	IDInterval time.Duration
	Lead       time.Duration // Silence before every transmission, so the radio is keyed up.
	PreIDGap   time.Duration
	Hang       time.Duration // Silence after every transmission.

	DTMF dtmf.Config
}

// DefaultConfig is a 48 kHz repeater with a 700 Hz, 20 WPM ID at -20 dB.
func DefaultConfig(callsign string) Config {
	var c = config.Default()
	c.Station.Callsign = callsign
	return FromConfig(c)
}

// FromConfig takes the repeater's part of the configuration file.
func FromConfig(c config.Config) Config {
	var rate = float64(c.Audio.SampleRate)

	return Config{
		SampleRate: c.Audio.SampleRate,
		Callsign:   c.Station.Callsign,
		IDToneHz:   c.Station.IDToneHz,
		IDWPM:      c.Station.IDWPM,
		IDLevelDB:  c.Station.IDLevelDB,
		IdleID:     c.Timing.IdleID,
		Continuity: c.Timing.Continuity,
		CommandGap: c.Timing.CommandGap,
		IDInterval: c.Timing.IDInterval,
		Lead:       c.Timing.Lead,
		PreIDGap:   c.Timing.PreIDGap,
		Hang:       c.Timing.Hang,
		DTMF: dtmf.Config{
			SampleRate:     rate,
			FrameSamples:   dtmf.DurationToSamples(c.DTMF.Frame, rate),
			MinPressFrames: c.DTMF.MinPressFrames,
			MinGapFrames:   c.DTMF.MinGapFrames,
			PeakRatio:      c.DTMF.PeakRatio,
			TwistDB:        c.DTMF.TwistDB,
		},
	}
}

// samples converts d at the configured rate, rounding to nearest.
func (c Config) samples(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * float64(c.SampleRate)))
}
