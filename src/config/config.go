package config

/*------------------------------------------------------------------
 *
 * Purpose:   	Read configuration information from a file.
 *
 * Description:	Everything has a usable default so the repeater runs with
 *		nothing more than a callsign.  A YAML file can override any
 *		of it, and the command line overrides the file.
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

type Station struct {
	Callsign  string  `yaml:"callsign"`
	IDToneHz  float64 `yaml:"id_tone_hz"`
	IDWPM     float64 `yaml:"id_wpm"`
	IDLevelDB float64 `yaml:"id_level_db"` // relative to full scale
}

type Audio struct {
	SampleRate  int     `yaml:"sample_rate"`
	Device      string  `yaml:"device"` // regular expression on the device name
	OutputLevel float64 `yaml:"output_level"`
	KeyToneHz   float64 `yaml:"key_tone_hz"` // 0 turns the keying tone off
	BlockLen    int     `yaml:"block_len"`
	Threshold   float64 `yaml:"threshold"` // mean square
}

type Timing struct {
	IdleID     time.Duration `yaml:"idle_id"`
	Continuity time.Duration `yaml:"continuity"`
	CommandGap time.Duration `yaml:"command_gap"`
	IDInterval time.Duration `yaml:"id_interval"`
	Lead       time.Duration `yaml:"lead"`
	PreIDGap   time.Duration `yaml:"pre_id_gap"`
	Hang       time.Duration `yaml:"hang"`
}

type DTMF struct {
	Frame          time.Duration `yaml:"frame"`
	MinPressFrames int           `yaml:"min_press_frames"`
	MinGapFrames   int           `yaml:"min_gap_frames"`
	PeakRatio      float64       `yaml:"peak_ratio"`
	TwistDB        float64       `yaml:"twist_db"`
}

type Recordings struct {
	Dir    string `yaml:"dir"`
	Format string `yaml:"format"`
}

type PTT struct {
	Method string `yaml:"method"` // none, serial, gpio or cm108
	Device string `yaml:"device"` // serial port, GPIO chip or hidraw node
	Line   string `yaml:"line"`   // RTS or DTR, GPIO offset, or CM108 GPIO number
	Invert bool   `yaml:"invert"`
}

type Config struct {
	Station    Station    `yaml:"station"`
	Audio      Audio      `yaml:"audio"`
	Timing     Timing     `yaml:"timing"`
	DTMF       DTMF       `yaml:"dtmf"`
	Recordings Recordings `yaml:"recordings"`
	PTT        PTT        `yaml:"ptt"`
	LogLevel   string     `yaml:"log_level"`
}

func Default() Config {
	return Config{
		Station: Station{
			IDToneHz:  700,
			IDWPM:     20,
			IDLevelDB: -20,
		},
		Audio: Audio{
			SampleRate:  48000,
			OutputLevel: 1,
			KeyToneHz:   1000,
			BlockLen:    1024,
			Threshold:   1e-4,
		},
		Timing: Timing{
			IdleID:     30 * time.Second,
			Continuity: 1 * time.Second,
			CommandGap: 2 * time.Second,
			IDInterval: 9 * time.Minute,
			Lead:       200 * time.Millisecond,
			PreIDGap:   1 * time.Second,
			Hang:       1 * time.Second,
		},
		DTMF: DTMF{
			Frame:          30 * time.Millisecond,
			MinPressFrames: 2,
			MinGapFrames:   3,
			PeakRatio:      6,
			TwistDB:        12,
		},
		Recordings: Recordings{
			Dir:    "recordings",
			Format: "opus",
		},
		PTT: PTT{
			Method: "none",
		},
		LogLevel: "info",
	}
}

// SearchLocations is where Find looks, in order, when no file is named.
var SearchLocations = []string{
	"simplex.yaml", // Current working directory
	filepath.Join(userConfigDir(), "simplex", "simplex.yaml"),
	"/usr/local/etc/simplex.yaml",
	"/etc/simplex.yaml",
}

func userConfigDir() string {
	var dir, err = os.UserConfigDir()
	if err != nil {
		return "."
	}
	return dir
}

// Find returns the first configuration file that exists.
func Find() (string, bool) {
	for _, location := range SearchLocations {
		if _, err := os.Stat(location); err == nil {
			return location, true
		}
	}
	return "", false
}

// Load reads path over the defaults.  Unknown keys are an error so typos
// don't go unnoticed.
func Load(path string) (Config, error) {
	var cfg = Default()

	var f, err = os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	if err := Decode(f, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode overlays YAML from r onto cfg.  An empty document changes nothing.
func Decode(r io.Reader, cfg *Config) error {
	var dec = yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

var ErrInvalid = errors.New("invalid configuration")

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error
	var bad = func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if strings.TrimSpace(c.Station.Callsign) == "" {
		bad("callsign is required")
	}
	if c.Station.IDToneHz <= 0 || c.Station.IDWPM <= 0 {
		bad("ID tone and speed must be positive")
	}
	if c.Station.IDLevelDB > 0 {
		bad("ID level %v dB is above full scale", c.Station.IDLevelDB)
	}

	if c.Audio.SampleRate <= 0 {
		bad("sample rate must be positive")
	}
	if c.Audio.OutputLevel < 0 || c.Audio.OutputLevel > 1 {
		bad("output level %v is outside 0 to 1", c.Audio.OutputLevel)
	}
	if c.Audio.KeyToneHz < 0 || (c.Audio.SampleRate > 0 && c.Audio.KeyToneHz >= float64(c.Audio.SampleRate)/2) {
		bad("keying tone %v Hz is out of range", c.Audio.KeyToneHz)
	}
	if c.Audio.BlockLen <= 0 {
		bad("block length must be positive")
	}
	if c.Audio.Device != "" {
		if _, err := regexp.Compile(c.Audio.Device); err != nil {
			bad("device pattern: %v", err)
		}
	}

	type timing struct {
		name string
		d    time.Duration
	}
	for _, t := range []timing{
		{"idle_id", c.Timing.IdleID},
		{"continuity", c.Timing.Continuity},
		{"command_gap", c.Timing.CommandGap},
		{"id_interval", c.Timing.IDInterval},
	} {
		if t.d <= 0 {
			bad("timing %s must be positive", t.name)
		}
	}
	for _, t := range []timing{
		{"lead", c.Timing.Lead},
		{"pre_id_gap", c.Timing.PreIDGap},
		{"hang", c.Timing.Hang},
	} {
		if t.d < 0 {
			bad("timing %s must not be negative", t.name)
		}
	}

	if c.DTMF.Frame <= 0 || c.DTMF.MinPressFrames < 1 || c.DTMF.MinGapFrames < 1 {
		bad("DTMF frame and frame counts must be positive")
	}
	if c.DTMF.PeakRatio < 1 || c.DTMF.TwistDB <= 0 {
		bad("DTMF peak ratio must be at least 1 and twist positive")
	}

	if c.Recordings.Dir == "" {
		bad("recordings directory is required")
	}
	switch strings.ToLower(c.Recordings.Format) {
	case "opus", "ogg", "wav":
	default:
		bad("recording format %q is not opus or wav", c.Recordings.Format)
	}

	switch method := strings.ToLower(c.PTT.Method); method {
	case "", "none":
	case "serial", "gpio", "cm108":
		if method != "cm108" && c.PTT.Device == "" {
			bad("PTT method %s needs a device", method)
		}
	default:
		bad("PTT method %q is not none, serial, gpio or cm108", c.PTT.Method)
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		bad("log level %q", c.LogLevel)
	}

	return errors.Join(errs...)
}
