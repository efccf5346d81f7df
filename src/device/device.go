// Package device connects the repeater to the sound card through
// PortAudio.  Capture and playback each run on PortAudio's callback
// thread and talk to the rest of the program only through queues.
package device

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/gordonklaus/portaudio"
)

var ErrNoDevice = errors.New("no matching audio device")

// Initialize must be called before anything else here.  The returned
// function undoes it.
func Initialize() (func(), error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: %w", err)
	}
	return func() { portaudio.Terminate() }, nil
}

// Info is what the device listing shows.
type Info struct {
	Index             int
	Name              string
	HostAPI           string
	Inputs            int
	Outputs           int
	DefaultSampleRate float64
}

func (i Info) String() string {
	return fmt.Sprintf("%3d  %-40s in=%d out=%d  %.0f Hz  (%s)", i.Index, i.Name, i.Inputs, i.Outputs, i.DefaultSampleRate, i.HostAPI)
}

func infoOf(d *portaudio.DeviceInfo) Info {
	var info = Info{
		Index:             d.Index,
		Name:              d.Name,
		Inputs:            d.MaxInputChannels,
		Outputs:           d.MaxOutputChannels,
		DefaultSampleRate: d.DefaultSampleRate,
	}
	if d.HostApi != nil {
		info.HostAPI = d.HostApi.Name
	}
	return info
}

// List returns every device PortAudio knows about.
func List() ([]Info, error) {
	var devices, err = portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("portaudio: %w", err)
	}

	var list = make([]Info, 0, len(devices))
	for _, d := range devices {
		list = append(list, infoOf(d))
	}
	return list, nil
}

// Direction picks which side of a device matters.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Input {
		return "input"
	}
	return "output"
}

func (d Direction) channels(dev *portaudio.DeviceInfo) int {
	if d == Input {
		return dev.MaxInputChannels
	}
	return dev.MaxOutputChannels
}

/*-------------------------------------------------------------------
 *
 * Name:        Select
 *
 * Purpose:    	Choose a device by name.
 *
 * Inputs:	devices	- As from portaudio.Devices.
 *
 *		pattern	- Regular expression matched against the device
 *			  name.
 *
 *		dir	- Only devices with channels in this direction
 *			  are candidates.
 *
 * Returns:	The first candidate whose name matches, or nil.
 *
 *--------------------------------------------------------------------*/

func Select(devices []*portaudio.DeviceInfo, pattern *regexp.Regexp, dir Direction) *portaudio.DeviceInfo {
	for _, d := range devices {
		if dir.channels(d) < 1 {
			continue
		}
		if pattern.MatchString(d.Name) {
			return d
		}
	}
	return nil
}

// Find is Select over the system's devices.  An empty pattern means the
// system default.
func Find(pattern string, dir Direction) (*portaudio.DeviceInfo, error) {
	if pattern == "" {
		var d *portaudio.DeviceInfo
		var err error
		if dir == Input {
			d, err = portaudio.DefaultInputDevice()
		} else {
			d, err = portaudio.DefaultOutputDevice()
		}
		if err != nil {
			return nil, fmt.Errorf("default %s device: %w", dir, err)
		}
		return d, nil
	}

	var re, err = regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("device pattern: %w", err)
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("portaudio: %w", err)
	}

	var d = Select(devices, re, dir)
	if d == nil {
		return nil, fmt.Errorf("%w: %s matching %q", ErrNoDevice, dir, pattern)
	}
	return d, nil
}
