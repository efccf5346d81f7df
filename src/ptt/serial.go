package ptt

import (
	"fmt"
	"strings"

	"github.com/pkg/term"
)

// modemLines is the part of a serial port a keyer needs.  *term.Term has it.
type modemLines interface {
	SetRTS(bool) error
	SetDTR(bool) error
	Close() error
}

// Serial keys with the RTS or DTR line of a serial port.
type Serial struct {
	port   modemLines
	useDTR bool
	invert bool
}

// OpenSerial opens device and drives line, "RTS" (the default) or "DTR".
func OpenSerial(device string, line string, invert bool) (*Serial, error) {
	var useDTR bool
	switch strings.ToUpper(line) {
	case "", "RTS":
	case "DTR":
		useDTR = true
	default:
		return nil, fmt.Errorf("serial PTT line %q is not RTS or DTR", line)
	}

	// Some USB serial adapters need the leading /dev/ spelled out.
	if !strings.HasPrefix(device, "/") {
		device = "/dev/" + device
	}

	var port, err = term.Open(device, term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("serial PTT %s: %w", device, err)
	}
	return newSerial(port, useDTR, invert), nil
}

func newSerial(port modemLines, useDTR bool, invert bool) *Serial {
	return &Serial{port: port, useDTR: useDTR, invert: invert}
}

func (s *Serial) Key(on bool) error {
	var v = level(on, s.invert) == 1
	if s.useDTR {
		return s.port.SetDTR(v)
	}
	return s.port.SetRTS(v)
}

func (s *Serial) Close() error {
	return s.port.Close()
}
