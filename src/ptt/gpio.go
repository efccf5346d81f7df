package ptt

import (
	"fmt"
	"strconv"

	"github.com/warthog618/go-gpiocdev"
)

// outputLine is the part of a requested GPIO line a keyer needs.
// *gpiocdev.Line has it.
type outputLine interface {
	SetValue(int) error
	Close() error
}

// GPIO keys with one line of a GPIO character device.
type GPIO struct {
	line   outputLine
	invert bool
}

// OpenGPIO requests line (an offset) on chip, e.g. "gpiochip0" and "17",
// as an output.
func OpenGPIO(chip string, line string, invert bool) (*GPIO, error) {
	var offset, err = strconv.Atoi(line)
	if err != nil || offset < 0 {
		return nil, fmt.Errorf("GPIO PTT line %q is not a line number", line)
	}

	l, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(level(false, invert)), gpiocdev.WithConsumer("simplex-ptt"))
	if err != nil {
		return nil, fmt.Errorf("GPIO PTT %s line %d: %w", chip, offset, err)
	}
	return newGPIO(l, invert), nil
}

func newGPIO(line outputLine, invert bool) *GPIO {
	return &GPIO{line: line, invert: invert}
}

func (g *GPIO) Key(on bool) error {
	return g.line.SetValue(level(on, g.invert))
}

func (g *GPIO) Close() error {
	return g.line.Close()
}
