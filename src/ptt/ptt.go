// Package ptt keys the transmitter.
//
// The playback mixer already puts a keying tone on the second output
// channel.  Radios that need a real push-to-talk line get one of the
// keyers here instead, or as well.
package ptt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/doismellburning/simplex/src/config"
)

// Keyer turns the transmitter on and off.
type Keyer interface {
	Key(on bool) error
	Close() error
}

var ErrUnknownMethod = errors.New("unknown PTT method")

/*-------------------------------------------------------------------
 *
 * Name:        New
 *
 * Purpose:    	Open the keyer described by the configuration.
 *
 * Inputs:	cfg.Method	- none, serial, gpio or cm108.
 *
 *		cfg.Device	- Serial port, GPIO chip, or hidraw node.
 *				  Empty for cm108 means look for one.
 *
 *		cfg.Line	- RTS or DTR for serial, line offset for
 *				  gpio, GPIO number 1 to 8 for cm108.
 *
 *		cfg.Invert	- Active low.
 *
 * Returns:	A keyer in the unkeyed state.
 *
 *--------------------------------------------------------------------*/

func New(cfg config.PTT) (Keyer, error) {
	var k Keyer
	var err error

	switch strings.ToLower(cfg.Method) {
	case "", "none":
		return None{}, nil
	case "serial":
		k, err = OpenSerial(cfg.Device, cfg.Line, cfg.Invert)
	case "gpio":
		k, err = OpenGPIO(cfg.Device, cfg.Line, cfg.Invert)
	case "cm108":
		k, err = OpenCM108(cfg.Device, cfg.Line, cfg.Invert)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, cfg.Method)
	}
	if err != nil {
		return nil, err
	}

	if err := k.Key(false); err != nil {
		k.Close()
		return nil, err
	}
	return k, nil
}

// None is for radios keyed by the tone channel or by VOX.
type None struct{}

func (None) Key(bool) error { return nil }
func (None) Close() error   { return nil }

// level is the line state for a PTT request, after inversion.
func level(on bool, invert bool) int {
	if on != invert {
		return 1
	}
	return 0
}

/*------------------------------------------------------------------
 *
 * Purpose:   	Move keying off the audio callback.
 *
 * Description: The mixer reports start and stop of transmission from the
 *		audio callback, which must never wait on a serial port or
 *		a USB write.  Set only records the wanted state.  Run
 *		applies it on its own goroutine.  Only the latest request
 *		matters, so a fast off/on pair may collapse into nothing.
 *
 *---------------------------------------------------------------*/

type Controller struct {
	keyer  Keyer
	logger *log.Logger
	want   chan bool
}

func NewController(k Keyer, logger *log.Logger) *Controller {
	return &Controller{
		keyer:  k,
		logger: logger,
		want:   make(chan bool, 1),
	}
}

// Set requests the transmitter state.  It never blocks.
func (c *Controller) Set(on bool) {
	for {
		select {
		case c.want <- on:
			return
		default:
		}
		// Replace a stale request.
		select {
		case <-c.want:
		default:
		}
	}
}

// Run applies requests until ctx ends, then unkeys and closes the keyer.
func (c *Controller) Run(ctx context.Context) error {
	var keyed = false
	defer func() {
		if err := c.keyer.Key(false); err != nil {
			c.logger.Error("PTT off failed", "err", err)
		}
		c.keyer.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case on := <-c.want:
			if on == keyed {
				continue
			}
			if err := c.keyer.Key(on); err != nil {
				c.logger.Error("PTT failed", "on", on, "err", err)
				continue
			}
			keyed = on
			c.logger.Debug("PTT", "on", on)
		}
	}
}
