// Package ofdm turns one block of subcarrier symbols into a time domain
// OFDM symbol.  It has no state and is not used by the repeater.
package ofdm

import (
	"errors"
	"fmt"

	"github.com/mjibson/go-dsp/fft"
)

const (
	DefaultFFTSize      = 2048
	DefaultActiveBins   = 104
	DefaultCyclicPrefix = 256
)

var ErrSubcarrierCount = errors.New("wrong number of subcarriers")

type Modulator struct {
	nfft       int
	activeBins int
	cpLen      int
}

// New returns a 2048 point modulator with 104 active subcarriers and a
// 256 sample cyclic prefix.
func New() *Modulator {
	return &Modulator{
		nfft:       DefaultFFTSize,
		activeBins: DefaultActiveBins,
		cpLen:      DefaultCyclicPrefix,
	}
}

// SymbolLen is the number of output samples per symbol, prefix included.
func (m *Modulator) SymbolLen() int {
	return m.nfft + m.cpLen
}

// ActiveBins is the number of subcarriers Modulate expects.
func (m *Modulator) ActiveBins() int {
	return m.activeBins
}

/*-------------------------------------------------------------------
 *
 * Name:        Modulate
 *
 * Purpose:    	Generate one OFDM symbol.
 *
 * Inputs:	data	- Exactly ActiveBins complex symbols.  They go in
 *			  the lowest positive frequency bins, 1 up, leaving
 *			  DC empty.  All other bins are zero.
 *
 * Returns:	Complex baseband, the inverse FFT scaled by 1/N, with the
 *		last cpLen samples copied to the front.
 *
 *--------------------------------------------------------------------*/

func (m *Modulator) Modulate(data []complex128) ([]complex128, error) {
	if len(data) != m.activeBins {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrSubcarrierCount, m.activeBins, len(data))
	}

	var bins = make([]complex128, m.nfft)
	copy(bins[1:], data)

	// go-dsp's IFFT already divides by N.
	var symbol = fft.IFFT(bins)

	var out = make([]complex128, 0, m.SymbolLen())
	out = append(out, symbol[m.nfft-m.cpLen:]...)
	out = append(out, symbol...)
	return out, nil
}
