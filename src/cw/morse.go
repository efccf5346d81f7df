package cw

/*------------------------------------------------------------------
 *
 * Purpose:   	Convert text to Morse code timing units.
 *
 * Description:	A unit is one dot length of either tone (true) or
 *		silence (false).  Duration is expressed only by repetition:
 *		a dash is three tone units, the gap inside a character is
 *		one quiet unit, between characters three, between words seven.
 *
 *		Text between < and > is sent as a prosign, e.g. <AR>, with
 *		the letters run together with only a one unit gap between
 *		them, as if they were a single character.
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

var morseTable = map[rune]string{
	'A': ".-",
	'B': "-...",
	'C': "-.-.",
	'D': "-..",
	'E': ".",
	'F': "..-.",
	'G': "--.",
	'H': "....",
	'I': "..",
	'J': ".---",
	'K': "-.-",
	'L': ".-..",
	'M': "--",
	'N': "-.",
	'O': "---",
	'P': ".--.",
	'Q': "--.-",
	'R': ".-.",
	'S': "...",
	'T': "-",
	'U': "..-",
	'V': "...-",
	'W': ".--",
	'X': "-..-",
	'Y': "-.--",
	'Z': "--..",
	'1': ".----",
	'2': "..---",
	'3': "...--",
	'4': "....-",
	'5': ".....",
	'6': "-....",
	'7': "--...",
	'8': "---..",
	'9': "----.",
	'0': "-----",
	'.': ".-.-.-",
	',': "--..--",
	'?': "..--..",
	'/': "-..-.",

	'=': "-...-", /* from ARRL */
	'-': "-....-",
	')': "-.--.-",
	':': "---...",
	';': "-.-.-.",
	'"': ".-..-.",
	'\'': ".----.",
	'$': "...-..-",

	'!': "-.-.--", /* more from wikipedia */
	'(': "-.--.",
	'&': ".-...",
	'+': ".-.-.",
	'_': "..--.-",
	'@': ".--.-.",
}

// Gap lengths, in units, that separate marks, characters and words.
const (
	markGap = 1
	charGap = 3
	wordGap = 7
)

var (
	ErrUnterminatedProsign = errors.New("unterminated prosign")
	ErrUnknownSymbol       = errors.New("unknown morse symbol")
)

// UnterminatedProsignError reports a '<' with no closing '>'.
type UnterminatedProsignError struct {
	Offset int // byte offset of the opening bracket
}

func (e *UnterminatedProsignError) Error() string {
	return fmt.Sprintf("unterminated prosign starting at byte %d", e.Offset)
}

func (e *UnterminatedProsignError) Is(target error) bool {
	return target == ErrUnterminatedProsign
}

// UnknownSymbolError reports a character that has no Morse encoding.
type UnknownSymbolError struct {
	Symbol string
}

func (e *UnknownSymbolError) Error() string {
	return fmt.Sprintf("unknown morse symbol: %s", e.Symbol)
}

func (e *UnknownSymbolError) Is(target error) bool {
	return target == ErrUnknownSymbol
}

// Units is a sequence of Morse timing units, true for tone.
type Units []bool

// String renders tone units as '#' and quiet units as '.'.
func (u Units) String() string {
	var sb strings.Builder
	sb.Grow(len(u))
	for _, on := range u {
		if on {
			sb.WriteByte('#')
		} else {
			sb.WriteByte('.')
		}
	}
	return sb.String()
}

// Lookup returns the dot/dash pattern for ch.  Only ASCII letters are
// case folded.
func Lookup(ch rune) (string, bool) {
	if ch >= 'a' && ch <= 'z' {
		ch -= 'a' - 'A'
	}
	var enc, ok = morseTable[ch]
	return enc, ok
}

/*-------------------------------------------------------------------
 *
 * Name:        Encode
 *
 * Purpose:    	Given a string, generate the sequence of tone and
 *		silence units.
 *
 * Inputs:	text	- Characters to send.  Case does not matter.
 *			  Runs of white space collapse into a single
 *			  word gap.  <...> encloses a prosign.
 *
 * Returns:	Units, or an error if a character is not in the table
 *		or a prosign is malformed.  Nothing is returned on error.
 *
 *--------------------------------------------------------------------*/

func Encode(text string) (Units, error) {
	var units Units
	var inProsign = false
	var lastWasSymbol = false
	var prosignStart = 0
	var prosignChars = 0

	for idx, ch := range text {
		switch {
		case ch == '<':
			if inProsign {
				return nil, &UnknownSymbolError{Symbol: "<"}
			}
			inProsign = true
			prosignStart = idx
			prosignChars = 0
			continue

		case ch == '>':
			if !inProsign {
				return nil, &UnknownSymbolError{Symbol: ">"}
			}
			inProsign = false
			continue

		case unicode.IsSpace(ch):
			if inProsign {
				continue
			}
			if lastWasSymbol {
				units = appendUnits(units, false, wordGap)
				lastWasSymbol = false
			}
			continue
		}

		var enc, ok = Lookup(ch)
		if !ok {
			return nil, &UnknownSymbolError{Symbol: string(ch)}
		}

		if lastWasSymbol {
			if inProsign && prosignChars > 0 {
				// Letters of a prosign run together like one character.
				units = appendUnits(units, false, markGap)
			} else {
				units = appendUnits(units, false, charGap)
			}
		}

		units = appendSymbol(units, enc)
		lastWasSymbol = true
		if inProsign {
			prosignChars++
		}
	}

	if inProsign {
		return nil, &UnterminatedProsignError{Offset: prosignStart}
	}

	return units, nil
}

func appendSymbol(units Units, enc string) Units {
	for i, mark := range enc {
		switch mark {
		case '.':
			units = appendUnits(units, true, 1)
		case '-':
			units = appendUnits(units, true, 3)
		}
		if i != len(enc)-1 { // Intersperse quiet
			units = appendUnits(units, false, markGap)
		}
	}
	return units
}

func appendUnits(units Units, on bool, n int) Units {
	for range n {
		units = append(units, on)
	}
	return units
}

// UnitsToDuration converts a unit count to time at the given speed.
// PARIS is 50 units, so one unit is 1200 ms / wpm.
func UnitsToDuration(n int, wpm float64) time.Duration {
	return time.Duration(float64(n) * 1200 / wpm * float64(time.Millisecond))
}
