package dtmf

import "fmt"

// Key is one of the 16 touch tone buttons: 0-9, A-D, * and #.
type Key rune

// NumTones is the number of row plus column frequencies.
const NumTones = 8

// Tones are the four row (low group) then four column (high group)
// frequencies in Hz.
var Tones = [NumTones]float64{697, 770, 852, 941, 1209, 1336, 1477, 1633}

var layout = [4][4]Key{
	{'1', '2', '3', 'A'},
	{'4', '5', '6', 'B'},
	{'7', '8', '9', 'C'},
	{'*', '0', '#', 'D'},
}

// Keys lists every key in row-major order.  The index of a key in this
// list is also its rank when breaking ties between equally common keys.
var Keys = [16]Key{
	'1', '2', '3', 'A',
	'4', '5', '6', 'B',
	'7', '8', '9', 'C',
	'*', '0', '#', 'D',
}

func (k Key) String() string {
	return string(rune(k))
}

// Index returns the row-major position of k, or -1 for anything that is
// not a DTMF key.  Lower case a-d are not accepted.
func (k Key) Index() int {
	for i, key := range Keys {
		if key == k {
			return i
		}
	}
	return -1
}

// Valid reports whether k is one of the 16 keys.
func (k Key) Valid() bool {
	return k.Index() >= 0
}

// Frequencies returns the row and column tone of k.
func (k Key) Frequencies() (low, high float64, err error) {
	var i = k.Index()
	if i < 0 {
		return 0, 0, fmt.Errorf("not a DTMF key: %q", rune(k))
	}
	return Tones[i/4], Tones[4+i%4], nil
}

// ParseKey accepts a DTMF character.  a-d are folded to upper case.
func ParseKey(ch rune) (Key, error) {
	if ch >= 'a' && ch <= 'd' {
		ch -= 'a' - 'A'
	}
	var k = Key(ch)
	if !k.Valid() {
		return 0, fmt.Errorf("not a DTMF key: %q", ch)
	}
	return k, nil
}
