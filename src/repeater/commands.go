package repeater

import (
	"strings"

	"github.com/doismellburning/simplex/src/dtmf"
	"github.com/doismellburning/simplex/src/noise"
)

// ReplayCommand anywhere in a digit sequence plays back the latest
// recording.
const ReplayCommand = "##"

// Sequences groups key events into digit strings.  A pause of more than
// gap samples between the end of one press and the start of the next
// starts a new string.
func Sequences(events []dtmf.Event, gap uint64) []string {
	var seqs []string
	var current strings.Builder
	var prevEnd uint64

	for i, ev := range events {
		if i > 0 && ev.Start > prevEnd && ev.Start-prevEnd > gap {
			seqs = append(seqs, current.String())
			current.Reset()
		}
		current.WriteRune(rune(ev.Key))
		prevEnd = ev.End
	}
	if current.Len() > 0 {
		seqs = append(seqs, current.String())
	}
	return seqs
}

// WantsReplay reports whether any sequence holds the replay command.
func WantsReplay(seqs []string) bool {
	for _, s := range seqs {
		if strings.Contains(s, ReplayCommand) {
			return true
		}
	}
	return false
}

// toneRanges turns inclusive key event positions into half-open sample
// ranges within a message of n samples.
func toneRanges(events []dtmf.Event, n int) []noise.Range {
	var ranges = make([]noise.Range, 0, len(events))
	for _, ev := range events {
		var start = int(min(ev.Start, uint64(n)))
		var end = int(min(ev.End+1, uint64(n)))
		if end > start {
			ranges = append(ranges, noise.Range{Start: start, End: end})
		}
	}
	return ranges
}
