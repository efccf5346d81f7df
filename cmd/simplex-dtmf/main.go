// simplex-dtmf lists the touch tone key presses in a WAV file, the same
// way the repeater hears them.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/doismellburning/simplex/src/dtmf"
	"github.com/doismellburning/simplex/src/logging"
	"github.com/doismellburning/simplex/src/recording"
	"github.com/doismellburning/simplex/src/repeater"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var flags = pflag.NewFlagSet("simplex-dtmf", pflag.ContinueOnError)
	flags.SetOutput(stderr)

	var frame = flags.DurationP("frame", "f", dtmf.DefaultFrame, "Detection frame length.")
	var minPress = flags.IntP("min-press", "p", dtmf.DefaultMinPressFrames, "Frames a key must be present.")
	var minGap = flags.IntP("min-gap", "g", dtmf.DefaultMinGapFrames, "Empty frames that end a press.")
	var commandGap = flags.DurationP("command-gap", "c", 2*time.Second, "A longer pause starts a new digit sequence.")
	var help = flags.BoolP("help", "h", false, "Display help text.")

	flags.Usage = func() {
		fmt.Fprintf(stderr, "simplex-dtmf - List DTMF key presses in audio files.\n")
		fmt.Fprintf(stderr, "\n")
		fmt.Fprintf(stderr, "Usage: simplex-dtmf [options] file.wav...\n")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		return 2
	}
	if *help {
		flags.Usage()
		return 0
	}
	if flags.NArg() == 0 {
		flags.Usage()
		return 2
	}

	var rc = 0
	for _, path := range flags.Args() {
		var samples, rate, err = readWAV(path)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %s\n", path, err)
			rc = 1
			continue
		}

		var cfg = dtmf.DefaultConfig(float64(rate))
		cfg.FrameSamples = dtmf.DurationToSamples(*frame, float64(rate))
		cfg.MinPressFrames = *minPress
		cfg.MinGapFrames = *minGap

		var d = dtmf.NewDebouncer(cfg)
		var events = d.Push(samples)
		events = append(events, d.Flush()...)

		fmt.Fprintf(stdout, "%s: %d Hz, %s, %d key presses\n", path, rate, logging.Elapsed(len(samples), rate), len(events))
		for _, ev := range events {
			fmt.Fprintf(stdout, "  %s  %8s - %8s\n", ev.Key, at(ev.Start, rate), at(ev.End+1, rate))
		}

		var gap = uint64(dtmf.DurationToSamples(*commandGap, float64(rate)))
		for _, seq := range repeater.Sequences(events, gap) {
			var note = ""
			if repeater.WantsReplay([]string{seq}) {
				note = " (replay)"
			}
			fmt.Fprintf(stdout, "  sequence %s%s\n", seq, note)
		}
	}
	return rc
}

func readWAV(path string) ([]float32, int, error) {
	var f, err = os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	return recording.ReadWAV(f)
}

func at(sample uint64, rate int) time.Duration {
	return logging.Elapsed(int(sample), rate)
}
