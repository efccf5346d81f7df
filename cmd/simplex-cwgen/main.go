// simplex-cwgen renders Morse code to a WAV file, e.g. to hear what the
// station ID will sound like.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/doismellburning/simplex/src/cw"
	"github.com/doismellburning/simplex/src/logging"
	"github.com/doismellburning/simplex/src/recording"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var flags = pflag.NewFlagSet("simplex-cwgen", pflag.ContinueOnError)
	flags.SetOutput(stderr)

	var output = flags.StringP("output-file", "o", "", "Write audio to this .wav file.")
	var rate = flags.IntP("audio-sample-rate", "r", 48000, "Audio sample rate.")
	var tone = flags.Float64P("tone", "t", 700, "Tone frequency in Hz.")
	var wpm = flags.Float64P("wpm", "w", 20, "Speed in words per minute.")
	var levelDB = flags.Float64P("level", "l", -20, "Level in dB relative to full scale.")
	var help = flags.BoolP("help", "h", false, "Display help text.")

	flags.Usage = func() {
		fmt.Fprintf(stderr, "simplex-cwgen - Generate a WAV file of Morse code.\n")
		fmt.Fprintf(stderr, "\n")
		fmt.Fprintf(stderr, "Usage: simplex-cwgen [options] -o file text...\n")
		flags.PrintDefaults()
		fmt.Fprintf(stderr, "\n")
		fmt.Fprintf(stderr, "Prosigns go in angle brackets, e.g.  simplex-cwgen -o id.wav \"N0CALL <AR>\"\n")
	}

	if err := flags.Parse(args); err != nil {
		return 2
	}
	if *help {
		flags.Usage()
		return 0
	}

	var text = strings.Join(flags.Args(), " ")
	if text == "" || *output == "" {
		flags.Usage()
		return 2
	}
	if *rate <= 0 || *wpm <= 0 || *tone <= 0 || *tone >= float64(*rate)/2 {
		fmt.Fprintf(stderr, "Sample rate, speed and tone must be positive, and the tone below %d Hz.\n", *rate/2)
		return 2
	}

	var samples, err = cw.Render(text, float64(*rate), *tone, *wpm, cw.DecibelsToLevel(*levelDB))
	if err != nil {
		fmt.Fprintf(stderr, "Can't send %q: %s\n", text, err)
		return 1
	}

	f, err := os.Create(*output)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return 1
	}
	if err := recording.WriteWAV(f, samples, *rate); err != nil {
		f.Close()
		fmt.Fprintf(stderr, "Writing %s: %s\n", *output, err)
		return 1
	}
	if err := f.Close(); err != nil {
		fmt.Fprintf(stderr, "Writing %s: %s\n", *output, err)
		return 1
	}

	fmt.Fprintf(stdout, "%s: %d samples, %s\n", *output, len(samples), logging.Elapsed(len(samples), *rate))
	return 0
}
