// simplex-repeater listens on a sound card, and sends back what it hears
// with a Morse station ID.  DTMF "##" plays back the previous message.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/doismellburning/simplex/src/audio"
	"github.com/doismellburning/simplex/src/config"
	"github.com/doismellburning/simplex/src/device"
	"github.com/doismellburning/simplex/src/logging"
	"github.com/doismellburning/simplex/src/ptt"
	"github.com/doismellburning/simplex/src/queue"
	"github.com/doismellburning/simplex/src/recording"
	"github.com/doismellburning/simplex/src/repeater"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	configFile  string
	callsign    string
	outputLevel float64
	device      string
	recordings  string
	format      string
	logLevel    string
	listDevices bool
	help        bool

	set map[string]bool // flags given on the command line
}

var errArgs = errors.New("bad arguments")

func parseArgs(args []string, stderr io.Writer) (*options, *pflag.FlagSet, error) {
	var o options
	var flags = pflag.NewFlagSet("simplex-repeater", pflag.ContinueOnError)
	flags.SetOutput(stderr)

	flags.StringVarP(&o.configFile, "config", "c", "", "Configuration file.  Default is to search for simplex.yaml.")
	flags.StringVar(&o.callsign, "callsign", "", "Station callsign, sent as the Morse ID.")
	flags.Float64Var(&o.outputLevel, "output-level", 1, "Transmit audio level, 0 to 1.")
	flags.StringVarP(&o.device, "device", "d", "", "Regular expression picking the audio device by name.")
	flags.StringVarP(&o.recordings, "recordings", "r", "", "Directory for recorded messages.")
	flags.StringVar(&o.format, "format", "", "Recording format, opus or wav.")
	flags.StringVar(&o.logLevel, "log-level", "", "debug, info, warn or error.")
	flags.BoolVarP(&o.listDevices, "list-devices", "l", false, "List audio and CM108 PTT devices, then exit.")
	flags.BoolVarP(&o.help, "help", "h", false, "Display help text.")

	flags.Usage = func() {
		fmt.Fprintf(stderr, "simplex-repeater - Simplex repeater with Morse ID.\n")
		fmt.Fprintf(stderr, "\n")
		fmt.Fprintf(stderr, "Usage: simplex-repeater [options] [callsign]\n")
		flags.PrintDefaults()
		fmt.Fprintf(stderr, "\n")
		fmt.Fprintf(stderr, "Command line options override the configuration file.\n")
	}

	if err := flags.Parse(args); err != nil {
		return nil, flags, err
	}

	switch flags.NArg() {
	case 0:
	case 1:
		if o.callsign != "" && o.callsign != flags.Arg(0) {
			return nil, flags, fmt.Errorf("%w: callsign given twice, %q and %q", errArgs, o.callsign, flags.Arg(0))
		}
		o.callsign = flags.Arg(0)
	default:
		return nil, flags, fmt.Errorf("%w: unexpected %s", errArgs, strings.Join(flags.Args()[1:], " "))
	}

	o.set = make(map[string]bool)
	flags.Visit(func(f *pflag.Flag) { o.set[f.Name] = true })
	return &o, flags, nil
}

// loadConfig reads the configuration file, if any, and applies the
// command line on top.
func loadConfig(o *options) (config.Config, string, error) {
	var cfg = config.Default()
	var path = o.configFile

	if path == "" {
		path, _ = config.Find()
	}
	if path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return cfg, path, err
		}
	}

	if o.callsign != "" {
		cfg.Station.Callsign = o.callsign
	}
	if o.set["output-level"] {
		cfg.Audio.OutputLevel = o.outputLevel
	}
	if o.set["device"] {
		cfg.Audio.Device = o.device
	}
	if o.recordings != "" {
		cfg.Recordings.Dir = o.recordings
	}
	if o.format != "" {
		cfg.Recordings.Format = o.format
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}

	return cfg, path, cfg.Validate()
}

func run(args []string, stdout, stderr io.Writer) int {
	var o, flags, err = parseArgs(args, stderr)
	if err != nil {
		// pflag reports its own errors.
		if errors.Is(err, errArgs) {
			fmt.Fprintf(stderr, "%s\n", err)
		}
		return 2
	}
	if o.help {
		flags.Usage()
		return 0
	}

	if o.listDevices {
		return listDevices(stdout, stderr)
	}

	cfg, path, err := loadConfig(o)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return 2
	}

	var logger = logging.Stderr(cfg.LogLevel)
	if path != "" {
		logger.Info("configuration", "file", path)
	}

	var ctx, stop = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error("stopped", "err", err)
		return 1
	}
	return 0
}

/*-------------------------------------------------------------------
 *
 * Name:        serve
 *
 * Purpose:    	Wire everything together and run until told to stop.
 *
 * Description:	capture -> queue -> repeater -> queue -> playback
 *
 *		The playback mixer tells the PTT controller when audio
 *		starts and stops.  Losing either audio direction is fatal.
 *
 *--------------------------------------------------------------------*/

func serve(ctx context.Context, cfg config.Config, logger *log.Logger) error {
	var store, err = recording.Open(cfg.Recordings.Format, cfg.Recordings.Dir, cfg.Audio.SampleRate)
	if err != nil {
		return err
	}

	keyer, err := ptt.New(cfg.PTT)
	if err != nil {
		return err
	}
	if c, ok := keyer.(*ptt.CM108); ok && !c.Recognised {
		logger.Warn("PTT device is not a known CM108 type, proceeding anyway", "device", c.Devnode)
	}
	var pttc = ptt.NewController(keyer, logging.Component(logger, "ptt"))

	terminate, err := device.Initialize()
	if err != nil {
		keyer.Close()
		return err
	}
	defer terminate()

	in, err := device.Find(cfg.Audio.Device, device.Input)
	if err != nil {
		keyer.Close()
		return err
	}
	out, err := device.Find(cfg.Audio.Device, device.Output)
	if err != nil {
		keyer.Close()
		return err
	}

	var captured = queue.New[audio.TimedChunk]()
	var outgoing = queue.New[[]float32]()

	var ctx2, cancel = context.WithCancel(ctx)
	defer cancel()

	var pttDone = make(chan error, 1)
	go func() { pttDone <- pttc.Run(ctx2) }()
	defer func() { cancel(); <-pttDone }()

	playback, err := device.StartPlayback(out, cfg.Audio.SampleRate, audio.MixerConfig{
		Level:     float32(cfg.Audio.OutputLevel),
		KeyToneHz: cfg.Audio.KeyToneHz,
		OnKey:     pttc.Set,
	}, outgoing, logging.Component(logger, "playback"))
	if err != nil {
		return err
	}
	defer playback.Stop()

	capture, err := device.StartCapture(in, cfg.Audio.SampleRate, audio.SegmenterConfig{
		BlockLen:  cfg.Audio.BlockLen,
		Threshold: float32(cfg.Audio.Threshold),
	}, captured, logging.Component(logger, "capture"))
	if err != nil {
		return err
	}
	defer capture.Stop()

	rep, err := repeater.New(repeater.FromConfig(cfg), captured, outgoing, store, logging.Component(logger, "repeater"))
	if err != nil {
		return err
	}
	return rep.Run(ctx2)
}

func listDevices(stdout, stderr io.Writer) int {
	var terminate, err = device.Initialize()
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return 1
	}
	defer terminate()

	devices, err := device.List()
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Audio devices:\n")
	for _, d := range devices {
		fmt.Fprintf(stdout, "%s\n", d)
	}

	hid, err := ptt.Inventory()
	if err != nil {
		fmt.Fprintf(stderr, "HID devices: %s\n", err)
		return 0
	}
	fmt.Fprintf(stdout, "\nUSB HID devices (* = usable for CM108 PTT):\n")
	for _, h := range hid {
		var mark = " "
		if h.Good() {
			mark = "*"
		}
		fmt.Fprintf(stdout, "%s %-16s %04x:%04x  %s\n", mark, h.Devnode, h.Vendor, h.Product, h.Name)
	}
	return 0
}
