package device

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"

	"github.com/doismellburning/simplex/src/audio"
	"github.com/doismellburning/simplex/src/queue"
)

/*------------------------------------------------------------------
 *
 * Purpose:   	Receive audio.
 *
 * Description: Every callback buffer goes through the segmenter.  Each
 *		burst it completes is put on the capture queue, tagged
 *		with its absolute end position.  Put never blocks so the
 *		callback never waits on the control loop.
 *
 *---------------------------------------------------------------*/

type Capture struct {
	stream   *portaudio.Stream
	seg      *audio.Segmenter
	out      *queue.Queue[audio.TimedChunk]
	channels int
	logger   *log.Logger

	overflows atomic.Uint64
	stopOnce  sync.Once
}

func newCapture(seg *audio.Segmenter, out *queue.Queue[audio.TimedChunk], channels int, logger *log.Logger) *Capture {
	return &Capture{
		seg:      seg,
		out:      out,
		channels: max(channels, 1),
		logger:   logger,
	}
}

// StartCapture opens dev for mono input at sampleRate and starts putting
// bursts on out.
func StartCapture(dev *portaudio.DeviceInfo, sampleRate int, cfg audio.SegmenterConfig, out *queue.Queue[audio.TimedChunk], logger *log.Logger) (*Capture, error) {
	var p = portaudio.HighLatencyParameters(dev, nil)
	p.Input.Channels = 1
	p.SampleRate = float64(sampleRate)

	var c = newCapture(audio.NewSegmenter(cfg), out, p.Input.Channels, logger)

	var stream, err = portaudio.OpenStream(p, c.callback)
	if err != nil {
		return nil, fmt.Errorf("open capture on %s: %w", dev.Name, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("start capture on %s: %w", dev.Name, err)
	}
	c.stream = stream

	logger.Info("capture started", "device", dev.Name, "rate", sampleRate)
	return c, nil
}

func (c *Capture) callback(in []float32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
	if flags&portaudio.InputOverflow != 0 {
		c.overflows.Add(1)
	}
	c.process(in)
}

func (c *Capture) process(in []float32) {
	for _, chunk := range c.seg.WriteInterleaved(in, c.channels) {
		// Only fails once closed, and then nobody is listening.
		_ = c.out.Put(chunk)
	}
}

// Overflows counts callbacks that reported lost input.
func (c *Capture) Overflows() uint64 {
	return c.overflows.Load()
}

// Stop ends capture, hands over any burst in progress, and closes the
// queue so the reader knows no more is coming.
func (c *Capture) Stop() error {
	var err error
	c.stopOnce.Do(func() {
		if c.stream != nil {
			if e := c.stream.Stop(); e != nil {
				err = e
			}
			c.stream.Close()
		}
		if chunk, ok := c.seg.Flush(); ok {
			_ = c.out.Put(chunk)
		}
		c.out.Close()

		if n := c.Overflows(); n > 0 {
			c.logger.Warn("capture lost input", "overflows", n)
		}
	})
	return err
}

/*------------------------------------------------------------------
 *
 * Purpose:   	Transmit audio.
 *
 * Description: The mixer pulls whole transmissions off the playback
 *		queue and plays them back to back.  Silence between them
 *		is whatever the sender put in the buffers.
 *
 *---------------------------------------------------------------*/

type Playback struct {
	stream *portaudio.Stream
	mixer  *audio.Mixer
	logger *log.Logger

	underflows atomic.Uint64
	stopOnce   sync.Once
}

// StartPlayback opens dev for output at sampleRate, stereo where the
// device allows, and starts playing from src.
func StartPlayback(dev *portaudio.DeviceInfo, sampleRate int, cfg audio.MixerConfig, src audio.Source, logger *log.Logger) (*Playback, error) {
	var p = portaudio.HighLatencyParameters(nil, dev)
	p.SampleRate = float64(sampleRate)
	if p.Output.Channels < 1 {
		return nil, fmt.Errorf("%w: %s has no output channels", ErrNoDevice, dev.Name)
	}

	cfg.SampleRate = float64(sampleRate)
	cfg.Channels = p.Output.Channels
	if cfg.Channels < 2 && cfg.KeyToneHz > 0 {
		logger.Warn("mono output, no keying tone", "device", dev.Name)
	}

	var pb = &Playback{
		mixer:  audio.NewMixer(src, cfg),
		logger: logger,
	}

	var stream, err = portaudio.OpenStream(p, pb.callback)
	if err != nil {
		return nil, fmt.Errorf("open playback on %s: %w", dev.Name, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("start playback on %s: %w", dev.Name, err)
	}
	pb.stream = stream

	logger.Info("playback started", "device", dev.Name, "rate", sampleRate, "channels", cfg.Channels)
	return pb, nil
}

func (pb *Playback) callback(out []float32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
	if flags&portaudio.OutputUnderflow != 0 {
		pb.underflows.Add(1)
	}
	pb.mixer.Fill(out)
}

func (pb *Playback) Stop() error {
	var err error
	pb.stopOnce.Do(func() {
		err = pb.stream.Stop()
		pb.stream.Close()
		if n := pb.underflows.Load(); n > 0 {
			pb.logger.Warn("playback underflowed", "underflows", n)
		}
	})
	return err
}
