// Package repeater is the control loop of the simplex repeater: it turns
// received bursts into messages, acts on DTMF commands in them, records
// them, and sends them back out with a station ID when one is due.
package repeater

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/doismellburning/simplex/src/audio"
	"github.com/doismellburning/simplex/src/cw"
	"github.com/doismellburning/simplex/src/dtmf"
	"github.com/doismellburning/simplex/src/noise"
	"github.com/doismellburning/simplex/src/recording"
)

// Source delivers received bursts in order.  Get blocks until one is
// available, ctx ends, or the source is finished.
type Source interface {
	Get(ctx context.Context) (audio.TimedChunk, error)
}

// Sink accepts complete transmissions for playback.
type Sink interface {
	Put(samples []float32) error
}

// ErrCaptureClosed means the capture side has gone away.  The repeater
// cannot do anything useful after that.
var ErrCaptureClosed = errors.New("capture closed")

// ErrPlaybackClosed is the same for the playback side.
var ErrPlaybackClosed = errors.New("playback closed")

type State int

const (
	// Idle waits indefinitely for the next message.
	Idle State = iota

	// MidConversation waits at most the idle ID time.  Silence for
	// that long means the conversation is over and an ID is owed.
	MidConversation
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case MidConversation:
		return "mid-conversation"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Message is one or more received bursts joined into one.
type Message struct {
	ID      string
	Samples []float32
	End     uint64 // absolute position one past the last sample
}

func (m Message) Start() uint64 {
	return m.End - uint64(len(m.Samples))
}

type Repeater struct {
	cfg    Config
	src    Source
	sink   Sink
	store  recording.Store // may be nil, for no recordings
	logger *log.Logger

	tx         transmitter
	idDuration time.Duration
	debouncer  *dtmf.Debouncer

	continuity uint64
	commandGap uint64
	interval   uint64
	idleID     uint64

	state     State
	haveID    bool
	lastIDEnd uint64
	lastEnd   uint64 // end of the most recent message

	pending *audio.TimedChunk // already received, belongs to the next message
	srcErr  error             // source failed while a message was being assembled
}

/*-------------------------------------------------------------------
 *
 * Name:        New
 *
 * Purpose:    	Prepare the control loop.
 *
 * Inputs:	cfg	- Timing and station details.
 *
 *		src	- Received bursts.
 *
 *		sink	- Transmissions.
 *
 *		store	- Where messages are recorded, and replayed from.
 *			  nil for none.
 *
 * Returns:	An error only if the callsign can't be sent in Morse.
 *		We never send a partial ID.
 *
 * Description:	The ID is rendered once here, starting at phase zero, and
 *		the same samples are sent every time.
 *
 *--------------------------------------------------------------------*/

func New(cfg Config, src Source, sink Sink, store recording.Store, logger *log.Logger) (*Repeater, error) {
	var rate = float64(cfg.SampleRate)

	var units, err = cw.Encode(cfg.Callsign)
	if err != nil {
		return nil, fmt.Errorf("callsign %q: %w", cfg.Callsign, err)
	}
	id, err := cw.Render(cfg.Callsign, rate, cfg.IDToneHz, cfg.IDWPM, cw.DecibelsToLevel(cfg.IDLevelDB))
	if err != nil {
		return nil, fmt.Errorf("callsign %q: %w", cfg.Callsign, err)
	}

	if cfg.DTMF.SampleRate == 0 {
		cfg.DTMF.SampleRate = rate
	}

	return &Repeater{
		cfg:    cfg,
		src:    src,
		sink:   sink,
		store:  store,
		logger: logger,
		tx: transmitter{
			lead:  cfg.samples(cfg.Lead),
			preID: cfg.samples(cfg.PreIDGap),
			hang:  cfg.samples(cfg.Hang),
			id:    id,
		},
		idDuration: cw.UnitsToDuration(len(units), cfg.IDWPM),
		debouncer:  dtmf.NewDebouncer(cfg.DTMF),
		continuity: uint64(cfg.samples(cfg.Continuity)),
		commandGap: uint64(cfg.samples(cfg.CommandGap)),
		interval:   uint64(cfg.samples(cfg.IDInterval)),
		idleID:     uint64(cfg.samples(cfg.IdleID)),
		state:      Idle,
	}, nil
}

// IDLen is the length of the rendered station ID in samples.
func (r *Repeater) IDLen() int {
	return len(r.tx.id)
}

// IDDuration is how long the station ID takes to send.
func (r *Repeater) IDDuration() time.Duration {
	return r.idDuration
}

func (r *Repeater) State() State {
	return r.state
}

/*-------------------------------------------------------------------
 *
 * Name:        Run
 *
 * Purpose:    	The main loop, one message per iteration.
 *
 * Returns:	nil when ctx ends.  ErrCaptureClosed or ErrPlaybackClosed
 *		if either side goes away, which is fatal.
 *
 *--------------------------------------------------------------------*/

func (r *Repeater) Run(ctx context.Context) error {
	r.logger.Info("repeater running", "callsign", r.cfg.Callsign, "rate", r.cfg.SampleRate, "id", r.idDuration)

	for {
		var msg, err = r.nextMessage(ctx)
		switch {
		case errors.Is(err, errIdleTimeout):
			if err := r.sendIdleID(); err != nil {
				return err
			}
			continue
		case ctx.Err() != nil:
			return nil
		case err != nil:
			return err
		}

		if err := r.handle(msg); err != nil {
			return err
		}
	}
}

var errIdleTimeout = errors.New("idle timeout")

// nextMessage waits for a burst, then keeps adding bursts that follow
// closely enough to count as the same message.
func (r *Repeater) nextMessage(ctx context.Context) (Message, error) {
	var first audio.TimedChunk

	switch {
	case r.pending != nil:
		first = *r.pending
		r.pending = nil
	case r.srcErr != nil:
		return Message{}, r.srcErr
	case r.state == MidConversation:
		var c, timedOut, err = r.getWithin(ctx, r.cfg.IdleID)
		if timedOut {
			return Message{}, errIdleTimeout
		}
		if err != nil {
			return Message{}, err
		}
		first = c
	default:
		var c, err = r.get(ctx)
		if err != nil {
			return Message{}, err
		}
		first = c
	}

	var msg = Message{
		ID:      uuid.NewString(),
		Samples: append([]float32(nil), first.Samples...),
		End:     first.EndSample,
	}

	for {
		var c, timedOut, err = r.getWithin(ctx, r.cfg.Continuity)
		if timedOut {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return msg, err
			}
			// Finish this message.  The error comes out next time round.
			r.srcErr = err
			break
		}

		var start = c.StartSample()
		if start > msg.End && start-msg.End > r.continuity {
			r.pending = &c
			break
		}
		msg = join(msg, c)
	}

	return msg, nil
}

// join appends c to msg with zeros covering the time between them.
func join(msg Message, c audio.TimedChunk) Message {
	var start = c.StartSample()
	if start > msg.End {
		msg.Samples = append(msg.Samples, make([]float32, start-msg.End)...)
	}
	msg.Samples = append(msg.Samples, c.Samples...)
	msg.End = max(msg.End, c.EndSample)
	return msg
}

func (r *Repeater) get(ctx context.Context) (audio.TimedChunk, error) {
	var c, err = r.src.Get(ctx)
	if err != nil && ctx.Err() == nil {
		return c, fmt.Errorf("%w: %w", ErrCaptureClosed, err)
	}
	return c, err
}

// getWithin is get with a time limit.  Timing out is not an error.
func (r *Repeater) getWithin(ctx context.Context, d time.Duration) (audio.TimedChunk, bool, error) {
	var tctx, cancel = context.WithTimeout(ctx, d)
	defer cancel()

	var c, err = r.src.Get(tctx)
	if err == nil {
		return c, false, nil
	}
	if ctx.Err() != nil {
		return c, false, ctx.Err()
	}
	if errors.Is(tctx.Err(), context.DeadlineExceeded) {
		return c, true, nil
	}
	return c, false, fmt.Errorf("%w: %w", ErrCaptureClosed, err)
}

/*-------------------------------------------------------------------
 *
 * Name:        handle
 *
 * Purpose:    	Everything that happens to one message.
 *
 * Description:	1. Look for DTMF, with a debouncer that has forgotten
 *		   everything from earlier messages.
 *		2. Replace the tones with noise at the background level so
 *		   they are neither repeated nor recorded.
 *		3. "##" plays back the previous recording.
 *		4. Record the message.
 *		5. Send it, with an ID if one is due.
 *
 *--------------------------------------------------------------------*/

func (r *Repeater) handle(msg Message) error {
	var logger = r.logger.With("msg", msg.ID)
	logger.Info("message", "start", msg.Start(), "end", msg.End, "samples", len(msg.Samples))

	var events = r.detect(msg.Samples)
	if len(events) > 0 {
		var seqs = Sequences(events, r.commandGap)
		logger.Info("DTMF", "sequences", seqs)

		noise.Suppress(msg.Samples, toneRanges(events, len(msg.Samples)), float64(r.cfg.SampleRate))

		if WantsReplay(seqs) {
			if err := r.replay(logger); err != nil {
				return err
			}
		}
	}

	if r.store != nil {
		if path, err := r.store.Write(msg.Samples); err != nil {
			logger.Error("recording failed", "err", err)
		} else {
			logger.Debug("recorded", "path", path)
		}
	}

	var withID = IDDue(r.haveID, r.lastIDEnd, msg.End, r.tx.plainLen(len(msg.Samples)), r.interval)
	var tx, idEnd = r.tx.build(msg.Samples, withID)
	if err := r.send(tx); err != nil {
		return err
	}

	r.lastEnd = msg.End
	if withID {
		r.haveID = true
		r.lastIDEnd = msg.End + uint64(idEnd)
		r.state = Idle
	} else {
		r.state = MidConversation
	}
	logger.Info("sent", "samples", len(tx), "id", withID, "state", r.state)
	return nil
}

// detect runs a freshly reset debouncer over samples.  A key held to the
// very end still counts.
func (r *Repeater) detect(samples []float32) []dtmf.Event {
	r.debouncer.Reset()

	var events = r.debouncer.Push(samples)
	events = append(events, r.debouncer.Flush()...)

	r.debouncer.Reset()
	return events
}

// replay queues the most recent recording.  Trouble reading it is logged
// and otherwise ignored.
func (r *Repeater) replay(logger *log.Logger) error {
	if r.store == nil {
		logger.Warn("replay requested but recording is off")
		return nil
	}

	var path, ok = r.store.Latest()
	if !ok {
		logger.Info("replay requested, nothing recorded yet")
		return nil
	}

	var samples, err = r.store.Read(path)
	if err != nil {
		logger.Error("replay failed", "path", path, "err", err)
		return nil
	}

	logger.Info("replay", "path", path, "samples", len(samples))
	return r.send(samples)
}

// sendIdleID identifies after a conversation has gone quiet.
func (r *Repeater) sendIdleID() error {
	var tx, idEnd = r.tx.idOnly()
	if err := r.send(tx); err != nil {
		return err
	}

	// Nothing has been received so the sample clock isn't visible here.
	// The wait started when the last message ended, near enough.
	r.haveID = true
	r.lastIDEnd = r.lastEnd + r.idleID + uint64(idEnd)
	r.state = Idle

	r.logger.Info("idle ID", "samples", len(tx))
	return nil
}

func (r *Repeater) send(tx []float32) error {
	if err := r.sink.Put(tx); err != nil {
		return fmt.Errorf("%w: %w", ErrPlaybackClosed, err)
	}
	return nil
}
