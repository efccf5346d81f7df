package recording

/*------------------------------------------------------------------
 *
 * Purpose:   	Store recordings as Ogg Opus, RFC 7845.
 *
 * Description: Mono audio is cut into 20 ms frames, the last one padded
 *		with silence, and each frame is one Opus packet.  The stream
 *		starts with the OpusHead and OpusTags header packets, each
 *		on a page of its own.
 *
 *		Granule positions are always in 48 kHz samples regardless of
 *		the input rate.  Pre-skip covers the encoder lookahead and
 *		the final granule gives the true length, so libopusfile
 *		drops both on the way back in.
 *
 *		libopusfile always decodes at 48 kHz.  Other store rates
 *		divide 48000 exactly and are reached by averaging.
 *
 *---------------------------------------------------------------*/

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/hraban/opus.v2"
)

const (
	opusVendor        = "simplex-repeater"
	opusGranuleRate   = 48000
	opusMaxPacket     = 4000
	opusMaxFrame      = 5760 // 120 ms at 48 kHz, the largest Opus frame
	opusPreSkip       = 312  // encoder lookahead for AppAudio, 6.5 ms at 48 kHz
	opusFramesPerSec  = 50
	timestampLayout   = time.RFC3339Nano
	opusHeadMagic     = "OpusHead"
	opusTagsMagic     = "OpusTags"
	opusHeadLen       = 19
	opusHeadVersion   = 1
	opusChannelFamily = 0
)

// OpusStore keeps recordings as .ogg files.
type OpusStore struct {
	dir        string
	sampleRate int
	now        func() time.Time
}

// NewOpusStore fails if Opus cannot run at sampleRate.  The valid rates
// are 8, 12, 16, 24 and 48 kHz.
func NewOpusStore(dir string, sampleRate int) (*OpusStore, error) {
	if _, err := opus.NewDecoder(sampleRate, 1); err != nil {
		return nil, fmt.Errorf("opus at %d Hz: %w", sampleRate, err)
	}
	return &OpusStore{dir: dir, sampleRate: sampleRate, now: time.Now}, nil
}

func (s *OpusStore) Write(samples []float32) (string, error) {
	var t = s.now()
	var path = uniquePath(s.dir, t, ".ogg")
	var serial = uint32(t.Unix()) + uint32(t.Nanosecond())

	var err = writeFile(path, func(f *os.File) error {
		var w = bufio.NewWriter(f)
		if err := s.encode(w, serial, t, samples); err != nil {
			return err
		}
		return w.Flush()
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

func (s *OpusStore) encode(w io.Writer, serial uint32, t time.Time, samples []float32) error {
	var enc, err = opus.NewEncoder(s.sampleRate, 1, opus.AppAudio)
	if err != nil {
		return err
	}

	var ogg = newOggWriter(w, serial)
	if err := ogg.WritePacket(opusHead(s.sampleRate, 1, opusPreSkip), 0, true, false); err != nil {
		return err
	}
	if err := ogg.WritePacket(opusTags(opusVendor, t.UTC().Format(timestampLayout)), 0, true, false); err != nil {
		return err
	}

	var frameLen = s.sampleRate / opusFramesPerSec
	var frame = make([]float32, frameLen)
	var packet = make([]byte, opusMaxPacket)

	// The decoder output lags the input by the lookahead, so keep
	// feeding silence until the last real sample has come out.
	var need = len(samples) + s.fromGranule(opusPreSkip)
	var total = opusPreSkip + s.toGranule(len(samples))
	var pos = 0

	for pos < need {
		var n = 0
		if pos < len(samples) {
			n = copy(frame, samples[pos:])
		}
		clear(frame[n:])
		pos += frameLen

		var size, err = enc.EncodeFloat32(frame, packet)
		if err != nil {
			return err
		}

		var granule = s.toGranule(pos)
		var last = pos >= need
		if last {
			granule = total
		}
		if err := ogg.WritePacket(packet[:size], granule, false, last); err != nil {
			return err
		}
	}

	return nil
}

func (s *OpusStore) toGranule(n int) int64 {
	return int64(n) * opusGranuleRate / int64(s.sampleRate)
}

func (s *OpusStore) fromGranule(g int64) int {
	return int(g * int64(s.sampleRate) / opusGranuleRate)
}

func (s *OpusStore) Latest() (string, bool) {
	return latestWithExt(s.dir, ".ogg")
}

func (s *OpusStore) Read(path string) ([]float32, error) {
	var f, err = os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var samples, derr = s.decode(f)
	if derr != nil {
		return nil, fmt.Errorf("read %s: %w", path, derr)
	}
	return samples, nil
}

var ErrBadRecording = errors.New("bad recording")

func (s *OpusStore) decode(r io.Reader) ([]float32, error) {
	var stream, err = opus.NewStream(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRecording, err)
	}
	defer stream.Close()

	var pcm []float32
	var out = make([]float32, opusMaxFrame)
	for {
		var n, err = stream.ReadFloat32(out)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadRecording, err)
		}
		pcm = append(pcm, out[:n]...)
	}

	return decimate(pcm, opusGranuleRate/s.sampleRate), nil
}

// decimate keeps one sample in every factor, each the mean of its group.
// A short group at the end is dropped.
func decimate(in []float32, factor int) []float32 {
	if factor <= 1 {
		return in
	}
	var out = make([]float32, len(in)/factor)
	for i := range out {
		var sum float32
		for _, v := range in[i*factor : (i+1)*factor] {
			sum += v
		}
		out[i] = sum / float32(factor)
	}
	return out
}

// opusHead is the identification header: magic, version, channel count,
// pre-skip, input sample rate, output gain and mapping family.
func opusHead(sampleRate int, channels uint8, preskip uint16) []byte {
	var head = make([]byte, 0, opusHeadLen)
	head = append(head, opusHeadMagic...)
	head = append(head, opusHeadVersion, channels)
	head = binary.LittleEndian.AppendUint16(head, preskip)
	head = binary.LittleEndian.AppendUint32(head, uint32(sampleRate))
	head = binary.LittleEndian.AppendUint16(head, 0)
	head = append(head, opusChannelFamily)
	return head
}

// opusTags is the comment header with a single TIMESTAMP entry.
func opusTags(vendor, timestamp string) []byte {
	var comment = "TIMESTAMP=" + timestamp
	var tags = []byte(opusTagsMagic)
	tags = binary.LittleEndian.AppendUint32(tags, uint32(len(vendor)))
	tags = append(tags, vendor...)
	tags = binary.LittleEndian.AppendUint32(tags, 1)
	tags = binary.LittleEndian.AppendUint32(tags, uint32(len(comment)))
	tags = append(tags, comment...)
	return tags
}
