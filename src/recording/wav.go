package recording

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavBitDepth = 16

var ErrNotWAV = errors.New("not a valid WAV file")

// WAVStore keeps recordings as 16 bit mono PCM.
type WAVStore struct {
	dir        string
	sampleRate int
	now        func() time.Time
}

func NewWAVStore(dir string, sampleRate int) *WAVStore {
	return &WAVStore{dir: dir, sampleRate: sampleRate, now: time.Now}
}

func (s *WAVStore) Write(samples []float32) (string, error) {
	var path = uniquePath(s.dir, s.now(), ".wav")

	var err = writeFile(path, func(f *os.File) error {
		return WriteWAV(f, samples, s.sampleRate)
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

func (s *WAVStore) Latest() (string, bool) {
	return latestWithExt(s.dir, ".wav")
}

func (s *WAVStore) Read(path string) ([]float32, error) {
	var f, err = os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var samples, rate, rerr = ReadWAV(f)
	if rerr != nil {
		return nil, fmt.Errorf("read %s: %w", path, rerr)
	}
	if rate != s.sampleRate {
		return nil, fmt.Errorf("read %s: sample rate %d, want %d", path, rate, s.sampleRate)
	}
	return samples, nil
}

// WriteWAV encodes mono float samples as 16 bit PCM.  Anything outside
// +-1 is clipped.
func WriteWAV(w io.WriteSeeker, samples []float32, sampleRate int) error {
	var enc = wav.NewEncoder(w, sampleRate, wavBitDepth, 1, 1)

	var data = make([]int, len(samples))
	for i, s := range samples {
		var v = math.Max(-1, math.Min(1, float64(s)))
		data[i] = int(math.Round(v * math.MaxInt16))
	}

	var buf = &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: wavBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}

// ReadWAV decodes a PCM file to floats in +-1.  Only the first channel
// of a multichannel file is kept.
func ReadWAV(r io.ReadSeeker) ([]float32, int, error) {
	var dec = wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, ErrNotWAV
	}

	var buf, err = dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, err
	}

	var channels = max(buf.Format.NumChannels, 1)
	var bits = buf.SourceBitDepth
	if bits <= 0 {
		bits = wavBitDepth
	}
	var scale = float32(int(1) << (bits - 1))

	var out = make([]float32, 0, len(buf.Data)/channels)
	for i := 0; i < len(buf.Data); i += channels {
		out = append(out, float32(buf.Data[i])/scale)
	}
	return out, buf.Format.SampleRate, nil
}
