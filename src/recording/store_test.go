package recording

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2024, 5, 1, 13, 45, 2, 123456789, time.UTC)

func sine(n int, rate, freq, level float64) []float32 {
	var out = make([]float32, n)
	for i := range out {
		out[i] = float32(level * math.Sin(2*math.Pi*freq*float64(i)/rate))
	}
	return out
}

func rms(samples []float32) float64 {
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func Test_Filename(t *testing.T) {
	assert.Equal(t, "msg-2024-05-01-134502.1234Z.ogg", Filename(testTime, ".ogg"))

	// Always UTC.
	var local = testTime.In(time.FixedZone("X", 3600))
	assert.Equal(t, "msg-2024-05-01-134502.1234Z.wav", Filename(local, ".wav"))
}

func Test_Filename_SortsByTime(t *testing.T) {
	var a = Filename(testTime, ".ogg")
	var b = Filename(testTime.Add(time.Millisecond), ".ogg")
	var c = Filename(testTime.Add(10*time.Hour), ".ogg")
	assert.Less(t, a, b)
	assert.Less(t, b, c)
}

func Test_LatestWithExt(t *testing.T) {
	var dir = t.TempDir()

	var _, ok = latestWithExt(dir, ".ogg")
	assert.False(t, ok)

	for _, name := range []string{
		"msg-2024-05-01-134502.1234Z.ogg",
		"msg-2024-06-01-000000.0000Z.ogg",
		"msg-2025-01-01-000000.0000Z.wav",
		"zzz.txt",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "zzz.ogg"), 0o755))

	var path string
	path, ok = latestWithExt(dir, ".ogg")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "msg-2024-06-01-000000.0000Z.ogg"), path)

	_, ok = latestWithExt(filepath.Join(dir, "missing"), ".ogg")
	assert.False(t, ok)
}

func Test_UniquePath(t *testing.T) {
	var dir = t.TempDir()
	var first = uniquePath(dir, testTime, ".wav")
	require.NoError(t, os.WriteFile(first, nil, 0o644))

	var second = uniquePath(dir, testTime, ".wav")
	assert.NotEqual(t, first, second)
	assert.Greater(t, filepath.Base(second), filepath.Base(first))
}

func Test_Open(t *testing.T) {
	var dir = filepath.Join(t.TempDir(), "rec")

	var s, err = Open("wav", dir, 8000)
	require.NoError(t, err)
	assert.IsType(t, &WAVStore{}, s)
	assert.DirExists(t, dir)

	_, err = Open("mp3", dir, 8000)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func Test_WAVStore_RoundTrip(t *testing.T) {
	var dir = t.TempDir()
	var s = NewWAVStore(dir, 8000)
	s.now = func() time.Time { return testTime }

	var in = sine(4000, 8000, 440, 0.5)
	in = append(in, 2, -2) // clipped

	var path, err = s.Write(in)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "msg-2024-05-01-134502.1234Z.wav"), path)

	var latest, ok = s.Latest()
	require.True(t, ok)
	assert.Equal(t, path, latest)

	var out []float32
	out, err = s.Read(path)
	require.NoError(t, err)
	require.Len(t, out, len(in))
	for i := range 4000 {
		assert.InDelta(t, in[i], out[i], 1.0/16384)
	}
	assert.InDelta(t, 1.0, out[4000], 1.0/16384)
	assert.InDelta(t, -1.0, out[4001], 1.0/16384)

	// Same instant, different file.
	var path2 string
	path2, err = s.Write(in[:10])
	require.NoError(t, err)
	assert.NotEqual(t, path, path2)
	latest, _ = s.Latest()
	assert.Equal(t, path2, latest)
}

func Test_WAVStore_WrongRate(t *testing.T) {
	var dir = t.TempDir()
	var path, err = NewWAVStore(dir, 8000).Write(sine(100, 8000, 440, 0.5))
	require.NoError(t, err)

	_, err = NewWAVStore(dir, 16000).Read(path)
	assert.Error(t, err)
}

func Test_ReadWAV_NotWAV(t *testing.T) {
	var _, _, err = ReadWAV(bytes.NewReader([]byte("this is not a wav file at all, not even close")))
	assert.ErrorIs(t, err, ErrNotWAV)
}

func Test_OpusHead(t *testing.T) {
	var head = opusHead(48000, 1, 312)
	require.Len(t, head, opusHeadLen)
	assert.Equal(t, "OpusHead", string(head[:8]))
	assert.Equal(t, byte(1), head[8])
	assert.Equal(t, byte(1), head[9])
	assert.Equal(t, []byte{0x38, 0x01}, head[10:12])
	assert.Equal(t, []byte{0x80, 0xBB, 0x00, 0x00}, head[12:16])
	assert.Equal(t, []byte{0, 0, 0}, head[16:])
}

func Test_OpusTags(t *testing.T) {
	var tags = opusTags("v", "T")
	var want = []byte("OpusTags")
	want = append(want, 1, 0, 0, 0, 'v')
	want = append(want, 1, 0, 0, 0)
	want = append(want, 11, 0, 0, 0)
	want = append(want, "TIMESTAMP=T"...)
	assert.Equal(t, want, tags)
}

func Test_OpusStore_RoundTrip(t *testing.T) {
	var dir = t.TempDir()
	var s, err = NewOpusStore(dir, 48000)
	require.NoError(t, err)
	s.now = func() time.Time { return testTime }

	// Not a whole number of 20 ms frames.
	var in = sine(48000+123, 48000, 1000, 0.5)
	var path string
	path, err = s.Write(in)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "msg-2024-05-01-134502.1234Z.ogg"), path)

	var latest, ok = s.Latest()
	require.True(t, ok)
	assert.Equal(t, path, latest)

	var out []float32
	out, err = s.Read(path)
	require.NoError(t, err)
	assert.Len(t, out, len(in))

	// Lossy, but a steady tone keeps roughly its level.
	assert.InDelta(t, rms(in), rms(out[4800:]), 0.1)
}

func Test_OpusStore_Empty(t *testing.T) {
	var s, err = NewOpusStore(t.TempDir(), 8000)
	require.NoError(t, err)

	var path string
	path, err = s.Write(nil)
	require.NoError(t, err)

	var out []float32
	out, err = s.Read(path)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func Test_OpusStore_BadRate(t *testing.T) {
	var _, err = NewOpusStore(t.TempDir(), 44100)
	assert.Error(t, err)
}

func Test_OpusStore_Corrupt(t *testing.T) {
	var dir = t.TempDir()
	var s, err = NewOpusStore(dir, 48000)
	require.NoError(t, err)

	var path = filepath.Join(dir, "msg-bad.ogg")
	require.NoError(t, os.WriteFile(path, []byte("definitely not ogg data, just some text"), 0o644))

	_, err = s.Read(path)
	assert.ErrorIs(t, err, ErrBadRecording)

	_, err = s.Read(filepath.Join(dir, "missing.ogg"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func Test_OpusStore_NoDelay(t *testing.T) {
	var s, err = NewOpusStore(t.TempDir(), 48000)
	require.NoError(t, err)

	// 100 ms of silence, then a tone.
	var in = append(make([]float32, 4800), sine(9600, 48000, 1000, 0.5)...)
	var path string
	path, err = s.Write(in)
	require.NoError(t, err)

	var out []float32
	out, err = s.Read(path)
	require.NoError(t, err)
	require.Len(t, out, len(in))

	var onset = 0
	for onset < len(out) && math.Abs(float64(out[onset])) < 0.25 {
		onset++
	}
	// The encoder lookahead is 312 samples.  Pre-skip removes it.
	assert.InDelta(t, 4800, onset, 120)
	assert.InDelta(t, rms(in[len(in)-2400:]), rms(out[len(out)-2400:]), 0.1)
}

func Test_OpusStore_LowRate(t *testing.T) {
	var s, err = NewOpusStore(t.TempDir(), 8000)
	require.NoError(t, err)

	var in = sine(8000+37, 8000, 600, 0.5)
	var path string
	path, err = s.Write(in)
	require.NoError(t, err)

	var out []float32
	out, err = s.Read(path)
	require.NoError(t, err)
	assert.Len(t, out, len(in))
	assert.InDelta(t, rms(in), rms(out[800:]), 0.1)
}

func Test_OpusStore_EncodeFailureLeavesNothing(t *testing.T) {
	var dir = t.TempDir()
	var s = &OpusStore{dir: dir, sampleRate: 44100, now: time.Now}

	var _, err = s.Write(sine(100, 44100, 440, 0.5))
	assert.Error(t, err)

	var _, ok = s.Latest()
	assert.False(t, ok)
}

func Test_WriteFile_RemovesOnError(t *testing.T) {
	var dir = t.TempDir()
	var path = filepath.Join(dir, "msg-partial.wav")

	var err = writeFile(path, func(f *os.File) error {
		if _, err := f.WriteString("half a recording"); err != nil {
			return err
		}
		return os.ErrDeadlineExceeded
	})
	assert.ErrorIs(t, err, os.ErrDeadlineExceeded)
	assert.NoFileExists(t, path)

	// A file closed behind writeFile's back fails at Close.
	err = writeFile(path, func(f *os.File) error { return f.Close() })
	assert.Error(t, err)
	assert.NoFileExists(t, path)

	require.NoError(t, writeFile(path, func(f *os.File) error {
		var _, err = f.WriteString("ok")
		return err
	}))
	assert.FileExists(t, path)
}

func Test_Decimate(t *testing.T) {
	assert.Equal(t, []float32{1, 2, 3}, decimate([]float32{1, 2, 3}, 1))
	assert.Equal(t, []float32{2, 5}, decimate([]float32{1, 2, 3, 4, 5, 6, 7}, 3))
	assert.Empty(t, decimate([]float32{1, 2}, 6))
}
