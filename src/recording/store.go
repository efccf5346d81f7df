// Package recording keeps a copy of every repeated message on disk so
// the latest one can be played back on request.
package recording

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lestrrat-go/strftime"
)

// Store writes, finds and reads back recorded messages.  The directory
// and sample rate are fixed when the store is created.
type Store interface {
	// Write saves mono samples and returns the new file's path.
	Write(samples []float32) (string, error)

	// Latest is the most recent recording, by file name.
	Latest() (string, bool)

	// Read decodes a recording at the store's sample rate.
	Read(path string) ([]float32, error)
}

var ErrUnsupportedFormat = errors.New("unsupported recording format")

const (
	FormatOpus = "opus"
	FormatWAV  = "wav"
)

// Open creates the directory if needed and returns a store for format.
func Open(format, dir string, sampleRate int) (Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("recordings directory: %w", err)
	}

	switch strings.ToLower(format) {
	case FormatOpus, "ogg", "":
		return NewOpusStore(dir, sampleRate)
	case FormatWAV:
		return NewWAVStore(dir, sampleRate), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// File names sort in time order: msg-2024-05-01-134502.1234Z.ogg
const filenamePattern = "msg-%Y-%m-%d-%H%M%S.%fZ"

var filenameFormat = mustStrftime(filenamePattern)

func mustStrftime(p string) *strftime.Strftime {
	var f, err = strftime.New(p, strftime.WithSpecification('f', strftime.AppendFunc(appendTenThousandths)))
	if err != nil {
		panic(err)
	}
	return f
}

// appendTenThousandths adds the fraction of the second to 4 digits.
func appendTenThousandths(b []byte, t time.Time) []byte {
	return fmt.Appendf(b, "%04d", t.Nanosecond()/100000)
}

// Filename builds the name for a recording made at t, in UTC.
func Filename(t time.Time, ext string) string {
	return filenameFormat.FormatString(t.UTC()) + ext
}

// latestWithExt finds the greatest file name in dir ending in ext.
func latestWithExt(dir, ext string) (string, bool) {
	var entries, err = os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	var best string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ext {
			continue
		}
		if e.Name() > best {
			best = e.Name()
		}
	}
	if best == "" {
		return "", false
	}
	return filepath.Join(dir, best), true
}

// uniquePath avoids clobbering a recording made in the same tenth of a
// millisecond.
func uniquePath(dir string, t time.Time, ext string) string {
	var name = Filename(t, ext)
	var path = filepath.Join(dir, name)
	for i := 1; ; i++ {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path
		}
		path = filepath.Join(dir, fmt.Sprintf("%s_%d%s", strings.TrimSuffix(name, ext), i, ext))
	}
}

// writeFile creates path and hands it to fill.  If anything fails the
// file is removed so Latest never finds a partial recording.
func writeFile(path string, fill func(f *os.File) error) error {
	var f, err = os.Create(path)
	if err != nil {
		return err
	}
	if err := fill(f); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
