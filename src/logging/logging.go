// Package logging builds the one logger everything else hangs off.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

const timeFormat = "2006-01-02 15:04:05.000"

// New returns a levelled, timestamped logger writing to w.  level is one
// of debug, info, warn, error or fatal.
func New(w io.Writer, level string) (*log.Logger, error) {
	var lvl, err = log.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      timeFormat,
	}), nil
}

// Stderr is New on standard error, falling back to info for a bad level.
func Stderr(level string) *log.Logger {
	var logger, err = New(os.Stderr, level)
	if err != nil {
		logger, _ = New(os.Stderr, "info")
		logger.Warn("unknown log level, using info", "level", level)
	}
	return logger
}

// Discard is for tests and tools that want no output.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// Component tags every line with the part of the program it came from.
func Component(l *log.Logger, name string) *log.Logger {
	return l.WithPrefix(name)
}

// Elapsed formats a sample count as wall time for log lines.
func Elapsed(samples int, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
