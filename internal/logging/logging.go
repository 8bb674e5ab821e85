// Package logging builds the application's slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options selects where log records go.
type Options struct {
	Level     string
	File      string
	MaxSizeMB int
	MaxFiles  int
	// Stderr mirrors records to stderr. Off while the control panel owns the
	// terminal.
	Stderr bool
}

// ParseLevel converts a config level name to a slog.Level. Unknown names map
// to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New returns a text logger writing to the rotating file and, optionally,
// stderr. The returned closer releases the file.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	var writers []io.Writer
	var closer io.Closer = nopCloser{}

	if opts.File != "" {
		rf, err := OpenRotatingFile(opts.File, opts.MaxSizeMB, opts.MaxFiles)
		if err != nil {
			return nil, nil, err
		}
		writers = append(writers, rf)
		closer = rf
	}
	if opts.Stderr || len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}

	var w io.Writer = writers[0]
	if len(writers) > 1 {
		w = io.MultiWriter(writers...)
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(opts.Level),
	}))
	return logger, closer, nil
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
