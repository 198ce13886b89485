// Package logger builds the zerolog loggers used across the server.
package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

const permission = 0664

// Build accumulates logger options before Make constructs the logger.
type Build struct {
	writer io.Writer
	path   string
	level  zerolog.Level
}

func New() *Build {
	return &Build{level: zerolog.InfoLevel}
}

// FromPath directs output to an append-only log file.
func (b *Build) FromPath(path string) *Build {
	b.path = path
	return b
}

// FromBuffer directs output to w. Used by tests to capture log lines.
func (b *Build) FromBuffer(w io.Writer) *Build {
	b.writer = w
	return b
}

func (b *Build) Level(level zerolog.Level) *Build {
	b.level = level
	return b
}

// Make constructs the logger. Output goes to the configured file or
// buffer, falling back to stdout.
func (b *Build) Make() (zerolog.Logger, error) {
	writer := b.writer
	if writer == nil {
		writer = os.Stdout
	}

	if b.path != "" {
		file, err := os.OpenFile(b.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return zerolog.Nop(), err
		}
		writer = zerolog.SyncWriter(file)
	}

	return zerolog.New(writer).Level(b.level).With().Timestamp().Logger(), nil
}
