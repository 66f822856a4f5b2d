// Package logging builds the process logger: the standard library logger,
// written either to stderr or to a size-rotated file.
package logging

import (
	"io"
	"log"
	"os"

	"github.com/natefinch/lumberjack"
)

// Options configures New.
type Options struct {
	// File enables rotation into this path; empty means stderr.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Prefix     string
}

// New returns a logger and a closer for its output. The closer is a no-op for
// stderr.
func New(opts Options) (*log.Logger, io.Closer) {
	var out io.WriteCloser = nopCloser{os.Stderr}
	if opts.File != "" {
		out = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
		}
	}
	return log.New(out, opts.Prefix, log.LstdFlags|log.Lshortfile), out
}

// Discard returns a logger that drops everything, for tests and libraries
// embedding the handle without wanting output.
func Discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
