// Package rpmlog provides the small per-sack logging sink used across the
// library. There is no process-wide logger: every Sack is constructed with
// its own Logger, mirroring how cmd/dep injects a Loggers value into each
// command rather than writing through a package-level logger.
package rpmlog

import (
	"io"
	"log"
	"os"
)

// Logger wraps a pair of standard library loggers, one for informational
// output and one for warnings/errors, plus a verbosity gate for Debugf.
type Logger struct {
	Out, Err *log.Logger
	Verbose  bool
}

// New builds a Logger writing Out to stdout and Err to stderr.
func New(verbose bool) *Logger {
	return &Logger{
		Out:     log.New(os.Stdout, "", 0),
		Err:     log.New(os.Stderr, "", 0),
		Verbose: verbose,
	}
}

// NewDiscard builds a Logger that drops all output; useful as the default
// for library consumers that don't pass a logfile.
func NewDiscard() *Logger {
	return &Logger{
		Out: log.New(io.Discard, "", 0),
		Err: log.New(io.Discard, "", 0),
	}
}

// NewFile builds a Logger that writes both streams to path, creating it if
// necessary. This backs the Sack constructor's "logfile" option.
func NewFile(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	l := log.New(f, "", log.LstdFlags)
	return &Logger{Out: l, Err: l}, nil
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	if l == nil || !l.Verbose {
		return
	}
	l.Out.Printf(format, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.Out.Printf(format, args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.Err.Printf("warning: "+format, args...)
}
