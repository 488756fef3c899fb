package rpmlog

import (
	"bytes"
	"log"
	"testing"
)

func TestDebugfGatedByVerbose(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{Out: log.New(&buf, "", 0), Err: log.New(&buf, "", 0), Verbose: false}
	l.Debugf("hidden %d", 1)
	if buf.Len() != 0 {
		t.Errorf("Debugf wrote output while Verbose=false: %q", buf.String())
	}

	l.Verbose = true
	l.Debugf("shown %d", 1)
	if buf.Len() == 0 {
		t.Errorf("Debugf wrote nothing while Verbose=true")
	}
}

func TestInfofWarnf(t *testing.T) {
	var out, errBuf bytes.Buffer
	l := &Logger{Out: log.New(&out, "", 0), Err: log.New(&errBuf, "", 0)}
	l.Infof("hello")
	l.Warnf("oops")

	if out.String() != "hello\n" {
		t.Errorf("Infof wrote %q", out.String())
	}
	if errBuf.String() != "warning: oops\n" {
		t.Errorf("Warnf wrote %q", errBuf.String())
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Debugf("x")
	l.Infof("x")
	l.Warnf("x")
}
