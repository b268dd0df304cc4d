// Package monitoring holds the diagnostic loggers shared by the controller
// packages. Output goes through package-level functions so that tests and
// binaries can redirect or mute it.
package monitoring

import (
	"log"
	"sync/atomic"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

var verbose atomic.Bool

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetVerbose enables or disables per-datagram debug output.
func SetVerbose(on bool) {
	verbose.Store(on)
}

// Verbose reports whether debug output is enabled.
func Verbose() bool {
	return verbose.Load()
}

// Logger prefixes every message with a component tag such as "udpsrv".
type Logger struct {
	tag string
}

// Tag returns a Logger for the named component.
func Tag(tag string) Logger {
	return Logger{tag: tag}
}

// Printf logs through Logf.
func (l Logger) Printf(format string, v ...interface{}) {
	Logf(l.tag+": "+format, v...)
}

// Debugf logs through Logf only when verbose output is enabled.
func (l Logger) Debugf(format string, v ...interface{}) {
	if !verbose.Load() {
		return
	}
	Logf(l.tag+": "+format, v...)
}
