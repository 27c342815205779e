// Package logging defines the leveled logging collaborator that readers
// and the enumerator report warnings and errors through. The default
// implementation writes to the standard logger; tests substitute a spy.
package logging

import "log"

// Logger is the sink for diagnostics emitted while reading records. A
// warning never implies the stream is unusable; an error usually precedes
// the stream ending early.
type Logger interface {
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// StdLogger logs through the process-wide standard logger with a component
// prefix, e.g. "csv: warn: ...".
type StdLogger struct {
	// Component names the emitting component in each log line.
	Component string
}

// NewStdLogger returns a Logger that prefixes lines with the component name.
func NewStdLogger(component string) *StdLogger {
	return &StdLogger{Component: component}
}

func (l *StdLogger) Warnf(format string, args ...any) {
	log.Printf(l.Component+": warn: "+format, args...)
}

func (l *StdLogger) Errorf(format string, args ...any) {
	log.Printf(l.Component+": error: "+format, args...)
}

// Nop discards all diagnostics.
type Nop struct{}

func (Nop) Warnf(string, ...any)  {}
func (Nop) Errorf(string, ...any) {}
