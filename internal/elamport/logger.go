package elamport

import (
	"fmt"
	"log"
	"os"
)

const (
	calldepth = 3
	info      = "INFO"
	warn      = "WARN"
	errorl    = "ERROR"
	debug     = "DEBUG"
)

// Logger is the diagnostic sink used by Peer and Transport. A conformant
// implementation may substitute its own; DefaultLogger below is used when
// none is supplied, the way definition.DefaultLogger is the fallback in
// the protocol this package is adapted from.
type Logger interface {
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
	Debugf(format string, v ...interface{})

	// Action prints the per-peer trace line required by the console
	// output contract: "Time T: Process P send|received KIND".
	Action(t uint64, peer int, verb string, kind Kind)

	// Stopped prints the terminal per-peer line: "Time T: Process P
	// stopped! Size of process queue at the end: S".
	Stopped(t uint64, peer int, queueSize int)
}

// DefaultLogger wraps the standard library's log.Logger with the level
// prefixes and calldepth bookkeeping used by the protocol this is adapted
// from.
type DefaultLogger struct {
	*log.Logger
	debug bool
}

// NewDefaultLogger returns a Logger writing to stdout.
func NewDefaultLogger(debug bool) *DefaultLogger {
	return &DefaultLogger{
		Logger: log.New(os.Stdout, "elamport ", log.LstdFlags),
		debug:  debug,
	}
}

func level(prefix, message string) string {
	return fmt.Sprintf("[%s]: %s", prefix, message)
}

func (l *DefaultLogger) Infof(format string, v ...interface{}) {
	_ = l.Output(calldepth, level(info, fmt.Sprintf(format, v...)))
}

func (l *DefaultLogger) Warnf(format string, v ...interface{}) {
	_ = l.Output(calldepth, level(warn, fmt.Sprintf(format, v...)))
}

func (l *DefaultLogger) Errorf(format string, v ...interface{}) {
	_ = l.Output(calldepth, level(errorl, fmt.Sprintf(format, v...)))
}

func (l *DefaultLogger) Debugf(format string, v ...interface{}) {
	if l.debug {
		_ = l.Output(calldepth, level(debug, fmt.Sprintf(format, v...)))
	}
}

func (l *DefaultLogger) Action(t uint64, peer int, verb string, kind Kind) {
	fmt.Printf("Time %d: Process %d %s %s\n", t, peer, verb, kind)
}

func (l *DefaultLogger) Stopped(t uint64, peer int, queueSize int) {
	fmt.Printf("Time %d: Process %d stopped! Size of process queue at the end: %d\n", t, peer, queueSize)
}
