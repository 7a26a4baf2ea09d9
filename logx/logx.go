// Package logx wires the shared structured logger used throughout this
// module. It binds github.com/joeycumines/logiface to the
// github.com/joeycumines/izerolog backend over github.com/rs/zerolog.
package logx

import (
	"io"
	"os"

	"github.com/joeycumines/izerolog"
	"github.com/joeycumines/logiface"
	"github.com/rs/zerolog"
)

// Logger is the type every package in this module accepts for structured
// logging, rather than calling the log package directly.
type Logger = logiface.Logger[*izerolog.Event]

// New constructs a Logger writing newline-delimited JSON to w. Pass
// os.Stderr for process-level logging, or any io.Writer in tests.
func New(w io.Writer, level logiface.Level) *Logger {
	return izerolog.L.New(
		izerolog.L.WithZerolog(zerolog.New(w).With().Timestamp().Logger()),
		izerolog.L.WithLevel(level),
	)
}

// Default returns a Logger writing to os.Stderr at LevelInformational,
// the level SUT harness processes run at day to day.
func Default() *Logger {
	return New(os.Stderr, logiface.LevelInformational)
}

// Nop returns a Logger that discards everything, for tests that don't
// want log noise but still need to satisfy a Logger parameter.
func Nop() *Logger {
	return New(io.Discard, logiface.LevelDisabled)
}

// Component annotates every record the returned Logger writes with a
// "component" field, so taxonomy rows in log output can be traced to a
// single package without each call site repeating the field.
func Component(l *Logger, name string) *Logger {
	return l.Clone().Str("component", name).Logger()
}
