// Package logging defines a deliberately small, framework-agnostic logging
// interface plus the zerolog-backed implementation used by the commands.
// Components depend on the interface so tests can swap in an in-memory logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the logging seam shared by every component.
type Logger interface {
	// Debug logs a debug-level message.
	Debug(msg string, fields ...Field)

	// Info logs an informational message.
	Info(msg string, fields ...Field)

	// Warn logs a warning.
	Warn(msg string, fields ...Field)

	// Error logs an error.
	Error(msg string, fields ...Field)

	// With returns a child logger with persistent fields.
	With(fields ...Field) Logger
}

// Field is a simple key/value pair for structured logging fields.
type Field struct {
	Key   string
	Value interface{}
}

// ZerologLogger implements Logger on top of rs/zerolog, emitting JSON lines.
type ZerologLogger struct {
	zl zerolog.Logger
}

// NewLogger creates a ZerologLogger writing to w (stdout when nil).
// component is optional and becomes a persistent field.
func NewLogger(w io.Writer, component string) *ZerologLogger {
	if w == nil {
		w = os.Stdout
	}
	ctx := zerolog.New(w).With().Timestamp()
	if component != "" {
		ctx = ctx.Str("component", component)
	}
	return &ZerologLogger{zl: ctx.Logger()}
}

// NewLeveledLogger is NewLogger with a minimum level parsed from a string
// (debug, info, warn, error). Unknown levels fall back to info.
func NewLeveledLogger(w io.Writer, component, level string) *ZerologLogger {
	l := NewLogger(w, component)
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		l.zl = l.zl.Level(zerolog.DebugLevel)
	case "warn":
		l.zl = l.zl.Level(zerolog.WarnLevel)
	case "error":
		l.zl = l.zl.Level(zerolog.ErrorLevel)
	default:
		l.zl = l.zl.Level(zerolog.InfoLevel)
	}
	return l
}

func (z *ZerologLogger) emit(ev *zerolog.Event, msg string, fields []Field) {
	for _, f := range fields {
		ev = ev.Interface(f.Key, f.Value)
	}
	ev.Msg(msg)
}

func (z *ZerologLogger) Debug(msg string, fields ...Field) { z.emit(z.zl.Debug(), msg, fields) }
func (z *ZerologLogger) Info(msg string, fields ...Field)  { z.emit(z.zl.Info(), msg, fields) }
func (z *ZerologLogger) Warn(msg string, fields ...Field)  { z.emit(z.zl.Warn(), msg, fields) }
func (z *ZerologLogger) Error(msg string, fields ...Field) { z.emit(z.zl.Error(), msg, fields) }

func (z *ZerologLogger) With(fields ...Field) Logger {
	ctx := z.zl.With()
	for _, f := range fields {
		ctx = ctx.Interface(f.Key, f.Value)
	}
	return &ZerologLogger{zl: ctx.Logger()}
}

// nopLogger discards everything. Useful as a default when callers pass nil.
type nopLogger struct{}

func (nopLogger) Debug(string, ...Field) {}
func (nopLogger) Info(string, ...Field)  {}
func (nopLogger) Warn(string, ...Field)  {}
func (nopLogger) Error(string, ...Field) {}
func (n nopLogger) With(...Field) Logger { return n }

// Nop returns a Logger that discards all output.
func Nop() Logger { return nopLogger{} }

// init keeps zerolog timestamps in a stable, sortable format.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
