package logger

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the logging interface used by the library.
type Logger interface {
	Info(msg string, obj any)
	Warn(msg string, obj any)
	Debug(msg string, obj any)
	Error(msg string, obj any)
}

// NopLogger discards all log messages.
type NopLogger struct{}

func (NopLogger) Info(string, any)  {}
func (NopLogger) Warn(string, any)  {}
func (NopLogger) Debug(string, any) {}
func (NopLogger) Error(string, any) {}

type writerLogger struct {
	zl zerolog.Logger
}

func (l writerLogger) write(ev *zerolog.Event, msg string, obj any) {
	if ev == nil {
		return
	}
	switch v := obj.(type) {
	case nil:
	case map[string]any:
		ev = ev.Fields(v)
	case error:
		ev = ev.Err(v)
	default:
		ev = ev.Interface("obj", v)
	}
	ev.Msg(msg)
}

// NewWriterLogger builds a logger that writes human-readable lines to w at debug level.
func NewWriterLogger(w io.Writer) Logger {
	return NewLevelLogger(w, "debug")
}

// NewLevelLogger builds a writer logger that drops events below level.
// Unknown level names fall back to info.
func NewLevelLogger(w io.Writer, level string) Logger {
	if w == nil {
		w = io.Discard
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	return writerLogger{zl: zerolog.New(out).Level(lvl).With().Timestamp().Logger()}
}

func (l writerLogger) Info(msg string, obj any)  { l.write(l.zl.Info(), msg, obj) }
func (l writerLogger) Warn(msg string, obj any)  { l.write(l.zl.Warn(), msg, obj) }
func (l writerLogger) Debug(msg string, obj any) { l.write(l.zl.Debug(), msg, obj) }
func (l writerLogger) Error(msg string, obj any) { l.write(l.zl.Error(), msg, obj) }

// Debug writes a debug log when enabled and logger is non-nil.
func Debug(enabled bool, logger Logger, msg string, obj any) {
	if !enabled || logger == nil {
		return
	}
	logger.Debug(msg, obj)
}

// Info writes an info log when logger is non-nil.
func Info(logger Logger, msg string, obj any) {
	if logger == nil {
		return
	}
	logger.Info(msg, obj)
}

// Warn writes a warning log when logger is non-nil.
func Warn(logger Logger, msg string, obj any) {
	if logger == nil {
		return
	}
	logger.Warn(msg, obj)
}

// Error writes an error log when logger is non-nil.
func Error(logger Logger, msg string, obj any) {
	if logger == nil {
		return
	}
	logger.Error(msg, obj)
}
