// Package logging provides the injectable leveled logger used across BrewCore.
package logging

import (
	"io"
	"log"
	"strings"
)

// Logger is the logging surface components depend on.
type Logger interface {
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Warnf(format string, v ...any)
	Errorf(format string, v ...any)
}

// Level is a logging threshold.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the lowercase name of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseLevel parses a level name (case-insensitive). Unknown names map to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// StdLogger writes leveled lines through a std log.Logger.
type StdLogger struct {
	level Level
	out   *log.Logger
}

// New creates a logger writing to w at the given threshold.
func New(w io.Writer, level Level) *StdLogger {
	return &StdLogger{
		level: level,
		out:   log.New(w, "", log.LstdFlags),
	}
}

func (l *StdLogger) logf(level Level, prefix, format string, v ...any) {
	if level < l.level {
		return
	}
	l.out.Printf(prefix+format, v...)
}

// Debugf logs a debug message.
func (l *StdLogger) Debugf(format string, v ...any) { l.logf(LevelDebug, "[DEBUG] ", format, v...) }

// Infof logs an info message.
func (l *StdLogger) Infof(format string, v ...any) { l.logf(LevelInfo, "[INFO] ", format, v...) }

// Warnf logs a warning.
func (l *StdLogger) Warnf(format string, v ...any) { l.logf(LevelWarn, "[WARN] ", format, v...) }

// Errorf logs an error.
func (l *StdLogger) Errorf(format string, v ...any) { l.logf(LevelError, "[ERROR] ", format, v...) }

type noOp struct{}

func (noOp) Debugf(string, ...any) {}
func (noOp) Infof(string, ...any)  {}
func (noOp) Warnf(string, ...any)  {}
func (noOp) Errorf(string, ...any) {}

// NoOp returns a logger that discards everything.
func NoOp() Logger {
	return noOp{}
}

// OrNoOp returns l, or a no-op logger when l is nil.
func OrNoOp(l Logger) Logger {
	if l == nil {
		return NoOp()
	}
	return l
}
