// Package log provides leveled logging for the pipeline framework.
//
// Unlike a global module-scoped logger, there is no package-level mutable
// state here: every collaborator that wants to log (pools, engines,
// strips, the analyzer) takes a *Logger at construction time. A nil
// *Logger is valid and silently discards everything, so tests and library
// embedders never have to wire one up just to satisfy a constructor.
package log

import (
	"fmt"
	stdlog "log"
	"os"
	"strings"
	"sync/atomic"
)

// Level defines the severity of a log message.
type Level uint32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the string representation of the Level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string (case-insensitive) to a Level.
// Returns LevelInfo and false if the string is not recognized.
func ParseLevel(levelStr string) (Level, bool) {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	default:
		return LevelInfo, false // Default to Info on parse error
	}
}

// Logger is an injectable leveled logger. The zero value is unusable;
// construct with New. Every method is nil-receiver safe: a nil *Logger
// discards all messages, so components can accept a possibly-nil
// *Logger without a separate "is logging enabled" branch.
type Logger struct {
	level  atomic.Uint32
	name   string
	output *stdlog.Logger
}

// New creates a Logger named for a component (e.g. "pool", "mixer"),
// writing to os.Stderr at the given default level.
func New(name string, level Level) *Logger {
	l := &Logger{
		name:   name,
		output: stdlog.New(os.Stderr, "", stdlog.Ldate|stdlog.Ltime|stdlog.Lmicroseconds),
	}
	l.SetLevel(level)
	return l
}

// Named returns a new Logger relabeled for a sub-component, sharing this
// logger's output destination and starting at its current level. The
// level is copied, not shared: a later SetLevel on either logger does
// not change the other.
func (l *Logger) Named(name string) *Logger {
	if l == nil {
		return nil
	}
	n := &Logger{name: name, output: l.output}
	n.SetLevel(l.GetLevel())
	return n
}

// SetLevel sets the logger's level atomically.
func (l *Logger) SetLevel(level Level) {
	if l == nil {
		return
	}
	l.level.Store(uint32(level))
}

// GetLevel returns the logger's current level.
func (l *Logger) GetLevel() Level {
	if l == nil {
		return LevelFatal + 1 // nothing is ever "at or above" this
	}
	return Level(l.level.Load())
}

func (l *Logger) shouldLog(level Level) bool {
	return l != nil && level >= l.GetLevel()
}

func (l *Logger) logf(level Level, format string, v ...any) {
	if !l.shouldLog(level) {
		return
	}
	tag := level.String()
	if l.name != "" {
		tag = fmt.Sprintf("%s %s", level, l.name)
	}
	l.output.Printf("[%s] %s", tag, fmt.Sprintf(format, v...))
}

// Debugf logs a formatted debug message if the level is appropriate.
func (l *Logger) Debugf(format string, v ...any) { l.logf(LevelDebug, format, v...) }

// Infof logs a formatted info message if the level is appropriate.
func (l *Logger) Infof(format string, v ...any) { l.logf(LevelInfo, format, v...) }

// Warnf logs a formatted warning message if the level is appropriate.
func (l *Logger) Warnf(format string, v ...any) { l.logf(LevelWarn, format, v...) }

// Errorf logs a formatted error message if the level is appropriate.
func (l *Logger) Errorf(format string, v ...any) { l.logf(LevelError, format, v...) }

// Fatalf always logs, regardless of level, then exits the process.
func (l *Logger) Fatalf(format string, v ...any) {
	if l == nil {
		stdlog.Fatalf("[FATAL] "+format, v...)
		return
	}
	l.output.Fatalf("[FATAL %s] %s", l.name, fmt.Sprintf(format, v...))
}
