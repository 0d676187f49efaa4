// Package logx is a small leveled logger over the standard library's log
// package plus gopkg.in/natefinch/lumberjack.v2 rotation: explicit
// Debug/Info/Warn/Error levels with optional file rotation, since a VCS
// client that writes to a shared working-copy directory benefits from a
// bounded, rotated log rather than an ever-growing debug file.
package logx

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level is a log verbosity threshold.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Logger is a leveled writer, safe for concurrent use.
type Logger struct {
	mu  sync.Mutex
	lvl Level
	out *log.Logger
	rot *lumberjack.Logger // non-nil when writing to a rotated file
}

// New returns a Logger at lvl writing to stderr.
func New(lvl Level) *Logger {
	return &Logger{lvl: lvl, out: log.New(os.Stderr, "", log.LstdFlags)}
}

// NewRotating returns a Logger at lvl writing to path, rotated by
// lumberjack once it exceeds maxSizeMB megabytes, keeping maxBackups old
// copies.
func NewRotating(lvl Level, path string, maxSizeMB, maxBackups int) *Logger {
	rot := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		Compress:   true,
	}
	return &Logger{lvl: lvl, out: log.New(rot, "", log.LstdFlags), rot: rot}
}

// SetOutput redirects the logger's underlying writer, mainly for tests.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out.SetOutput(w)
}

func (l *Logger) log(lvl Level, format string, args ...interface{}) {
	if lvl < l.lvl {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out.Printf("[%s] %s", lvl, fmt.Sprintf(format, args...))
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.log(LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.log(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.log(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.log(LevelError, format, args...) }

// Close releases the rotating file handle, if any.
func (l *Logger) Close() error {
	if l.rot != nil {
		return l.rot.Close()
	}
	return nil
}
