// Package applog is a severity-filtered line logger. Each line carries the
// elapsed time of the millisecond clock, the level and the logger name:
//
//	00:01:02.345 INFO button - pressed
package applog

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/sweeney/button-sensor/internal/clock"
)

// Level orders message severities. Off suppresses everything.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelOff
)

var levelNames = [...]string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR", "OFF"}

func (l Level) String() string {
	if l < LevelTrace || l > LevelOff {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel converts a case-insensitive level name.
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Level(i), nil
		}
	}
	return LevelOff, fmt.Errorf("unknown log level %q", s)
}

const (
	millisPerHour   = 3_600_000
	millisPerMinute = 60_000
)

// sink is shared by a logger and every logger derived from it.
type sink struct {
	mu    sync.Mutex
	w     io.Writer
	level Level
}

// Logger writes formatted lines to an io.Writer.
type Logger struct {
	name  string
	clock clock.Clock
	sink  *sink
}

// New creates a logger writing to w at the given effective level.
func New(w io.Writer, name string, level Level, clk clock.Clock) *Logger {
	return &Logger{
		name:  name,
		clock: clk,
		sink:  &sink{w: w, level: level},
	}
}

// Discard returns a logger that writes nothing.
func Discard() *Logger {
	return New(io.Discard, "", LevelOff, clock.NewFake(0))
}

// Named returns a logger with a different name sharing the same sink and level.
func (l *Logger) Named(name string) *Logger {
	return &Logger{name: name, clock: l.clock, sink: l.sink}
}

// SetLevel changes the effective level for this logger and all loggers
// derived from the same root.
func (l *Logger) SetLevel(level Level) {
	l.sink.mu.Lock()
	l.sink.level = level
	l.sink.mu.Unlock()
}

// Level returns the effective level.
func (l *Logger) Level() Level {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	return l.sink.level
}

// Enabled reports whether a message at level would be written.
func (l *Logger) Enabled(level Level) bool {
	eff := l.Level()
	return eff != LevelOff && level >= eff && level < LevelOff
}

func (l *Logger) Tracef(format string, args ...any) { l.logf(LevelTrace, format, args...) }
func (l *Logger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.logf(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.logf(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }

func (l *Logger) logf(level Level, format string, args ...any) {
	if !l.Enabled(level) {
		return
	}
	line := FormatLine(l.clock.Millis(), level, l.name, fmt.Sprintf(format, args...))

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	io.WriteString(l.sink.w, line)
}

// FormatLine renders one log line including the trailing newline.
func FormatLine(ms uint32, level Level, name, msg string) string {
	hours := ms / millisPerHour
	ms -= hours * millisPerHour
	minutes := ms / millisPerMinute
	ms -= minutes * millisPerMinute
	seconds := ms / 1000
	ms -= seconds * 1000

	return fmt.Sprintf("%02d:%02d:%02d.%03d %s %s - %s\n", hours, minutes, seconds, ms, level, name, msg)
}
