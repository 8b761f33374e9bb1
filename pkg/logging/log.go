// Package logging provides the leveled, field-carrying logger used by the
// renaming engine and the path explorer.
//
// Lines look like
//
//	[DEBUG] 2024-05-01T10:00:00.000000Z Executing assign lineage=0.T pc=4
//
// with fields in key order.
package logging

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/itchyny/timefmt-go"
)

// LogLevel represents the severity level for logs. Higher levels are
// more verbose.
type LogLevel int

const (
	LevelError LogLevel = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

var levelNames = [...]string{
	LevelError: "ERROR",
	LevelWarn:  "WARN",
	LevelInfo:  "INFO",
	LevelDebug: "DEBUG",
}

func (l LogLevel) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLogLevel parses a level name, case-insensitively. "warning" is
// accepted for warn; anything unrecognized is warn.
func ParseLogLevel(s string) LogLevel {
	s = strings.ToUpper(s)
	if s == "WARNING" {
		return LevelWarn
	}
	if i := slices.Index(levelNames[:], s); i >= 0 {
		return LogLevel(i)
	}
	return LevelWarn
}

// Logger is the interface used by the engine for logging.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)

	// IsEnabled reports whether messages at level would be written. Use it
	// to skip building expensive fields.
	IsEnabled(level LogLevel) bool

	// With returns a child logger carrying the extra fields. The parent is
	// not modified.
	With(fields map[string]any) Logger
}

// timestampFormat is strftime syntax for timefmt.
const timestampFormat = "%Y-%m-%dT%H:%M:%S.%fZ"

type field struct {
	key   string
	value string
}

// textLogger writes one line per message. Children made by With share the
// writer and its lock.
type textLogger struct {
	out        io.Writer
	mu         *sync.Mutex
	level      LogLevel
	timestamps bool
	fields     []field // sorted by key, rendered once
	now        func() time.Time
}

// NewLogger returns a logger writing messages at level and below to w.
// If w is nil, os.Stderr is used.
func NewLogger(level LogLevel, w io.Writer) Logger {
	if w == nil {
		w = os.Stderr
	}
	return &textLogger{
		out:        w,
		mu:         &sync.Mutex{},
		level:      level,
		timestamps: true,
		now:        time.Now,
	}
}

// NewLoggerWithoutTimestamps is NewLogger with the timestamp column
// dropped, for golden output.
func NewLoggerWithoutTimestamps(level LogLevel, w io.Writer) Logger {
	l := NewLogger(level, w).(*textLogger)
	l.timestamps = false
	return l
}

func (l *textLogger) IsEnabled(level LogLevel) bool {
	return level <= l.level
}

func (l *textLogger) With(fields map[string]any) Logger {
	if len(fields) == 0 {
		return l
	}
	merged := make([]field, 0, len(l.fields)+len(fields))
	for _, f := range l.fields {
		if _, ok := fields[f.key]; !ok {
			merged = append(merged, f)
		}
	}
	for k, v := range fields {
		merged = append(merged, field{key: k, value: renderValue(v)})
	}
	slices.SortFunc(merged, func(a, b field) int { return strings.Compare(a.key, b.key) })

	child := *l
	child.fields = merged
	return &child
}

func (l *textLogger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args) }
func (l *textLogger) Infof(format string, args ...any)  { l.logf(LevelInfo, format, args) }
func (l *textLogger) Warnf(format string, args ...any)  { l.logf(LevelWarn, format, args) }
func (l *textLogger) Errorf(format string, args ...any) { l.logf(LevelError, format, args) }

func (l *textLogger) logf(level LogLevel, format string, args []any) {
	if !l.IsEnabled(level) {
		return
	}

	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(level.String())
	b.WriteString("] ")
	if l.timestamps {
		b.WriteString(timefmt.Format(l.now().UTC(), timestampFormat))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, format, args...)
	for _, f := range l.fields {
		b.WriteByte(' ')
		b.WriteString(f.key)
		b.WriteByte('=')
		b.WriteString(f.value)
	}
	b.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.out, b.String())
}

// renderValue formats a field value, quoting strings that contain
// whitespace or control characters.
func renderValue(v any) string {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case fmt.Stringer:
		s = t.String()
	default:
		return fmt.Sprint(v)
	}
	if strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' }) {
		return fmt.Sprintf("%q", s)
	}
	return s
}

type noopLogger struct{}

func (noopLogger) IsEnabled(LogLevel) bool      { return false }
func (noopLogger) Debugf(string, ...any)        {}
func (noopLogger) Infof(string, ...any)         {}
func (noopLogger) Warnf(string, ...any)         {}
func (noopLogger) Errorf(string, ...any)        {}
func (n noopLogger) With(map[string]any) Logger { return n }

// NewNoopLogger returns a logger that discards all output.
func NewNoopLogger() Logger {
	return noopLogger{}
}

// TruncateList joins items with "," and appends +N for the items beyond
// max. A non-positive max keeps everything.
func TruncateList(items []string, max int) string {
	if max <= 0 || len(items) <= max {
		return strings.Join(items, ",")
	}
	return strings.Join(items[:max], ",") + fmt.Sprintf(",+%d", len(items)-max)
}
