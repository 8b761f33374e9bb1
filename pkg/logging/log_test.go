package logging

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LevelInfo, &buf)

	logger.Debugf("hidden %d", 1)
	logger.Infof("shown %d", 2)
	logger.Errorf("also shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message should be filtered at info level:\n%s", out)
	}
	if !strings.Contains(out, "[INFO] ") || !strings.Contains(out, "shown 2") {
		t.Errorf("expected info line, got:\n%s", out)
	}
	if !strings.Contains(out, "[ERROR] ") {
		t.Errorf("expected error line, got:\n%s", out)
	}
}

func TestLoggerWithSortsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithoutTimestamps(LevelDebug, &buf)

	child := logger.With(map[string]any{"state": "s1", "pc": 4})
	child.With(map[string]any{"lineage": "0.T"}).Debugf("Executing %s", "assign")
	logger.Debugf("parent")

	want := "[DEBUG] Executing assign lineage=0.T pc=4 state=s1\n[DEBUG] parent\n"
	if got := buf.String(); got != want {
		t.Errorf("unexpected output:\n got: %q\nwant: %q", got, want)
	}
}

func TestLoggerQuotesWhitespace(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerWithoutTimestamps(LevelWarn, &buf).With(map[string]any{"guard": "(c && d)"}).Warnf("w")
	if got := buf.String(); got != "[WARN] w guard=\"(c && d)\"\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"bogus":   LevelWarn,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNoopLogger(t *testing.T) {
	l := NewNoopLogger()
	if l.IsEnabled(LevelError) {
		t.Error("noop logger should never be enabled")
	}
	if l.With(map[string]any{"a": 1}) != l {
		t.Error("noop With should return itself")
	}
}

func TestTruncateList(t *testing.T) {
	if got := TruncateList([]string{"a", "b", "c", "d"}, 2); got != "a,b,+2" {
		t.Errorf("got %q", got)
	}
	if got := TruncateList([]string{"a", "b"}, 5); got != "a,b" {
		t.Errorf("got %q", got)
	}
}

func TestLoggerTimestamp(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(LevelInfo, &buf).(*textLogger)
	l.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }
	l.With(map[string]any{"pc": 3}).Infof("step")
	if got, want := buf.String(), "[INFO] 2024-05-01T10:00:00.000000Z step pc=3\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLoggerWithOverridesParentField(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLoggerWithoutTimestamps(LevelWarn, &buf).With(map[string]any{"pc": 1, "exec": "e"})
	parent.With(map[string]any{"pc": 2}).Warnf("child")
	parent.Warnf("parent")
	want := "[WARN] child exec=e pc=2\n[WARN] parent exec=e pc=1\n"
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
