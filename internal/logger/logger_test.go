package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in  string
		out zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"WARN", zapcore.WarnLevel},
		{" error ", zapcore.ErrorLevel},
		{"info", zapcore.InfoLevel},
		{"fatal", zapcore.InfoLevel},
		{"somethingelse", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}
	for _, c := range cases {
		if got := parseLevel(c.in); got != c.out {
			t.Errorf("parseLevel(%q) = %v, want %v", c.in, got, c.out)
		}
	}
}

func TestNewLogger(t *testing.T) {
	l := New("debug")
	if l == nil {
		t.Fatal("New should not return nil")
	}
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug level should be enabled")
	}
	l.Debug("test debug log")
	l.Info("test info log")
}
