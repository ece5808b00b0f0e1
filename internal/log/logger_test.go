package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Component: "api",
		Handler:   slog.NewTextHandler(&buf, nil),
	})

	logger.Info("server listening", "port", "8081")

	line := buf.String()
	if !strings.Contains(line, "component=api") {
		t.Errorf("log line missing component: %s", line)
	}
	if !strings.Contains(line, "port=8081") {
		t.Errorf("log line missing attribute: %s", line)
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Component: "api",
		Handler:   slog.NewTextHandler(&buf, nil),
	})

	sub := logger.WithComponent("storage")
	if sub.Component() != "storage" {
		t.Errorf("Component() = %q, want %q", sub.Component(), "storage")
	}

	sub.Info("opened")
	if !strings.Contains(buf.String(), "component=storage") {
		t.Errorf("log line missing subcomponent: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{" Debug ", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
