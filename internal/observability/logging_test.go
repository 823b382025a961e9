package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newBufferLogger(format string) (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewLogger(LogConfig{Level: "debug", Format: format, Output: &buf}), &buf
}

func TestLoggerLevels(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if got := LogLevelFromString(tt.level); got != tt.want {
				t.Fatalf("LogLevelFromString(%q) = %v, want %v", tt.level, got, tt.want)
			}
		})
	}

	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "warn", Output: &buf})
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("level filtering failed: %q", buf.String())
	}
}

func TestLoggerJSONFormat(t *testing.T) {
	logger, buf := newBufferLogger("json")
	logger.Info("tool executed", "tool", "read_file", "round", 2)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "tool executed" || entry["tool"] != "read_file" || entry["round"] != float64(2) {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestLoggerTextFormat(t *testing.T) {
	logger, buf := newBufferLogger("text")
	logger.Info("hello", "k", "v")
	if !strings.Contains(buf.String(), "msg=hello") || !strings.Contains(buf.String(), "k=v") {
		t.Fatalf("unexpected text output %q", buf.String())
	}
}

func TestRedaction(t *testing.T) {
	tests := []struct {
		name   string
		log    func(*slog.Logger)
		secret string
	}{
		{
			name:   "anthropic key in message",
			log:    func(l *slog.Logger) { l.Info("key sk-ant-REDACTED") },
			secret: "sk-ant-api03",
		},
		{
			name:   "openai key in attribute",
			log:    func(l *slog.Logger) { l.Info("request", "header", "sk-abcdefghijklmnopqrstuvwxyz0123456789ABCD") },
			secret: "sk-abcdefghij",
		},
		{
			name:   "sensitive attribute key",
			log:    func(l *slog.Logger) { l.Info("config", "api_key", "short") },
			secret: "short",
		},
		{
			name:   "bearer in error",
			log:    func(l *slog.Logger) { l.Error("failed", "error", errors.New("Bearer abcdefghijklmnopqrstuvwxyz")) },
			secret: "abcdefghijklmnopqrstuvwxyz",
		},
		{
			name: "map value",
			log: func(l *slog.Logger) {
				l.Warn("args", "args", map[string]any{"token": "tok-value", "path": "a.py"})
			},
			secret: "tok-value",
		},
		{
			name:   "logger With attrs",
			log:    func(l *slog.Logger) { l.With("password", "hunter22").Info("login") },
			secret: "hunter22",
		},
		{
			name:   "group attrs",
			log:    func(l *slog.Logger) { l.Info("grouped", slog.Group("auth", "secret", "s3cr3t-value")) },
			secret: "s3cr3t-value",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newBufferLogger("json")
			tt.log(logger)
			out := buf.String()
			if strings.Contains(out, tt.secret) {
				t.Fatalf("secret leaked: %q", out)
			}
			if !strings.Contains(out, redacted) {
				t.Fatalf("expected %s in %q", redacted, out)
			}
		})
	}
}

func TestRedactCustomPatterns(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Output: &buf, RedactPatterns: []string{`ghost-[0-9]+`}})
	logger.Info("id ghost-12345")
	if strings.Contains(buf.String(), "ghost-12345") {
		t.Fatalf("custom pattern not applied: %q", buf.String())
	}
}

func TestRunIDAttached(t *testing.T) {
	logger, buf := newBufferLogger("json")
	ctx := AddRunID(context.Background(), "run-1")
	if GetRunID(ctx) != "run-1" {
		t.Fatal("GetRunID mismatch")
	}
	logger.InfoContext(ctx, "round started")
	if !strings.Contains(buf.String(), `"run_id":"run-1"`) {
		t.Fatalf("run id missing: %q", buf.String())
	}
	if GetRunID(context.Background()) != "" {
		t.Fatal("empty context should have no run id")
	}
}
