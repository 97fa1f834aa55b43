package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{" info ", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestInitWriter_JSON(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	logger := InitWriter(&buf, "JSON", slog.LevelInfo)
	logger.Info("refresh complete", "records", 3)
	logger.Debug("hidden")

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("expected one JSON line, got error: %v\noutput: %s", err, buf.String())
	}
	if m["msg"] != "refresh complete" || m["records"] != float64(3) {
		t.Errorf("unexpected log line: %v", m)
	}
	if slog.Default() != logger {
		t.Error("expected logger installed as default")
	}
}

func TestInitWriter_Text(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	InitWriter(&buf, "text", slog.LevelWarn).Warn("fetch failed", "status", 404)
	out := buf.String()
	if !strings.Contains(out, "msg=\"fetch failed\"") || !strings.Contains(out, "status=404") {
		t.Errorf("unexpected text output: %s", out)
	}
}
