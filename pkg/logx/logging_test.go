package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestZeroLoggerIsNoop(t *testing.T) {
	t.Parallel()
	var l Logger
	if !l.IsZero() {
		t.Fatal("zero Logger should report IsZero")
	}
	// Must not panic.
	l.Info("hello", String("k", "v"))
	if l.With(String("a", "b")).IsZero() {
		t.Fatal("derived logger with fields should not be zero")
	}
}

func TestWithFieldsAppearInOutput(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := New(&buf, "debug").With(String("plugin", "schedule"))
	l.Debug("Schedule component registered.", Int("fields", 12), Err(errors.New("boom")))

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("output is not json: %v (%q)", err, buf.String())
	}
	if m["plugin"] != "schedule" {
		t.Fatalf("plugin = %v, want schedule", m["plugin"])
	}
	if m["message"] != "Schedule component registered." {
		t.Fatalf("message = %v", m["message"])
	}
	if m["fields"] != float64(12) {
		t.Fatalf("fields = %v, want 12", m["fields"])
	}
	if _, ok := m["caller"]; !ok {
		t.Fatal("expected caller field")
	}
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := New(&buf, "warn")
	l.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}
	if l.Enabled(LevelDebug) {
		t.Fatal("debug should not be enabled at warn level")
	}
	l.Warn("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("warn should be written, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{" WARNING ", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"nonsense", LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in, LevelInfo); got != tt.want {
			t.Fatalf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestServiceApplyFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coffeebreak.log")
	svc, log := NewService(Config{Level: "info", File: FileConfig{Enabled: true, Path: path}})
	t.Cleanup(func() { _ = svc.Close() })

	log.Info("first")
	svc.Apply(Config{Level: "error", File: FileConfig{Enabled: true, Path: path}})
	log.Info("filtered after apply")
	log.Error("second")
	if err := svc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(b)
	if !strings.Contains(out, "first") || !strings.Contains(out, "second") {
		t.Fatalf("expected both messages in file, got %q", out)
	}
	if strings.Contains(out, "filtered after apply") {
		t.Fatalf("level change was not applied: %q", out)
	}
}
