package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path) // nolint:gosec
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	return string(data)
}

func TestNew(t *testing.T) {
	configs := []Config{
		{Level: "info", Output: "stderr", Format: FormatText},
		{Level: "debug", Output: "stdout", Format: FormatJSON},
		{Level: "warn", Output: "", Format: FormatAuto},
		{Level: "bogus", Output: "/nonexistent/dir/firewatch.log", Format: "bogus"},
	}

	for _, cfg := range configs {
		if log := New(cfg); log == nil {
			t.Errorf("New(%+v) returned nil", cfg)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "firewatch.log")

	log := New(Config{Level: "warn", Output: logFile, Format: FormatText})
	log.Debug("debug message")
	log.Info("info message")
	log.Warn("warn message")
	log.Error("error message")

	content := readLog(t, logFile)
	for _, filtered := range []string{"debug message", "info message"} {
		if strings.Contains(content, filtered) {
			t.Errorf("%q should be filtered out", filtered)
		}
	}
	for _, kept := range []string{"warn message", "error message"} {
		if !strings.Contains(content, kept) {
			t.Errorf("%q not found in log", kept)
		}
	}
}

func TestWithFields(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "firewatch.log")

	log := New(Config{Level: "info", Output: logFile, Format: FormatText}).
		With("component", "firewatch")
	log.Info("watch established", "dir", "shaders/", "id", 3)

	content := readLog(t, logFile)
	for _, want := range []string{"watch established", "component=firewatch", "dir=shaders/", "id=3"} {
		if !strings.Contains(content, want) {
			t.Errorf("log %q does not contain %q", content, want)
		}
	}
}

func TestJSONOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "firewatch.json")

	log := New(Config{Level: "info", Output: logFile, Format: FormatJSON})
	log.Info("reload", "path", "scenes/basic.frag", "cookie", 7)

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(readLog(t, logFile)), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}
	if entry["msg"] != "reload" {
		t.Errorf("msg = %v, want reload", entry["msg"])
	}
	if entry["path"] != "scenes/basic.frag" {
		t.Errorf("path = %v, want scenes/basic.frag", entry["path"])
	}
	if entry["cookie"] != float64(7) {
		t.Errorf("cookie = %v, want 7", entry["cookie"])
	}
}

func TestResolveFormat(t *testing.T) {
	var buf bytes.Buffer
	logFile, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatalf("CreateTemp() error = %v", err)
	}
	defer logFile.Close()

	tests := []struct {
		name   string
		format string
		w      io.Writer
		want   string
	}{
		{"text", "text", &buf, FormatText},
		{"json", "JSON", &buf, FormatJSON},
		{"unknown falls back to text", "xml", &buf, FormatText},
		{"auto on buffer", "auto", &buf, FormatJSON},
		{"auto on regular file", "auto", logFile, FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveFormat(tt.format, tt.w); got != tt.want {
				t.Errorf("resolveFormat(%q) = %s, want %s", tt.format, got, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level string
		want  string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"unknown", "INFO"},
		{"", "INFO"},
		{"DEBUG", "DEBUG"},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.level).String(); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestOpenOutput(t *testing.T) {
	for _, output := range []string{"stdout", "stderr", "", "STDOUT"} {
		w, err := openOutput(output)
		if err != nil || w == nil {
			t.Errorf("openOutput(%q) = %v, %v", output, w, err)
		}
	}

	if _, err := openOutput(filepath.Join(t.TempDir(), "missing", "x.log")); err == nil {
		t.Error("openOutput() error = nil for unwritable path")
	}
}

func TestNoop(t *testing.T) {
	log := Noop().With("k", "v")
	log.Debug("debug")
	log.Info("info")
	log.Warn("warn")
	log.Error("error")
}

func BenchmarkLogWithFields(b *testing.B) {
	log := Noop().With("component", "firewatch")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		log.Debug("event discarded", "id", 3, "name", "main.frag")
	}
}
