package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitWritesLogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	t.Cleanup(func() { Logger = nil })

	if err := Init(Config{Dir: dir}); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}
	if Logger == nil {
		t.Fatal("Logger is nil after initialization")
	}

	Info("habit toggled", "habit", "h1")

	content, err := os.ReadFile(filepath.Join(dir, "zolffix.log"))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), "habit toggled") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestNewRespectsDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false)
	l.Debug("hidden")
	l.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("debug message should be filtered, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("expected warn message, got %q", buf.String())
	}
}

func TestHelpersBeforeInit(t *testing.T) {
	Logger = nil
	Debug("noop")
	Info("noop")
	Warn("noop")
	Error("noop")
}
