package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger_WritesJSONToFile(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelInfo, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	logger.WithUnit("42").WithComponent("processor").Info("unit resolved", "score", 97.5)
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "quell.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, data)
	}

	if entry["unit_id"] != "42" {
		t.Errorf("expected unit_id=42, got %v", entry["unit_id"])
	}
	if entry["component"] != "processor" {
		t.Errorf("expected component=processor, got %v", entry["component"])
	}
	if entry["msg"] != "unit resolved" {
		t.Errorf("expected msg 'unit resolved', got %v", entry["msg"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelWarn, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	logger.Debug("dropped")
	logger.Info("also dropped")
	logger.Warn("kept")
	logger.Close()

	data, _ := os.ReadFile(filepath.Join(dir, "quell.log"))
	if strings.Contains(string(data), "dropped") {
		t.Error("messages below WARN should be filtered")
	}
	if !strings.Contains(string(data), "kept") {
		t.Error("WARN message should be written")
	}
}

func TestLogger_WithDoesNotMutateParent(t *testing.T) {
	logger := NopLogger()

	child := logger.WithUnit("7")
	if len(logger.attrs) != 0 {
		t.Error("parent logger attrs should be unchanged")
	}
	if len(child.attrs) != 1 {
		t.Errorf("child should have 1 attr, got %d", len(child.attrs))
	}
}

func TestRotatingWriter_RotatesAtSizeLimit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quell.log")

	rw, err := NewRotatingWriter(path, RotationConfig{MaxSizeMB: 1, MaxBackups: 2})
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	defer rw.Close()

	chunk := strings.Repeat("x", 512*1024)
	for i := 0; i < 3; i++ {
		if _, err := rw.Write([]byte(chunk)); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	if _, err := os.Stat(path + ".1"); err != nil {
		t.Errorf("expected rotated backup %s.1 to exist: %v", path, err)
	}
}
