package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestNewJSON_RespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := NewJSON(&buf, slog.LevelWarn)
	logger.Info("dropped")
	logger.Warn("kept", "userId", 7)

	var rec map[string]any

	err := json.Unmarshal(buf.Bytes(), &rec)
	if err != nil {
		t.Fatalf("expected exactly one JSON record, got %q: %v", buf.String(), err)
	}

	if rec["msg"] != "kept" || rec["userId"] != float64(7) {
		t.Fatalf("unexpected record: %v", rec)
	}
}

//nolint:paralleltest // replaces the default logger
func TestSetupJSONWithFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "app.log")

	closer := SetupJSONWithFile(slog.LevelInfo, FileConfig{Path: path, MaxSizeMB: 1})
	slog.Info("to file")

	err := closer.Close()
	if err != nil {
		t.Fatalf("close: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !bytes.Contains(raw, []byte(`"msg":"to file"`)) {
		t.Fatalf("log file missing record: %q", raw)
	}
}
