package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSessionIDHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := WithSessionID(slog.New(slog.NewJSONHandler(&buf, nil)), "session-123")
	logger.With("stream", "screen").Info("chunk stored")

	output := buf.String()
	if !strings.Contains(output, `"session_id":"session-123"`) {
		t.Errorf("expected session_id in output, got: %s", output)
	}
	if !strings.Contains(output, `"stream":"screen"`) {
		t.Errorf("expected stream attr in output, got: %s", output)
	}
}

func TestSessionIDHandlerNilBase(t *testing.T) {
	handler := newSessionIDHandler(nil, "session-123")
	if _, ok := handler.(NoopHandler); !ok {
		t.Errorf("expected NoopHandler when base is nil, got: %T", handler)
	}
}

func TestFormatValueQuotesSpaces(t *testing.T) {
	if got := formatValue(slog.StringValue("two words")); got != `"two words"` {
		t.Fatalf("unexpected formatting %s", got)
	}
	if got := formatValue(slog.IntValue(42)); got != "42" {
		t.Fatalf("unexpected formatting %s", got)
	}
}

func TestRotateLargeLog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, LogFileName)
	if err := os.WriteFile(path, bytes.Repeat([]byte("x"), 64), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := rotateLargeLog(path, 32, now); err != nil {
		t.Fatalf("rotateLargeLog: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "gazerec-20240301T120000.log")); err != nil {
		t.Fatalf("expected rotated file: %v", err)
	}

	old := filepath.Join(dir, "gazerec-20240301T120000.log")
	past := now.AddDate(0, 0, -90)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if removed := CleanupOldLogs(NewNop(), 30, dir, "gazerec-*.log"); removed != 1 {
		t.Fatalf("expected one pruned file, got %d", removed)
	}
}
