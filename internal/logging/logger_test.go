package logging

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLogger_CreatesDirAndLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	log, err := NewLogger(dir, "debug")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("log dir missing: %v", err)
	}

	log.Debug("test_message_from_logging_test")

	if !log.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("debug level should be enabled")
	}
}

func TestNewLogger_RejectsUnknownLevel(t *testing.T) {
	if _, err := NewLogger(t.TempDir(), "chatty"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
