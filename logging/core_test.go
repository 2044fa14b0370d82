package logging

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewCoreCreatesLogFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "llamahost.log")

	core, err := newCore(zapcore.InfoLevel, path, false)
	if err != nil {
		t.Fatalf("newCore() error = %v", err)
	}

	logger := zap.New(core)
	logger.Info("detection run starting")
	logger.Sync()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("log file not created: %v", err)
	}
}

func TestNewCoreRejectsUnwritableDir(t *testing.T) {
	if _, err := newCore(zapcore.InfoLevel, "/nonexistent-dir-for-llamahost/app.log", false); err == nil {
		t.Error("newCore() error = nil, want error for unwritable path")
	}
}

func TestEncoderConfigsUseDomainFieldNames(t *testing.T) {
	cfg := jsonEncoderConfig()
	if cfg.TimeKey != fieldTimestamp || cfg.LevelKey != fieldLevel || cfg.MessageKey != fieldMessage {
		t.Errorf("jsonEncoderConfig() field keys = %+v", cfg)
	}

	console := consoleEncoderConfig()
	if console.TimeKey != fieldTimestamp {
		t.Errorf("consoleEncoderConfig() TimeKey = %q, want %q", console.TimeKey, fieldTimestamp)
	}
}
