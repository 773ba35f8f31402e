package logger

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitCreatesLogDir(t *testing.T) {
	configDir := filepath.Join(t.TempDir(), "config")

	if err := Init(Config{ConfigDir: configDir}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	logDir := filepath.Join(configDir, "logs")
	if _, err := os.Stat(logDir); os.IsNotExist(err) {
		t.Errorf("log directory was not created: %s", logDir)
	}

	Info("plan generated", "date", "2026-10-16")
	Error("request failed", "err", "boom")

	if _, err := os.Stat(filepath.Join(logDir, "planner.log")); err != nil {
		t.Errorf("log file missing: %v", err)
	}
}

func TestHelpersBeforeInit(t *testing.T) {
	// The package-level logger discards output until Init runs.
	Debug("not yet initialised")
	Warn("still fine")
}
