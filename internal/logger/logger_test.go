package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestSetup_OutputsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(&buf)

	logger.Info("recipe created", slog.String("recipe_id", "recipe-1"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (raw: %s)", err, buf.String())
	}
	if entry["msg"] != "recipe created" {
		t.Errorf("msg = %v, want recipe created", entry["msg"])
	}
	if entry["recipe_id"] != "recipe-1" {
		t.Errorf("recipe_id = %v, want recipe-1", entry["recipe_id"])
	}
	if entry["level"] != "INFO" {
		t.Errorf("level = %v, want INFO", entry["level"])
	}
}

func TestSetup_DebugIsSuppressed(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(&buf)

	logger.Debug("debug message")

	if buf.Len() != 0 {
		t.Errorf("debug output should be suppressed at INFO level, got: %s", buf.String())
	}
}

func TestSetupDefault_SetsGlobalLogger(t *testing.T) {
	var buf bytes.Buffer
	SetupDefault(&buf)

	slog.Info("global log")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["msg"] != "global log" {
		t.Errorf("msg = %v, want global log", entry["msg"])
	}
}
