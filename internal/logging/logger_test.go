package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelplan/internal/config"
	"reelplan/internal/logging"
	"reelplan/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("compiler ready")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "reelplan.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "compiler ready") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller")
	if strings.Contains(buf.String(), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", buf.String())
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("message with caller")
	if !strings.Contains(buf.String(), "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", buf.String())
	}
}

func TestConsoleLoggerHoistsComponentAndJob(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger = logging.NewComponentLogger(logger, "compiler")
	logger.Info("plan compiled",
		logging.String(logging.FieldJobID, "6f1c2d3e-aaaa-bbbb-cccc-000000000000"),
		logging.Int("steps", 4),
	)

	line := buf.String()
	if !strings.Contains(line, "INFO compiler[6f1c2d3e]: plan compiled") {
		t.Fatalf("unexpected prefix in %q", line)
	}
	if !strings.Contains(line, "steps=4") {
		t.Fatalf("expected steps attr in %q", line)
	}
	if strings.Contains(line, "component=") || strings.Contains(line, "job_id=") {
		t.Fatalf("hoisted attrs must not repeat as key/values: %q", line)
	}
}

func TestJSONLoggerUsesShortKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("proxy missing", logging.String(logging.FieldClipID, "c1"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode json line: %v", err)
	}
	for _, key := range []string{"ts", "level", "msg", "clip_id"} {
		if _, ok := entry[key]; !ok {
			t.Fatalf("expected key %q in %v", key, entry)
		}
	}
	if entry["level"] != "warn" {
		t.Fatalf("expected lowercase level, got %v", entry["level"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml", Writer: &bytes.Buffer{}}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsScopeFields(t *testing.T) {
	var buf bytes.Buffer
	base, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithJobID(context.Background(), "job-1")
	ctx = services.WithTenant(ctx, "acme")
	ctx = services.WithRequestID(ctx, "req-9")

	logging.WithContext(ctx, base).Info("admitted")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode json line: %v", err)
	}
	if entry[logging.FieldJobID] != "job-1" || entry[logging.FieldTenant] != "acme" || entry[logging.FieldCorrelationID] != "req-9" {
		t.Fatalf("missing context fields: %v", entry)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "lut missing", "lut_artifact_missing",
		logging.String(logging.FieldErrorHint, "re-run lut extraction"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode json line: %v", err)
	}
	if entry[logging.FieldEventType] != "lut_artifact_missing" {
		t.Fatalf("event_type = %v", entry[logging.FieldEventType])
	}
	if entry[logging.FieldErrorHint] != "re-run lut extraction" {
		t.Fatalf("caller hint overwritten: %v", entry[logging.FieldErrorHint])
	}
	if _, ok := entry[logging.FieldImpact]; !ok {
		t.Fatalf("impact not injected: %v", entry)
	}
}

func TestDecisionAttrsWithOptions(t *testing.T) {
	attrs := logging.DecisionAttrsWithOptions("encoder_selection", "libx264", "no hardware probe", "h264_nvenc,libx264")
	if !logging.HasAttrKey(attrs, logging.FieldDecisionType) || !logging.HasAttrKey(attrs, "decision_options") {
		t.Fatalf("attrs = %v", attrs)
	}
	if got := attrs[len(attrs)-1].Value.String(); got != "h264_nvenc,libx264" {
		t.Fatalf("decision_options = %q", got)
	}
}
