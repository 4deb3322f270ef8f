package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   Debug,
		"INFO":    Info,
		"":        Info,
		"Warning": Warn,
		"error":   Error,
		"fatal":   Fatal,
	}

	for input, expected := range tests {
		level, err := Parse(input)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", input, err)
		}
		if level != expected {
			t.Errorf("Expected %s for %q, got %s", expected, input, level)
		}
	}

	if _, err := Parse("verbose"); err == nil {
		t.Error("Expected error for unknown level")
	}
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("test", Warn, &buf)

	logger.Info("hidden")
	logger.Warn("visible %d", 42)

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Errorf("Expected info entry to be filtered, got %q", output)
	}
	if !strings.Contains(output, "visible 42") {
		t.Errorf("Expected warn entry in output, got %q", output)
	}
	if !strings.Contains(output, "[test]") {
		t.Errorf("Expected logger name in output, got %q", output)
	}
}

func TestLoggerNamedAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("dicomweb", Debug, &buf).Named("stow").With("sop", "1.2.3")

	logger.Info("stored")

	output := buf.String()
	if !strings.Contains(output, "[dicomweb/stow]") {
		t.Errorf("Expected nested name, got %q", output)
	}
	if !strings.Contains(output, "sop=1.2.3") {
		t.Errorf("Expected field suffix, got %q", output)
	}
}

func TestLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("api", Debug, &buf).SetJSON(true).With("status", 200)

	logger.Error("request failed")

	var entry logEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if entry.Level != "ERROR" {
		t.Errorf("Expected level %q, got %q", "ERROR", entry.Level)
	}
	if entry.Service != "api" {
		t.Errorf("Expected service %q, got %q", "api", entry.Service)
	}
	if entry.Message != "request failed" {
		t.Errorf("Expected message %q, got %q", "request failed", entry.Message)
	}
	if entry.Fields["status"] != float64(200) {
		t.Errorf("Expected status field 200, got %v", entry.Fields["status"])
	}
}
