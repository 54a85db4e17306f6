package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: "json", Output: &buf})

	log.Info("request accepted", "request_id", "req-1")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if rec["msg"] != "request accepted" {
		t.Errorf("msg = %v, want %q", rec["msg"], "request accepted")
	}
	if rec["request_id"] != "req-1" {
		t.Errorf("request_id = %v, want %q", rec["request_id"], "req-1")
	}
}

func TestNewTextFormatRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Format: "text", Output: &buf})

	log.Info("dropped")
	log.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info line should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("warn line missing: %s", out)
	}
}

func TestNewNopDiscards(t *testing.T) {
	log := NewNop()
	// Must not panic and must not write anywhere visible.
	log.Info("ignored")
	log.WithRequest("req-1").Error("also ignored")
}

func TestWithHelpersAttachFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "json", Output: &buf})

	log.WithRequest("req-9").WithExpert("architect").Info("invoked")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec["request_id"] != "req-9" {
		t.Errorf("request_id = %v, want req-9", rec["request_id"])
	}
	if rec["expert_id"] != "architect" {
		t.Errorf("expert_id = %v, want architect", rec["expert_id"])
	}
}

func TestSanitizerRedactsKeys(t *testing.T) {
	s := NewSanitizer()

	tests := []struct {
		name  string
		in    string
		leaks string
	}{
		{"openai style", "calling with sk-abcdef1234567890abc", "sk-abcdef1234567890abc"},
		{"anthropic style", "key sk-ant-abcdef1234567890", "sk-ant-abcdef1234567890"},
		{"google style", "AIzaSyA1234567890abcdefghijklmnopqrstu", "AIza"},
		{"bearer header", "Authorization: Bearer abc123def456ghi789", "abc123def456"},
		{"assignment", `api_key="supersecretvalue"`, "supersecretvalue"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Sanitize(tt.in)
			if strings.Contains(got, tt.leaks) {
				t.Errorf("Sanitize(%q) leaked credential: %q", tt.in, got)
			}
			if !strings.Contains(got, redacted) {
				t.Errorf("Sanitize(%q) = %q, expected placeholder", tt.in, got)
			}
		})
	}
}

func TestSanitizerLeavesPlainTextAlone(t *testing.T) {
	s := NewSanitizer()
	in := "five experts responded within deadline"
	if got := s.Sanitize(in); got != in {
		t.Errorf("Sanitize(%q) = %q, want unchanged", in, got)
	}
}

func TestSanitizerAddPattern(t *testing.T) {
	s := NewSanitizer()
	if err := s.AddPattern(`conclave-[0-9]+`); err != nil {
		t.Fatalf("AddPattern: %v", err)
	}
	if got := s.Sanitize("id conclave-42 seen"); strings.Contains(got, "conclave-42") {
		t.Errorf("custom pattern not applied: %q", got)
	}

	if err := s.AddPattern(`([`); err == nil {
		t.Error("AddPattern with invalid regexp should fail")
	}
}

func TestSanitizerMap(t *testing.T) {
	s := NewSanitizer()
	in := map[string]any{
		"prompt": "use sk-abcdef1234567890abc here",
		"count":  3,
	}
	out := s.SanitizeMap(in)
	if sv, _ := out["prompt"].(string); strings.Contains(sv, "sk-abcdef") {
		t.Errorf("map value not redacted: %v", out["prompt"])
	}
	if out["count"] != 3 {
		t.Errorf("non-string value changed: %v", out["count"])
	}
}

func TestRedactingHandlerCleansRecords(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	log := slog.New(NewRedactingHandler(inner, NewSanitizer()))

	log.Info("token=verysecretvalue", "detail", "Bearer abc123def456ghi789")

	out := buf.String()
	if strings.Contains(out, "verysecretvalue") {
		t.Errorf("message leaked secret: %s", out)
	}
	if strings.Contains(out, "abc123def456") {
		t.Errorf("attr leaked secret: %s", out)
	}
}

func TestConsoleHandlerWritesLine(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewConsoleHandler(&buf, slog.LevelDebug))

	log.Info("panel ready", "experts", 6)

	out := buf.String()
	if !strings.Contains(out, "panel ready") {
		t.Errorf("message missing: %q", out)
	}
	if !strings.Contains(out, "experts") || !strings.Contains(out, "6") {
		t.Errorf("attr missing: %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Errorf("line not terminated: %q", out)
	}
}
