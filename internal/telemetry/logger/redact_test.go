package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestRedactSensitive_KeyNames(t *testing.T) {
	tests := []struct {
		key    string
		value  string
		redact bool
	}{
		{"secret", "s3cr3t", true},
		{"x-secret", "s3cr3t", true},
		{"key_password", "hunter2", true},
		{"Authorization", "Bearer abc", true},
		{"secret", "", false},
		{"remote", "10.0.0.1", false},
		{"idempotency_key", "abc", false},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			got := redactSensitive(slog.String(tt.key, tt.value))
			redacted := got.Value.String() == redactedValue
			if redacted != tt.redact {
				t.Errorf("redactSensitive(%s=%q) = %q", tt.key, tt.value, got.Value.String())
			}
		})
	}
}

func TestRedactSensitive_Group(t *testing.T) {
	a := slog.Group("tls", slog.String("key_password", "pw"), slog.String("cert_file", "c.pem"))
	got := redactSensitive(a)

	attrs := got.Value.Group()
	if attrs[0].Value.String() != redactedValue {
		t.Errorf("nested password not redacted: %v", attrs[0])
	}
	if attrs[1].Value.String() != "c.pem" {
		t.Errorf("nested cert_file changed: %v", attrs[1])
	}
}

func TestRedactSensitive_InOutput(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	l.Info("config", "secret", "topsecret")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("parse log: %v", err)
	}
	if entry["secret"] != redactedValue {
		t.Errorf("secret = %v", entry["secret"])
	}
}

func TestRedactString(t *testing.T) {
	tests := map[string]string{
		"":           "****",
		"abc":        "****",
		"abcdef":     "****",
		"abcdefgh":   "ab****gh",
		"0123456789": "01******89",
	}
	for in, want := range tests {
		if got := RedactString(in); got != want {
			t.Errorf("RedactString(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsSensitiveKey(t *testing.T) {
	if !IsSensitiveKey("X-Secret") {
		t.Error("X-Secret should be sensitive")
	}
	if IsSensitiveKey("path") {
		t.Error("path should not be sensitive")
	}
}
