package output

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

type device struct {
	Serial  string        `json:"serial" yaml:"serial"`
	Port    string        `json:"port" yaml:"port"`
	Timeout time.Duration `json:"timeout" yaml:"timeout" table:"wide"`
	secret  string
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{" yaml ", FormatYAML, false},
		{"yml", FormatYAML, false},
		{"xml", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		format Format
		check  func(Formatter) bool
	}{
		{FormatJSON, func(f Formatter) bool { _, ok := f.(*JSONFormatter); return ok }},
		{FormatYAML, func(f Formatter) bool { _, ok := f.(*YAMLFormatter); return ok }},
		{FormatTable, func(f Formatter) bool { _, ok := f.(*TableFormatter); return ok }},
		{"unknown", func(f Formatter) bool { _, ok := f.(*TableFormatter); return ok }},
	}
	for _, tt := range tests {
		if f := NewFormatter(tt.format, false); !tt.check(f) {
			t.Errorf("NewFormatter(%q) = %T", tt.format, f)
		}
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONFormatter{}).Format(&buf, device{Serial: "SN1", Port: "COM3"}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, `"serial": "SN1"`) || strings.Contains(out, "secret") {
		t.Errorf("JSON output = %s", out)
	}
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	data := []device{{Serial: "SN1", Port: "COM3", Timeout: 3 * time.Second}}
	if err := (&YAMLFormatter{}).Format(&buf, data); err != nil {
		t.Fatal(err)
	}
	want := "- serial: SN1\n  port: COM3\n  timeout: 3s\n"
	if got := buf.String(); got != want {
		t.Errorf("YAML output = %q, want %q", got, want)
	}
}
