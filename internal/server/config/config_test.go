package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Server.ConcurrencyLimit != DefaultConcurrencyLimit {
		t.Errorf("ConcurrencyLimit = %d, want %d", cfg.Server.ConcurrencyLimit, DefaultConcurrencyLimit)
	}
	if cfg.Server.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout = %v, want 30s", cfg.Server.RequestTimeout)
	}
	if cfg.Server.RateLimit != 0 {
		t.Errorf("RateLimit = %v, want disabled", cfg.Server.RateLimit)
	}
	if cfg.TLS.MinVersion != "1.2" {
		t.Errorf("TLS.MinVersion = %q, want 1.2", cfg.TLS.MinVersion)
	}
	if !cfg.Security.LoopbackExempt {
		t.Error("loopback should be exempt by default")
	}
	if cfg.Cache.CleanupThreshold != 200 {
		t.Errorf("CleanupThreshold = %d, want 200", cfg.Cache.CleanupThreshold)
	}
	if cfg.Device.Driver != "emulator" {
		t.Errorf("Device.Driver = %q, want emulator", cfg.Device.Driver)
	}
	if cfg.Log.Level != DefaultLogLevel {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, DefaultLogLevel)
	}
}

func TestSanitize(t *testing.T) {
	cfg := Default()
	cfg.Security.Secret = "super-secret-1234567890"
	cfg.TLS.KeyPassword = "pfxpass"

	sanitized := Sanitize(cfg)

	if cfg.Security.Secret != "super-secret-1234567890" {
		t.Error("original config should not be modified")
	}
	if sanitized.Security.Secret == cfg.Security.Secret {
		t.Error("sanitized config should mask the secret")
	}
	if len(sanitized.Security.Secret) != len(cfg.Security.Secret) {
		t.Errorf("masked length = %d, want %d", len(sanitized.Security.Secret), len(cfg.Security.Secret))
	}
	if !strings.HasPrefix(sanitized.Security.Secret, "su") || !strings.HasSuffix(sanitized.Security.Secret, "90") {
		t.Errorf("masked secret = %q, want first and last two characters kept", sanitized.Security.Secret)
	}
	if sanitized.TLS.KeyPassword == "pfxpass" {
		t.Error("sanitized config should mask the key password")
	}
}

func TestSanitize_Empty(t *testing.T) {
	sanitized := Sanitize(Default())
	if sanitized.Security.Secret != "" {
		t.Errorf("empty secret became %q", sanitized.Security.Secret)
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ab", "****"},
		{"abcd", "****"},
		{"abcdef", "ab**ef"},
	}
	for _, tt := range tests {
		if got := maskSecret(tt.in); got != tt.want {
			t.Errorf("maskSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func writeFiles(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestVerify(t *testing.T) {
	dir := writeFiles(t, "gw.crt", "gw.key", "gw.pfx")

	valid := func() *GatewayConfig {
		cfg := Default()
		cfg.TLS.CertFile = filepath.Join(dir, "gw.crt")
		cfg.TLS.KeyFile = filepath.Join(dir, "gw.key")
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*GatewayConfig)
		wantErr string
	}{
		{"defaults with files", func(*GatewayConfig) {}, ""},
		{"port zero", func(c *GatewayConfig) { c.Server.Port = 0 }, "server.port"},
		{"port too large", func(c *GatewayConfig) { c.Server.Port = 70000 }, "server.port"},
		{"no concurrency", func(c *GatewayConfig) { c.Server.ConcurrencyLimit = 0 }, "server.concurrency_limit"},
		{"bad tls version", func(c *GatewayConfig) { c.TLS.MinVersion = "2.0" }, "tls.min_version"},
		{"bad security level", func(c *GatewayConfig) { c.TLS.SecurityLevel = 9 }, "tls.security_level"},
		{"bad log level", func(c *GatewayConfig) { c.Log.Level = "trace" }, "log.level"},
		{"unknown driver", func(c *GatewayConfig) { c.Device.Driver = "atol" }, "device.driver"},
		{"missing cert", func(c *GatewayConfig) { c.TLS.CertFile = filepath.Join(dir, "nope.crt") }, "tls.cert_file"},
		{"missing key", func(c *GatewayConfig) { c.TLS.KeyFile = "" }, "tls.key_file"},
		{"pkcs12 without key", func(c *GatewayConfig) {
			c.TLS.CertFile = filepath.Join(dir, "gw.pfx")
			c.TLS.KeyFile = ""
		}, ""},
		{"index with slash", func(c *GatewayConfig) { c.Static.Index = "a/b.html" }, "static.index"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := Verify(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Verify() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Verify() = nil, want error mentioning %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Verify() error = %q, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestIsPKCS12(t *testing.T) {
	for name, want := range map[string]bool{
		"a.pfx": true, "A.P12": true, "a.crt": false, "a.pem": false, "pfx": false,
	} {
		if got := IsPKCS12(name); got != want {
			t.Errorf("IsPKCS12(%q) = %v, want %v", name, got, want)
		}
	}
}
