package tlsroots

import (
	"crypto/tls"
	"fmt"
)

// Options describe the server TLS context.
type Options struct {
	CertFile    string
	KeyFile     string
	KeyPassword string

	// MinVersion is "1.0", "1.1", "1.2" or "1.3". Empty means 1.2.
	MinVersion string

	// Legacy lowers the floor to TLS 1.0 for old cash-register clients.
	Legacy bool

	// SecurityLevel follows the OpenSSL scale 0-5. Levels up to 2 use the Go
	// defaults; 3 restricts to 256-bit AEAD suites with X25519/P-384; 4 and
	// above require TLS 1.3.
	SecurityLevel int
}

// ParseVersion maps "1.0".."1.3" to a tls.Version constant.
func ParseVersion(s string) (uint16, error) {
	switch s {
	case "1.0":
		return tls.VersionTLS10, nil
	case "1.1":
		return tls.VersionTLS11, nil
	case "", "1.2":
		return tls.VersionTLS12, nil
	case "1.3":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("tlsroots: unknown TLS version %q", s)
	}
}

// strongSuites are the TLS 1.2 suites allowed at security level 3.
var strongSuites = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
	tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
}

// ServerConfig builds the tls.Config for the listener. When w is non-nil the
// certificate is served through the watcher so it can be replaced at runtime;
// otherwise the key pair is loaded once from opts.
func ServerConfig(opts Options, w *Watcher) (*tls.Config, error) {
	minVersion, err := ParseVersion(opts.MinVersion)
	if err != nil {
		return nil, err
	}
	if opts.Legacy {
		minVersion = tls.VersionTLS10
	}

	cfg := &tls.Config{
		MinVersion: minVersion,
		NextProtos: []string{"http/1.1"},
	}
	applySecurityLevel(cfg, opts.SecurityLevel)

	if w != nil {
		cfg.GetCertificate = w.GetCertificate
		return cfg, nil
	}

	cert, err := LoadKeyPair(opts.CertFile, opts.KeyFile, opts.KeyPassword)
	if err != nil {
		return nil, err
	}
	cfg.Certificates = []tls.Certificate{cert}
	return cfg, nil
}

func applySecurityLevel(cfg *tls.Config, level int) {
	if level >= 3 {
		cfg.CipherSuites = strongSuites
		cfg.CurvePreferences = []tls.CurveID{tls.X25519, tls.CurveP384}
		if cfg.MinVersion < tls.VersionTLS12 {
			cfg.MinVersion = tls.VersionTLS12
		}
	}
	if level >= 4 {
		cfg.MinVersion = tls.VersionTLS13
	}
}
