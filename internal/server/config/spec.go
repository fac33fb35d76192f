package config

import "time"

// GatewayConfig is the root configuration for kkmgate.
type GatewayConfig struct {
	Server   ServerSection   `koanf:"server" yaml:"server" json:"server"`
	TLS      TLSSection      `koanf:"tls" yaml:"tls" json:"tls"`
	Security SecuritySection `koanf:"security" yaml:"security" json:"security"`
	Cache    CacheSection    `koanf:"cache" yaml:"cache" json:"cache"`
	Static   StaticSection   `koanf:"static" yaml:"static" json:"static"`
	Device   DeviceSection   `koanf:"device" yaml:"device" json:"device"`
	Log      LogSection      `koanf:"log" yaml:"log" json:"log"`
	Service  ServiceSection  `koanf:"service" yaml:"service" json:"service"`
}

// ServerSection configures the listener and request lifecycle.
type ServerSection struct {
	// Port is the TCP port to listen on.
	Port int `koanf:"port" yaml:"port" json:"port" validate:"min=1,max=65535"`

	// IPv4Only binds to 0.0.0.0 instead of the dual-stack wildcard.
	IPv4Only bool `koanf:"ipv4_only" yaml:"ipv4_only" json:"ipv4_only"`

	// ConcurrencyLimit is the maximum number of in-flight connections.
	ConcurrencyLimit int `koanf:"concurrency_limit" yaml:"concurrency_limit" json:"concurrency_limit" validate:"min=1"`

	// DelayedCloseLimit caps how many rejected connections may wait for a
	// delayed close at once. Beyond it rejected connections close immediately.
	DelayedCloseLimit int `koanf:"delayed_close_limit" yaml:"delayed_close_limit" json:"delayed_close_limit" validate:"min=0"`

	// DelayedCloseGrace is how long a rejected connection is held before close.
	DelayedCloseGrace time.Duration `koanf:"delayed_close_grace" yaml:"delayed_close_grace" json:"delayed_close_grace" validate:"min=0"`

	// RequestTimeout bounds a whole request: handshake, read, handler, write.
	RequestTimeout time.Duration `koanf:"request_timeout" yaml:"request_timeout" json:"request_timeout" validate:"gt=0"`

	// ControlTimeout bounds how long Stop waits for in-flight requests.
	ControlTimeout time.Duration `koanf:"control_timeout" yaml:"control_timeout" json:"control_timeout" validate:"gt=0"`

	// ShutdownGrace is the pause between draining and stopping the server.
	ShutdownGrace time.Duration `koanf:"shutdown_grace" yaml:"shutdown_grace" json:"shutdown_grace" validate:"min=0"`

	// RateLimit is the number of connections per second accepted from one
	// remote address. Zero disables rate limiting.
	RateLimit float64 `koanf:"rate_limit" yaml:"rate_limit" json:"rate_limit" validate:"min=0"`

	// RateBurst is the limiter burst size; zero means max(1, RateLimit).
	RateBurst int `koanf:"rate_burst" yaml:"rate_burst" json:"rate_burst" validate:"min=0"`
}

// TLSSection configures the TLS context.
type TLSSection struct {
	// CertFile is a PEM certificate chain or a PKCS#12 (.pfx/.p12) bundle.
	CertFile string `koanf:"cert_file" yaml:"cert_file" json:"cert_file" validate:"required"`

	// KeyFile is the PEM private key. Unused for PKCS#12 bundles.
	KeyFile string `koanf:"key_file" yaml:"key_file" json:"key_file"`

	// KeyPassword decrypts an encrypted PEM key or a PKCS#12 bundle.
	KeyPassword string `koanf:"key_password" yaml:"key_password" json:"key_password"`

	// MinVersion is the minimum TLS version: 1.0, 1.1, 1.2 or 1.3.
	MinVersion string `koanf:"min_version" yaml:"min_version" json:"min_version" validate:"oneof=1.0 1.1 1.2 1.3"`

	// Legacy allows TLS 1.0 and 1.1 regardless of MinVersion.
	Legacy bool `koanf:"legacy" yaml:"legacy" json:"legacy"`

	// SecurityLevel mirrors the OpenSSL security level (0-5).
	SecurityLevel int `koanf:"security_level" yaml:"security_level" json:"security_level" validate:"min=0,max=5"`

	// Watch reloads the certificate when the files change.
	Watch bool `koanf:"watch" yaml:"watch" json:"watch"`
}

// SecuritySection configures request authentication.
type SecuritySection struct {
	// Secret is compared against the X-Secret request header.
	Secret string `koanf:"secret" yaml:"secret" json:"secret"`

	// LoopbackExempt lets loopback clients skip the secret check.
	LoopbackExempt bool `koanf:"loopback_exempt" yaml:"loopback_exempt" json:"loopback_exempt"`
}

// CacheSection configures the response cache.
type CacheSection struct {
	// CleanupThreshold is the number of cache accesses between sweeps.
	CleanupThreshold int `koanf:"cleanup_threshold" yaml:"cleanup_threshold" json:"cleanup_threshold" validate:"min=1"`

	// IdempotencyTTL is how long device results are replayable.
	IdempotencyTTL time.Duration `koanf:"idempotency_ttl" yaml:"idempotency_ttl" json:"idempotency_ttl" validate:"gt=0"`

	// StaticTTL is how long static files stay cached.
	StaticTTL time.Duration `koanf:"static_ttl" yaml:"static_ttl" json:"static_ttl" validate:"gt=0"`
}

// StaticSection configures static file serving.
type StaticSection struct {
	Root  string `koanf:"root" yaml:"root" json:"root"`
	Index string `koanf:"index" yaml:"index" json:"index"`
}

// DeviceSection configures the device backend.
type DeviceSection struct {
	// Driver selects the device driver. Only "emulator" ships with kkmgate.
	Driver string `koanf:"driver" yaml:"driver" json:"driver" validate:"oneof=emulator"`

	// DataDir holds the persistent device registry. Empty keeps it in memory.
	DataDir string `koanf:"data_dir" yaml:"data_dir" json:"data_dir"`

	// Latency is the simulated per-operation latency of the emulator.
	Latency time.Duration `koanf:"latency" yaml:"latency" json:"latency" validate:"min=0"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" yaml:"level" json:"level" validate:"oneof=debug info warn warning error"`
	Format string `koanf:"format" yaml:"format" json:"format" validate:"oneof=json text console"`
	File   string `koanf:"file" yaml:"file" json:"file"`
}

// ServiceSection names the Windows service.
type ServiceSection struct {
	Name        string `koanf:"name" yaml:"name" json:"name" validate:"required"`
	DisplayName string `koanf:"display_name" yaml:"display_name" json:"display_name"`
	Description string `koanf:"description" yaml:"description" json:"description"`
}
