package config

import "time"

// Default configuration values.
const (
	DefaultPort              = 8443
	DefaultConcurrencyLimit  = 16
	DefaultDelayedCloseLimit = 16
	DefaultDelayedCloseGrace = time.Second
	DefaultRequestTimeout    = 30 * time.Second
	DefaultControlTimeout    = 10 * time.Second
	DefaultShutdownGrace     = 500 * time.Millisecond

	DefaultCertFile      = "kkmgate.crt"
	DefaultKeyFile       = "kkmgate.key"
	DefaultMinVersion    = "1.2"
	DefaultSecurityLevel = 2

	DefaultCleanupThreshold = 200
	DefaultIdempotencyTTL   = 10 * time.Minute
	DefaultStaticTTL        = time.Hour

	DefaultStaticRoot  = "static"
	DefaultStaticIndex = "index.html"

	DefaultDriver  = "emulator"
	DefaultDataDir = "data"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultServiceName = "kkmgate"
)

// Default returns the default gateway configuration.
func Default() *GatewayConfig {
	return &GatewayConfig{
		Server: ServerSection{
			Port:              DefaultPort,
			ConcurrencyLimit:  DefaultConcurrencyLimit,
			DelayedCloseLimit: DefaultDelayedCloseLimit,
			DelayedCloseGrace: DefaultDelayedCloseGrace,
			RequestTimeout:    DefaultRequestTimeout,
			ControlTimeout:    DefaultControlTimeout,
			ShutdownGrace:     DefaultShutdownGrace,
		},
		TLS: TLSSection{
			CertFile:      DefaultCertFile,
			KeyFile:       DefaultKeyFile,
			MinVersion:    DefaultMinVersion,
			SecurityLevel: DefaultSecurityLevel,
		},
		Security: SecuritySection{
			LoopbackExempt: true,
		},
		Cache: CacheSection{
			CleanupThreshold: DefaultCleanupThreshold,
			IdempotencyTTL:   DefaultIdempotencyTTL,
			StaticTTL:        DefaultStaticTTL,
		},
		Static: StaticSection{
			Root:  DefaultStaticRoot,
			Index: DefaultStaticIndex,
		},
		Device: DeviceSection{
			Driver:  DefaultDriver,
			DataDir: DefaultDataDir,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Service: ServiceSection{
			Name:        DefaultServiceName,
			DisplayName: "KKM Gateway",
			Description: "HTTPS gateway for fiscal registers",
		},
	}
}
