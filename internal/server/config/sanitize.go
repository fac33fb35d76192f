package config

import "strings"

// Sanitize returns a copy of the config with sensitive fields masked.
//
// This is used for logging and for show-config output.
func Sanitize(cfg *GatewayConfig) *GatewayConfig {
	sanitized := *cfg

	if sanitized.Security.Secret != "" {
		sanitized.Security.Secret = maskSecret(sanitized.Security.Secret)
	}
	if sanitized.TLS.KeyPassword != "" {
		sanitized.TLS.KeyPassword = maskSecret(sanitized.TLS.KeyPassword)
	}

	return &sanitized
}

// maskSecret masks a secret value for safe logging.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
