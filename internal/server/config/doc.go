// Package config provides the gateway configuration snapshot.
//
// This package defines the configuration structure and its validation:
//
//   - spec.go: GatewayConfig struct definition
//   - default.go: Default configuration values
//   - verify.go: Struct and cross-field validation
//   - sanitize.go: Log sanitization (hide sensitive values)
//
// Configuration is loaded once at startup via internal/infra/confloader from
// a YAML or JSON file and KKMGATE_ environment variables.
package config
