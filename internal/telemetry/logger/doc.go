// Package logger provides structured logging for kkmgate.
//
// The Logger interface is the leveled sink every component writes to. It is
// backed by log/slog:
//
//   - logger.go: construction, level control, package-level helpers
//   - context.go: correlation id propagation through context.Context
//   - redact.go: masking of secret-looking attributes
//
// When the gateway runs as a Windows service there is no console, so the
// output can be redirected to an append-only log file.
package logger
