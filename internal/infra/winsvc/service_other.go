//go:build !windows

package winsvc

import (
	"context"

	"github.com/yndnr/kkmgate/internal/telemetry/logger"
)

// IsService always reports false outside Windows.
func IsService() (bool, error) {
	return false, nil
}

// Run is not supported outside Windows.
func Run(string, Program, logger.Logger) error {
	return ErrUnsupported
}

// Install is not supported outside Windows.
func Install(Config) error {
	return ErrUnsupported
}

// Uninstall is not supported outside Windows.
func Uninstall(string) error {
	return ErrUnsupported
}

// Start is not supported outside Windows.
func Start(string) error {
	return ErrUnsupported
}

// Stop is not supported outside Windows.
func Stop(context.Context, string) error {
	return ErrUnsupported
}
