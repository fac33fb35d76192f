package winsvc

import (
	"context"
	"errors"
	"time"
)

// ErrUnsupported is returned on platforms without a service control manager.
var ErrUnsupported = errors.New("winsvc: windows services are not supported on this platform")

// DefaultStopTimeout bounds how long Stop waits for the service to report
// that it has stopped.
const DefaultStopTimeout = 30 * time.Second

// Program is the workload hosted by the service.
type Program interface {
	// Start must return once the program is serving.
	Start(ctx context.Context) error

	// Stop must return once the program has released its resources.
	Stop(ctx context.Context) error
}

// Config describes a service registration.
type Config struct {
	Name        string
	DisplayName string
	Description string

	// Args are passed to the executable when the service starts.
	Args []string
}
