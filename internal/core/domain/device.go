package domain

import (
	"strings"
	"time"
)

// Device holds the connection parameters of one fiscal register.
type Device struct {
	// Serial is the factory serial number as entered by the operator.
	Serial string `json:"serial" yaml:"serial" validate:"required,max=32,printascii,excludesall=/\\ "`

	// Port is the serial port ("COM3", "/dev/ttyUSB0") or "tcp://host:port".
	Port string `json:"port" yaml:"port" validate:"required,max=128"`

	// Baud is the line speed. Zero lets the driver pick.
	Baud int `json:"baud" yaml:"baud" validate:"oneof=0 4800 9600 19200 38400 57600 115200"`

	// Model is the driver-specific model name.
	Model string `json:"model,omitempty" yaml:"model,omitempty" validate:"max=64"`

	// Timeout bounds a single exchange with the device.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" validate:"min=0"`

	// UpdatedAt is set by the registry on every write.
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at" table:"wide"`
}

// Key returns the registry key for the device.
func (d Device) Key() string {
	return SerialKey(d.Serial)
}

// SerialKey normalizes a serial number for lookups. Routing hints are
// lower-cased, so serials are matched case-insensitively.
func SerialKey(serial string) string {
	return strings.ToLower(strings.TrimSpace(serial))
}
