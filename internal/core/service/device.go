package service

import (
	"context"
	"errors"

	"github.com/yndnr/kkmgate/internal/core/domain"
	"github.com/yndnr/kkmgate/internal/telemetry/logger"
	"github.com/yndnr/kkmgate/pkg/cmap"
)

// DeviceLookup resolves serial numbers to connection parameters.
type DeviceLookup interface {
	Get(serial string) (domain.Device, bool)
	List() []domain.Device
}

// DeviceService executes operations on registered devices, one at a time
// per device.
type DeviceService struct {
	lookup DeviceLookup
	driver Driver
	busy   *cmap.Map[string]
	logger logger.Logger
}

// NewDeviceService creates a DeviceService.
func NewDeviceService(lookup DeviceLookup, driver Driver, log logger.Logger) *DeviceService {
	if log == nil {
		log = logger.Default()
	}
	return &DeviceService{
		lookup: lookup,
		driver: driver,
		busy:   cmap.New[string](),
		logger: log.With("driver", driver.Name()),
	}
}

// Execute runs op on the device with the given serial.
//
// It fails with ErrUnknownOperation for unsupported names, ErrDeviceNotFound
// for unregistered serials, ErrDeviceBusy while another operation on the
// same device is running and ErrDeviceTimeout when ctx expires.
func (s *DeviceService) Execute(ctx context.Context, serial, op string, args []byte) (any, error) {
	if !KnownOperation(op) {
		return nil, domain.ErrUnknownOperation.WithDetail("%q", op)
	}
	dev, ok := s.lookup.Get(serial)
	if !ok {
		return nil, domain.ErrDeviceNotFound.WithDetail("serial %s", serial)
	}

	key := dev.Key()
	if !s.busy.SetIfAbsent(key, op) {
		running, _ := s.busy.Get(key)
		return nil, domain.ErrDeviceBusy.WithDetail("%s in progress", running)
	}
	defer s.busy.Delete(key)

	if dev.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, dev.Timeout)
		defer cancel()
	}

	log := logger.L(ctx)
	log.Debug("device operation started", "serial", dev.Serial, "op", op)

	result, err := s.driver.Execute(ctx, dev, op, args)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			err = domain.ErrDeviceTimeout.WithCause(err)
		}
		log.Warn("device operation failed", "serial", dev.Serial, "op", op, "error", err)
		return nil, err
	}

	log.Info("device operation completed", "serial", dev.Serial, "op", op)
	return result, nil
}

// Status returns the current state of a device.
func (s *DeviceService) Status(ctx context.Context, serial string) (any, error) {
	return s.Execute(ctx, serial, OpStatus, nil)
}

// Devices lists the registered devices.
func (s *DeviceService) Devices() []domain.Device {
	return s.lookup.List()
}

// Busy reports whether an operation is running on serial.
func (s *DeviceService) Busy(serial string) bool {
	return s.busy.Has(domain.SerialKey(serial))
}
