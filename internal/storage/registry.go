package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"

	"github.com/yndnr/kkmgate/internal/core/domain"
	"github.com/yndnr/kkmgate/internal/telemetry/logger"
	"github.com/yndnr/kkmgate/pkg/cmap"
)

const devicePrefix = "device/"

// ErrInvalidDevice wraps validation failures of Put.
var ErrInvalidDevice = errors.New("invalid device parameters")

// Registry maps device serial numbers to connection parameters.
//
// Reads are served from memory. Writes go to the KV engine first and only
// then to the map, so the map never holds a device that failed to persist.
type Registry struct {
	devices  *cmap.Map[domain.Device]
	kv       KVEngine
	validate *validator.Validate
	logger   logger.Logger
	now      func() time.Time
}

// OpenRegistry loads every device stored in kv.
func OpenRegistry(ctx context.Context, kv KVEngine, log logger.Logger) (*Registry, error) {
	if log == nil {
		log = logger.Default()
	}
	r := &Registry{
		devices:  cmap.New[domain.Device](),
		kv:       kv,
		validate: validator.New(),
		logger:   log,
		now:      time.Now,
	}

	var bad int
	err := kv.Scan(ctx, []byte(devicePrefix), func(key, value []byte) bool {
		var d domain.Device
		if err := json.Unmarshal(value, &d); err != nil {
			bad++
			log.Warn("skipping unreadable device record", "key", string(key), "error", err)
			return true
		}
		r.devices.Set(d.Key(), d)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}

	log.Info("device registry loaded", "devices", r.devices.Len(), "skipped", bad)
	return r, nil
}

// Get returns the parameters for serial, matched case-insensitively.
func (r *Registry) Get(serial string) (domain.Device, bool) {
	return r.devices.Get(domain.SerialKey(serial))
}

// List returns all devices ordered by serial.
func (r *Registry) List() []domain.Device {
	out := make([]domain.Device, 0, r.devices.Len())
	r.devices.Range(func(_ string, d domain.Device) bool {
		out = append(out, d)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	return r.devices.Len()
}

// Put validates and stores d, replacing any previous entry for its serial.
func (r *Registry) Put(ctx context.Context, d domain.Device) (domain.Device, error) {
	if err := r.validate.Struct(d); err != nil {
		return domain.Device{}, fmt.Errorf("%w: %v", ErrInvalidDevice, err)
	}
	d.UpdatedAt = r.now().UTC()

	data, err := json.Marshal(d)
	if err != nil {
		return domain.Device{}, fmt.Errorf("encode device: %w", err)
	}
	if err := r.kv.Set(ctx, []byte(devicePrefix+d.Key()), data); err != nil {
		return domain.Device{}, fmt.Errorf("persist device %s: %w", d.Serial, err)
	}
	r.devices.Set(d.Key(), d)

	r.logger.Info("device registered", "serial", d.Serial, "port", d.Port)
	return d, nil
}

// Remove deletes serial and reports whether it was registered.
func (r *Registry) Remove(ctx context.Context, serial string) (bool, error) {
	key := domain.SerialKey(serial)
	if !r.devices.Has(key) {
		return false, nil
	}
	if err := r.kv.Delete(ctx, []byte(devicePrefix+key)); err != nil {
		return false, fmt.Errorf("delete device %s: %w", serial, err)
	}
	removed := r.devices.Delete(key)
	if removed {
		r.logger.Info("device removed", "serial", serial)
	}
	return removed, nil
}
