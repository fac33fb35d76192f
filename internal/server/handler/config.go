package handler

import (
	"context"
	"errors"

	json "github.com/goccy/go-json"

	"github.com/yndnr/kkmgate/internal/core/domain"
	"github.com/yndnr/kkmgate/internal/server/config"
	"github.com/yndnr/kkmgate/internal/storage"
	"github.com/yndnr/kkmgate/internal/telemetry/logger"
)

// DeviceStore is the persistent device registry.
type DeviceStore interface {
	Get(serial string) (domain.Device, bool)
	List() []domain.Device
	Put(ctx context.Context, d domain.Device) (domain.Device, error)
	Remove(ctx context.Context, serial string) (bool, error)
}

// Config serves the config area: the running configuration with secrets
// masked and the device registry.
type Config struct {
	snapshot *domain.JSON
	store    DeviceStore
}

// NewConfig creates the config handler. cfg is encoded once; the gateway
// reads its configuration only at startup.
func NewConfig(cfg *config.GatewayConfig, store DeviceStore) (*Config, error) {
	snap, err := domain.NewJSON(result{Success: true, Data: config.Sanitize(cfg)})
	if err != nil {
		return nil, err
	}
	return &Config{snapshot: snap, store: store}, nil
}

func (h *Config) Name() string { return "config" }

// Blocking is true because registry writes go to disk.
func (h *Config) Blocking() bool { return true }

func (h *Config) Handle(ctx context.Context, req *domain.Request) error {
	switch {
	case len(req.Hint) == 2:
		if err := requireMethod(req, domain.MethodGet); err != nil {
			return err
		}
		req.Response.SetPayload(h.snapshot)
		return nil

	case req.HintAt(2) != "devices":
		return domain.ErrNotFound.WithDetail("%s", req.Path)

	case len(req.Hint) == 3:
		if err := requireMethod(req, domain.MethodGet); err != nil {
			return err
		}
		return writeJSON(req, h.store.List())

	case len(req.Hint) == 4:
		serial := rawSegment(req, 3)
		if req.Method == domain.MethodGet {
			d, ok := h.store.Get(serial)
			if !ok {
				return domain.ErrDeviceNotFound.WithDetail("serial %s", serial)
			}
			return writeJSON(req, d)
		}
		return h.put(ctx, req, serial)

	case len(req.Hint) == 5 && req.HintAt(4) == "remove":
		if err := requireMethod(req, domain.MethodPost); err != nil {
			return err
		}
		return h.remove(ctx, req, rawSegment(req, 3))
	}
	return domain.ErrNotFound.WithDetail("%s", req.Path)
}

func (h *Config) put(ctx context.Context, req *domain.Request, serial string) error {
	var d domain.Device
	if err := json.Unmarshal(req.Body, &d); err != nil {
		return domain.ErrInvalidBody.WithCause(err)
	}
	if d.Serial == "" {
		d.Serial = serial
	} else if d.Key() != domain.SerialKey(serial) {
		return domain.ErrInvalidBody.WithDetail("serial %q does not match path", d.Serial)
	}

	saved, err := h.store.Put(ctx, d)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidDevice) {
			return domain.ErrInvalidBody.WithCause(err)
		}
		return err
	}
	logger.L(ctx).Info("device registered", "serial", saved.Serial, "port", saved.Port)
	return writeJSON(req, saved)
}

func (h *Config) remove(ctx context.Context, req *domain.Request, serial string) error {
	ok, err := h.store.Remove(ctx, serial)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrDeviceNotFound.WithDetail("serial %s", serial)
	}
	logger.L(ctx).Info("device removed", "serial", serial)
	req.Response.SetMessage("device removed")
	return nil
}
