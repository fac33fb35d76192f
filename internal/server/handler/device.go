package handler

import (
	"context"
	"time"

	"github.com/spaolacci/murmur3"

	"github.com/yndnr/kkmgate/internal/core/domain"
	"github.com/yndnr/kkmgate/internal/core/service"
	"github.com/yndnr/kkmgate/internal/storage/respcache"
	"github.com/yndnr/kkmgate/internal/telemetry/logger"
	"github.com/yndnr/kkmgate/internal/telemetry/metric"
)

// IdempotencyHeader carries the client token that makes a POST replayable.
const IdempotencyHeader = "x-idempotency-key"

const cacheKindIdempotency = "idempotency"

// DeviceExecutor is the device service as seen by the kkm area.
type DeviceExecutor interface {
	Execute(ctx context.Context, serial, op string, args []byte) (any, error)
	Status(ctx context.Context, serial string) (any, error)
	Devices() []domain.Device
}

// Device serves the kkm area.
//
// Successful POST results are cached under the remote address and the
// idempotency key. A retry with the same key and body replays the cached
// response without touching the device; the same key with a different body
// is rejected.
type Device struct {
	svc     DeviceExecutor
	cache   *respcache.Cache
	ttl     time.Duration
	metrics *metric.Registry
	now     func() time.Time
}

// NewDevice creates the kkm handler. metrics may be nil.
func NewDevice(svc DeviceExecutor, cache *respcache.Cache, ttl time.Duration, metrics *metric.Registry) *Device {
	return &Device{
		svc:     svc,
		cache:   cache,
		ttl:     ttl,
		metrics: metrics,
		now:     time.Now,
	}
}

func (h *Device) Name() string   { return "kkm" }
func (h *Device) Blocking() bool { return true }

func (h *Device) Handle(ctx context.Context, req *domain.Request) error {
	op := req.HintAt(2)
	switch {
	case op == "list" && len(req.Hint) == 3:
		if err := requireMethod(req, domain.MethodGet); err != nil {
			return err
		}
		return writeJSON(req, h.svc.Devices())
	case op == "" || len(req.Hint) != 4:
		return domain.ErrNotFound.WithDetail("%s", req.Path)
	}

	serial := rawSegment(req, 3)
	if req.Method == domain.MethodGet {
		if op != service.OpStatus {
			return domain.ErrMethodNotAllowed.WithDetail("%s requires POST", op)
		}
		res, err := h.svc.Status(ctx, serial)
		h.countOp(op, err)
		if err != nil {
			return err
		}
		return writeJSON(req, res)
	}
	return h.post(ctx, req, op, serial)
}

func (h *Device) post(ctx context.Context, req *domain.Request, op, serial string) error {
	key := req.HeaderValue(IdempotencyHeader)
	if key == "" {
		return domain.ErrIdempotencyKeyMissing
	}
	ck := respcache.IdempotencyKey(req.Remote.String(), key)
	fp := murmur3.Sum64(req.Body)

	h.cache.Maintain()
	if e, ok := h.cache.Load(ck); ok {
		if e.Fingerprint != fp {
			h.countLookup(metric.CacheConflict)
			return domain.ErrIdempotencyConflict
		}
		h.countLookup(metric.CacheHit)
		logger.L(ctx).Debug("idempotent replay", "serial", serial, "op", op)
		req.Response.SetStatus(e.Status)
		req.Response.SetPayload(e.Payload)
		return nil
	}
	h.countLookup(metric.CacheMiss)

	res, err := h.svc.Execute(ctx, serial, op, req.Body)
	h.countOp(op, err)
	if err != nil {
		return err
	}
	if err := writeJSON(req, res); err != nil {
		return err
	}
	h.cache.Store(ck, h.now().Add(h.ttl), req.Response.Status(), req.Response.Payload(), fp)
	return nil
}

func (h *Device) countLookup(result string) {
	if h.metrics != nil {
		h.metrics.CacheLookups.WithLabelValues(cacheKindIdempotency, result).Inc()
	}
}

func (h *Device) countOp(op string, err error) {
	if h.metrics == nil {
		return
	}
	if !service.KnownOperation(op) {
		op = "unknown"
	}
	outcome := "ok"
	if err != nil {
		outcome = domain.StatusOf(err).Text()
	}
	h.metrics.DeviceOperations.WithLabelValues(op, outcome).Inc()
}
