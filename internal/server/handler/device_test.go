package handler

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/kkmgate/internal/core/domain"
	"github.com/yndnr/kkmgate/internal/core/service"
	"github.com/yndnr/kkmgate/internal/storage/respcache"
	"github.com/yndnr/kkmgate/internal/telemetry/metric"
)

// countingExecutor records how often the device was really called.
type countingExecutor struct {
	calls atomic.Int32
	err   error
}

func (e *countingExecutor) Execute(_ context.Context, serial, op string, args []byte) (any, error) {
	n := e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	return map[string]any{"serial": serial, "op": op, "call": n, "args": string(args)}, nil
}

func (e *countingExecutor) Status(ctx context.Context, serial string) (any, error) {
	return e.Execute(ctx, serial, service.OpStatus, nil)
}

func (e *countingExecutor) Devices() []domain.Device {
	return []domain.Device{{Serial: "SN123", Port: "COM1"}}
}

func newDeviceHandler(exec DeviceExecutor) (*Device, *metric.Registry) {
	m := metric.NewBareRegistry()
	return NewDevice(exec, respcache.New(), time.Minute, m), m
}

func TestDevice_IdempotentReplay(t *testing.T) {
	exec := &countingExecutor{}
	h, m := newDeviceHandler(exec)
	hdr := map[string]string{"X-Idempotency-Key": "abc"}
	body := `{"amount": 10.0}`

	first := newRequest("POST", "/kkm/cash-in/SN123", body, hdr)
	out1 := serve(t, h, first)
	second := newRequest("POST", "/kkm/cash-in/SN123", body, hdr)
	out2 := serve(t, h, second)

	if got := exec.calls.Load(); got != 1 {
		t.Fatalf("device called %d times, want 1", got)
	}
	if out1 != out2 {
		t.Errorf("replay differs:\n%s\n---\n%s", out1, out2)
	}
	if first.Response.Payload() != second.Response.Payload() {
		t.Error("replay did not share the cached payload")
	}
	if !strings.Contains(jsonBody(t, first), `"serial":"SN123"`) {
		t.Errorf("serial case not preserved: %s", jsonBody(t, first))
	}
	if got := testutil.ToFloat64(m.CacheLookups.WithLabelValues("idempotency", metric.CacheHit)); got != 1 {
		t.Errorf("cache hits = %v", got)
	}
	if got := testutil.ToFloat64(m.DeviceOperations.WithLabelValues(service.OpCashIn, "ok")); got != 1 {
		t.Errorf("device operations = %v", got)
	}
}

func TestDevice_IdempotencyScope(t *testing.T) {
	exec := &countingExecutor{}
	h, _ := newDeviceHandler(exec)

	serve(t, h, newRequest("POST", "/kkm/cash-in/SN123", `{"amount":1}`, map[string]string{"X-Idempotency-Key": "k1"}))

	// Same key, different body.
	req := newRequest("POST", "/kkm/cash-in/SN123", `{"amount":2}`, map[string]string{"X-Idempotency-Key": "k1"})
	serve(t, h, req)
	if req.Response.Status() != domain.StatusUnprocessableEntity {
		t.Errorf("conflict status = %v, want 422", req.Response.Status())
	}

	// Different key runs the device again.
	serve(t, h, newRequest("POST", "/kkm/cash-in/SN123", `{"amount":1}`, map[string]string{"X-Idempotency-Key": "k2"}))
	if got := exec.calls.Load(); got != 2 {
		t.Errorf("device calls = %d, want 2", got)
	}

	// Missing key.
	req = newRequest("POST", "/kkm/cash-in/SN123", `{"amount":1}`, nil)
	serve(t, h, req)
	if req.Response.Status() != domain.StatusBadRequest {
		t.Errorf("missing key status = %v, want 400", req.Response.Status())
	}
	if msg, _ := req.Response.Message(); msg != domain.ErrIdempotencyKeyMissing.Message {
		t.Errorf("missing key message = %q", msg)
	}
}

func TestDevice_FailuresAreNotCached(t *testing.T) {
	exec := &countingExecutor{err: domain.ErrDeviceBusy}
	h, m := newDeviceHandler(exec)
	hdr := map[string]string{"X-Idempotency-Key": "abc"}

	for i := 0; i < 2; i++ {
		req := newRequest("POST", "/kkm/sale/SN123", `{"amount":5}`, hdr)
		serve(t, h, req)
		if req.Response.Status() != domain.StatusConflict {
			t.Fatalf("status = %v, want 409", req.Response.Status())
		}
	}
	if got := exec.calls.Load(); got != 2 {
		t.Errorf("device calls = %d, want 2", got)
	}
	if got := testutil.ToFloat64(m.DeviceOperations.WithLabelValues(service.OpSale, "Conflict")); got != 2 {
		t.Errorf("failed operations = %v", got)
	}
}

func TestDevice_Get(t *testing.T) {
	exec := &countingExecutor{}
	h, _ := newDeviceHandler(exec)

	req := newRequest("GET", "/kkm/status/ABC123", "", nil)
	serve(t, h, req)
	if req.Response.Status() != domain.StatusOK || !strings.Contains(jsonBody(t, req), `"serial":"ABC123"`) {
		t.Errorf("status response = %v %s", req.Response.Status(), jsonBody(t, req))
	}

	req = newRequest("GET", "/kkm/list", "", nil)
	serve(t, h, req)
	if !strings.Contains(jsonBody(t, req), `"SN123"`) {
		t.Errorf("list = %s", jsonBody(t, req))
	}

	req = newRequest("GET", "/kkm/cash-in/ABC123", "", nil)
	serve(t, h, req)
	if req.Response.Status() != domain.StatusMethodNotAllowed {
		t.Errorf("GET cash-in status = %v", req.Response.Status())
	}

	req = newRequest("GET", "/kkm", "", nil)
	serve(t, h, req)
	if req.Response.Status() != domain.StatusNotFound {
		t.Errorf("GET /kkm status = %v", req.Response.Status())
	}
}

func TestDevice_WithService(t *testing.T) {
	lookup := staticDevices{"sn123": {Serial: "SN123", Port: "COM1"}}
	svc := service.NewDeviceService(lookup, service.NewEmulator(0), nil)
	h, _ := newDeviceHandler(svc)
	hdr := func(k string) map[string]string { return map[string]string{"X-Idempotency-Key": k} }

	req := newRequest("POST", "/kkm/open-shift/SN123", "", hdr("1"))
	serve(t, h, req)
	if req.Response.Status() != domain.StatusOK {
		t.Fatalf("open-shift = %v", req.Response.Status())
	}

	req = newRequest("POST", "/kkm/cash-out/SN123", `{"amount":50}`, hdr("2"))
	serve(t, h, req)
	if req.Response.Status() != domain.StatusUnprocessableEntity {
		t.Errorf("overdraw status = %v, want 422", req.Response.Status())
	}

	req = newRequest("POST", "/kkm/reboot/SN123", "", hdr("3"))
	serve(t, h, req)
	if req.Response.Status() != domain.StatusNotFound {
		t.Errorf("unknown op status = %v, want 404", req.Response.Status())
	}
	if !errors.Is(domain.ErrUnknownOperation, domain.ErrUnknownOperation.WithDetail("x")) {
		t.Error("sentinel identity lost")
	}
}

type staticDevices map[string]domain.Device

func (s staticDevices) Get(serial string) (domain.Device, bool) {
	d, ok := s[domain.SerialKey(serial)]
	return d, ok
}

func (s staticDevices) List() []domain.Device {
	out := make([]domain.Device, 0, len(s))
	for _, d := range s {
		out = append(out, d)
	}
	return out
}
