package handler

import (
	"bytes"
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/kkmgate/internal/core/domain"
	"github.com/yndnr/kkmgate/internal/telemetry/metric"
)

// Metrics exposes the Prometheus registry in text format.
type Metrics struct {
	gatherer prometheus.Gatherer
}

// NewMetrics creates the metrics handler.
func NewMetrics(g prometheus.Gatherer) *Metrics {
	return &Metrics{gatherer: g}
}

func (h *Metrics) Name() string   { return "metrics" }
func (h *Metrics) Blocking() bool { return false }

func (h *Metrics) Handle(_ context.Context, req *domain.Request) error {
	if err := requireMethod(req, domain.MethodGet); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := metric.WriteText(&buf, h.gatherer); err != nil {
		return domain.ErrInternal.WithCause(err)
	}
	req.Response.SetPayload(domain.NewSolid(buf.String(), metric.TextContentType))
	return nil
}
