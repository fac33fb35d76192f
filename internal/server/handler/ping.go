package handler

import (
	"context"
	"time"

	"github.com/yndnr/kkmgate/internal/core/domain"
	"github.com/yndnr/kkmgate/internal/infra/buildinfo"
)

// Ping answers liveness probes.
type Ping struct {
	started time.Time
	now     func() time.Time
}

// NewPing creates a Ping handler.
func NewPing() *Ping {
	return &Ping{started: time.Now(), now: time.Now}
}

type pong struct {
	Version string    `json:"version"`
	Uptime  string    `json:"uptime"`
	Time    time.Time `json:"time"`
}

func (h *Ping) Name() string   { return "ping" }
func (h *Ping) Blocking() bool { return false }

func (h *Ping) Handle(_ context.Context, req *domain.Request) error {
	now := h.now()
	return writeJSON(req, pong{
		Version: buildinfo.Version,
		Uptime:  now.Sub(h.started).Round(time.Second).String(),
		Time:    now.UTC(),
	})
}
