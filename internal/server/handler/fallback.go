package handler

import (
	"context"

	"github.com/yndnr/kkmgate/internal/core/domain"
)

// Fallback serves unmatched areas: a bare "/" is redirected to the static
// index, everything else is 404.
type Fallback struct {
	index string
}

// NewFallback creates a Fallback redirecting to /static/<index>. An empty
// index disables the redirect.
func NewFallback(index string) *Fallback {
	return &Fallback{index: index}
}

func (h *Fallback) Name() string   { return "default" }
func (h *Fallback) Blocking() bool { return false }

func (h *Fallback) Handle(_ context.Context, req *domain.Request) error {
	if req.Method == domain.MethodGet && len(req.Hint) == 1 && h.index != "" {
		req.Response.SetPayload(domain.NewRedirect("/static/"+h.index, false))
		return nil
	}
	return domain.ErrNotFound.WithDetail("%s", req.Path)
}
