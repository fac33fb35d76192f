package handler

import (
	"context"
	"strings"

	"github.com/yndnr/kkmgate/internal/core/domain"
)

// RequestHandler serves one routing area.
//
// Handle fills req.Response. A returned error is mapped to a status by the
// caller. Handlers that report Blocking run on their own goroutine and may
// perform slow device or disk I/O.
type RequestHandler interface {
	Name() string
	Blocking() bool
	Handle(ctx context.Context, req *domain.Request) error
}

// Router maps the area segment of a request hint to a handler.
type Router struct {
	routes   map[string]RequestHandler
	fallback RequestHandler
}

// NewRouter creates a router that sends unmatched areas to fallback.
func NewRouter(fallback RequestHandler) *Router {
	return &Router{
		routes:   make(map[string]RequestHandler),
		fallback: fallback,
	}
}

// Register binds area to h. Areas are matched lower-case.
func (r *Router) Register(area string, h RequestHandler) {
	r.routes[strings.ToLower(area)] = h
}

// Route returns the handler for req. It never returns nil.
func (r *Router) Route(req *domain.Request) RequestHandler {
	if h, ok := r.routes[req.HintAt(1)]; ok {
		return h
	}
	return r.fallback
}

// Areas returns the registered area names.
func (r *Router) Areas() []string {
	out := make([]string, 0, len(r.routes))
	for a := range r.routes {
		out = append(out, a)
	}
	return out
}

// segments splits the request path like domain.Tokenize but keeps the case,
// so segments[i] lines up with req.Hint[i+1].
func segments(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == '\\' || r == ' '
	})
}

// rawSegment returns the i-th hint position of the path with its original
// case, or "".
func rawSegment(req *domain.Request, i int) string {
	segs := segments(req.Path)
	if i < 1 || i > len(segs) {
		return ""
	}
	return segs[i-1]
}

// writeJSON sets a {"success":true,"data":...} payload.
func writeJSON(req *domain.Request, data any) error {
	p, err := domain.NewJSON(result{Success: true, Data: data})
	if err != nil {
		return domain.ErrInternal.WithCause(err)
	}
	req.Response.SetPayload(p)
	return nil
}

type result struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

func requireMethod(req *domain.Request, m domain.Method) error {
	if req.Method != m {
		return domain.ErrMethodNotAllowed.WithDetail("%s %s", req.Verb, req.Path)
	}
	return nil
}
