package gateway

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"strconv"
	"syscall"
	"time"

	"github.com/valyala/bytebufferpool"

	"github.com/yndnr/kkmgate/internal/core/domain"
	"github.com/yndnr/kkmgate/internal/server/handler"
	"github.com/yndnr/kkmgate/internal/telemetry/logger"
)

const readBufferSize = 16 << 10

// areaNone labels metrics of requests that never reached a handler.
const areaNone = "none"

// exchange is the state of one connection.
type exchange struct {
	srv   *Server
	raw   net.Conn
	tc    *tls.Conn
	req   *domain.Request
	log   logger.Logger
	area  string
	start time.Time

	handshaken bool
	written    bool
	closed     bool
	failedOp   string
}

// serve owns c until it is closed. It never panics.
func (s *Server) serve(base context.Context, c net.Conn, permit *Permit, remote netip.Addr) {
	defer permit.Release()

	req := domain.NewRequest(s.ids.Next(), remote)
	req.Response.Reset()

	ctx, cancel := context.WithTimeout(base, s.cfg.RequestTimeout)
	defer cancel()
	ctx = logger.WithRequestID(logger.WithLogger(ctx, s.log), req.ID)

	x := &exchange{
		srv:   s,
		raw:   c,
		tc:    tls.Server(c, s.tlsConfig()),
		req:   req,
		log:   logger.L(ctx),
		area:  areaNone,
		start: time.Now(),
	}

	// Cancellation aborts any blocked handshake, read or write.
	stop := context.AfterFunc(ctx, func() {
		_ = c.SetDeadline(time.Now())
	})
	defer func() {
		stop()
		x.teardown()
		x.report(ctx)
	}()

	defer func() {
		if r := recover(); r != nil {
			x.log.Error("connection panic", "panic", fmt.Sprint(r))
			req.FailWith(domain.ErrInternal)
			if x.handshaken && !x.written && ctx.Err() == nil {
				x.write(ctx)
			}
		}
	}()

	if err := x.tc.HandshakeContext(ctx); err != nil {
		s.metrics.HandshakeFailures.Inc()
		x.transportError(ctx, "handshake", err)
		return
	}
	x.handshaken = true

	if !x.read(ctx) {
		return
	}

	if req.Response.Status() == domain.StatusOK {
		x.log.Info("request", "method", req.Method.String(), "path", req.Path, "remote", remote.String())
		if err := authenticate(req, s.cfg.Secret, s.cfg.LoopbackExempt); err != nil {
			x.log.Error("authentication failed", "remote", remote.String())
			req.FailWith(err)
		}
	}
	if req.Response.Status() == domain.StatusOK {
		h := s.router.Route(req)
		x.area = h.Name()
		if !x.dispatch(ctx, h) {
			return
		}
	}

	if ctx.Err() != nil {
		return
	}
	x.write(ctx)
}

// read feeds the parser until the request is complete. It returns false if
// the connection failed or the deadline passed.
func (x *exchange) read(ctx context.Context) bool {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if cap(buf.B) < readBufferSize {
		buf.B = make([]byte, readBufferSize)
	}
	b := buf.B[:readBufferSize]

	p := NewParser(x.req, x.log)
	for !p.HeadersDone() || p.Expecting() > 0 {
		n, err := x.tc.Read(b)
		if n > 0 {
			p.Feed(b[:n])
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		x.transportError(ctx, "read", err)
		return false
	}
	p.Complete()
	return true
}

// dispatch runs h inline, or on its own goroutine when it blocks. It
// returns false if the deadline passed before the handler finished. A
// handler still running at the deadline keeps the connection's permit: the
// socket is closed at once but dispatch returns only after the handler does.
func (x *exchange) dispatch(ctx context.Context, h handler.RequestHandler) bool {
	if !h.Blocking() {
		x.invoke(ctx, h)
		return ctx.Err() == nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		x.invoke(ctx, h)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		x.teardown()
		<-done
		return false
	}
}

// invoke calls the handler and maps its error or panic onto the response.
func (x *exchange) invoke(ctx context.Context, h handler.RequestHandler) {
	defer func() {
		if r := recover(); r != nil {
			x.log.Error("handler panic", "handler", h.Name(), "panic", fmt.Sprint(r))
			if err, ok := r.(error); ok {
				x.req.Fail(domain.StatusInternalServerError, err.Error())
			} else {
				x.req.FailWith(domain.ErrInternal)
			}
		}
	}()
	if err := h.Handle(ctx, x.req); err != nil {
		if domain.StatusOf(err) >= domain.StatusInternalServerError {
			x.log.Error("handler failed", "handler", h.Name(), "error", err)
		} else {
			x.log.Debug("handler rejected request", "handler", h.Name(), "error", err)
		}
		x.req.FailWith(err)
	}
}

func (x *exchange) write(ctx context.Context) {
	out := bytebufferpool.Get()
	defer bytebufferpool.Put(out)

	x.written = true
	// Rendering into a buffer cannot fail.
	_, _ = x.req.Response.Render(out)
	if _, err := x.tc.Write(out.B); err != nil {
		x.transportError(ctx, "write", err)
	}
}

// teardown sends close_notify and closes the socket. Expected errors from
// clients that already went away are ignored.
func (x *exchange) teardown() {
	if x.closed {
		return
	}
	x.closed = true
	if x.handshaken {
		if err := x.tc.CloseWrite(); err != nil && !benign(err) {
			x.log.Warn("connection shutdown", "error", &domain.TransportError{ID: x.req.ID, Op: "shutdown", Err: err})
		}
	}
	if err := x.raw.Close(); err != nil && !benign(err) {
		x.log.Warn("connection close", "error", err)
	}
}

func (x *exchange) transportError(ctx context.Context, op string, err error) {
	x.failedOp = op
	if ctx.Err() != nil || benign(err) {
		x.log.Debug("connection ended", "op", op, "error", err)
		return
	}
	x.log.Error("transport error", "error", &domain.TransportError{ID: x.req.ID, Op: op, Err: err})
}

// report logs the outcome and records metrics. Requests that hit the
// deadline are only counted as timeouts.
func (x *exchange) report(ctx context.Context) {
	m := x.srv.metrics
	elapsed := time.Since(x.start)

	if err := ctx.Err(); err != nil && !x.written {
		if errors.Is(err, context.DeadlineExceeded) {
			m.Timeouts.Inc()
			x.log.Warn("request timed out", "elapsed", elapsed)
		} else {
			x.log.Warn("request cancelled", "elapsed", elapsed)
		}
		return
	}
	if x.failedOp != "" {
		x.log.Info("connection failed", "op", x.failedOp, "elapsed", elapsed)
		return
	}

	status := x.req.Response.Status()
	m.RequestsTotal.WithLabelValues(x.area, strconv.Itoa(int(status))).Inc()
	m.RequestDuration.WithLabelValues(x.area).Observe(elapsed.Seconds())
	if status.IsError() {
		x.log.Info("request failed", "status", int(status), "path", x.req.Path, "elapsed", elapsed)
		return
	}
	x.log.Info("request completed", "status", int(status), "path", x.req.Path, "elapsed", elapsed)
}

// benign reports errors that are expected when a client disconnects
// abruptly.
func benign(err error) bool {
	if err == nil {
		return true
	}
	switch {
	case errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ENOTCONN),
		errors.Is(err, syscall.EPIPE):
		return true
	}
	for _, e := range platformBenign {
		if errors.Is(err, e) {
			return true
		}
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
