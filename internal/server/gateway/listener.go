package gateway

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"time"

	"github.com/yndnr/kkmgate/internal/infra/tlsroots"
	"github.com/yndnr/kkmgate/internal/telemetry/metric"
)

// Accept error backoff, as in net/http.
const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// listen loads the TLS material and binds the port. The returned listener
// yields raw TCP connections; the handshake happens per connection.
func (s *Server) listen() (net.Listener, error) {
	tlsConf, err := tlsroots.ServerConfig(s.cfg.TLS, s.certs)
	if err != nil {
		return nil, fmt.Errorf("load tls material: %w", err)
	}
	s.mu.Lock()
	s.tlsConf = tlsConf
	s.mu.Unlock()

	network := "tcp"
	if s.cfg.IPv4Only {
		network = "tcp4"
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen(network, addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s %s: %w", network, addr, err)
	}
	return ln, nil
}

// acceptLoop accepts until the listener is closed or the server leaves
// Running. Accept errors are logged and retried with backoff.
func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) {
	var backoff time.Duration
	for {
		c, err := ln.Accept()
		if err != nil {
			if s.State() != StateRunning || errors.Is(err, net.ErrClosed) {
				return
			}
			if backoff == 0 {
				backoff = minAcceptBackoff
			} else {
				backoff = min(2*backoff, maxAcceptBackoff)
			}
			s.log.Warn("accept failed", "error", err, "retry_in", backoff)
			t := time.NewTimer(backoff)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return
			}
			continue
		}
		backoff = 0
		s.admit(ctx, c)
	}
}

// admit applies admission control to c and, if it passes, serves it on a
// new goroutine holding a permit.
func (s *Server) admit(ctx context.Context, c net.Conn) {
	remote := remoteAddr(c)

	if s.State() != StateRunning {
		s.metrics.ConnectionsRejected.WithLabelValues(metric.ReasonShutdown).Inc()
		_ = c.Close()
		return
	}
	if s.limiter != nil && !s.limiter.Allow(remote) {
		s.metrics.ConnectionsRejected.WithLabelValues(metric.ReasonRateLimit).Inc()
		s.log.Debug("connection rate limited", "remote", remote.String())
		_ = c.Close()
		return
	}
	if s.counter.Value() >= s.cfg.ConcurrencyLimit {
		s.metrics.ConnectionsRejected.WithLabelValues(metric.ReasonConcurrency).Inc()
		s.reject(ctx, c, remote)
		return
	}

	permit := s.counter.Acquire()
	s.metrics.ConnectionsAccepted.Inc()
	s.conns.Add(1)
	go func() {
		defer s.conns.Done()
		s.serve(ctx, c, permit, remote)
	}()
}

// reject closes a connection refused for concurrency. While fewer than
// DelayedCloseLimit closes are pending the close is delayed by
// DelayedCloseGrace, so clients see an orderly close rather than a burst of
// resets.
func (s *Server) reject(ctx context.Context, c net.Conn, remote netip.Addr) {
	if s.cfg.DelayedCloseGrace <= 0 || int(s.delayed.Load()) >= s.cfg.DelayedCloseLimit {
		s.log.Warn("concurrency limit reached, connection closed", "remote", remote.String(), "inflight", s.counter.Value())
		_ = c.Close()
		return
	}

	s.delayed.Add(1)
	s.log.Warn("concurrency limit reached, delaying close", "remote", remote.String(), "inflight", s.counter.Value())
	s.conns.Add(1)
	go func() {
		defer s.conns.Done()
		defer s.delayed.Add(-1)
		t := time.NewTimer(s.cfg.DelayedCloseGrace)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
		}
		_ = c.Close()
	}()
}

func remoteAddr(c net.Conn) netip.Addr {
	if ta, ok := c.RemoteAddr().(*net.TCPAddr); ok {
		return ta.AddrPort().Addr().Unmap()
	}
	ap, err := netip.ParseAddrPort(c.RemoteAddr().String())
	if err != nil {
		return netip.Addr{}
	}
	return ap.Addr().Unmap()
}

func (s *Server) tlsConfig() *tls.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tlsConf
}
