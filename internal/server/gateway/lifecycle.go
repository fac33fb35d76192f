package gateway

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/kkmgate/internal/core/domain"
	"github.com/yndnr/kkmgate/internal/infra/shutdown"
	"github.com/yndnr/kkmgate/internal/infra/tlsroots"
	"github.com/yndnr/kkmgate/internal/server/config"
	"github.com/yndnr/kkmgate/internal/server/handler"
	"github.com/yndnr/kkmgate/internal/telemetry/logger"
	"github.com/yndnr/kkmgate/internal/telemetry/metric"
)

// State is a lifecycle state of the Server.
type State int32

const (
	StateInitial State = iota
	StateStarting
	StateRunning
	StateShutdown
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateShutdown:
		return "shutdown"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// ErrInvalidState is returned when Run or Stop is called in the wrong state.
var ErrInvalidState = errors.New("gateway: invalid state transition")

// Dispatcher selects the handler for a parsed request.
type Dispatcher interface {
	Route(req *domain.Request) handler.RequestHandler
}

// Config is the runtime configuration of a Server.
type Config struct {
	// Host is the address to bind. Empty means all interfaces.
	Host     string
	Port     int
	IPv4Only bool

	ConcurrencyLimit  int
	DelayedCloseLimit int
	DelayedCloseGrace time.Duration

	RequestTimeout time.Duration
	ControlTimeout time.Duration
	ShutdownGrace  time.Duration

	// RateLimit is connections per second per remote address; 0 disables.
	RateLimit float64
	RateBurst int

	Secret         string
	LoopbackExempt bool

	TLS tlsroots.Options
}

// ConfigFrom extracts the gateway settings from the application config.
func ConfigFrom(cfg *config.GatewayConfig) Config {
	return Config{
		Port:              cfg.Server.Port,
		IPv4Only:          cfg.Server.IPv4Only,
		ConcurrencyLimit:  cfg.Server.ConcurrencyLimit,
		DelayedCloseLimit: cfg.Server.DelayedCloseLimit,
		DelayedCloseGrace: cfg.Server.DelayedCloseGrace,
		RequestTimeout:    cfg.Server.RequestTimeout,
		ControlTimeout:    cfg.Server.ControlTimeout,
		ShutdownGrace:     cfg.Server.ShutdownGrace,
		RateLimit:         cfg.Server.RateLimit,
		RateBurst:         cfg.Server.RateBurst,
		Secret:            cfg.Security.Secret,
		LoopbackExempt:    cfg.Security.LoopbackExempt,
		TLS: tlsroots.Options{
			CertFile:      cfg.TLS.CertFile,
			KeyFile:       cfg.TLS.KeyFile,
			KeyPassword:   cfg.TLS.KeyPassword,
			MinVersion:    cfg.TLS.MinVersion,
			Legacy:        cfg.TLS.Legacy,
			SecurityLevel: cfg.TLS.SecurityLevel,
		},
	}
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithMetrics sets the metrics registry.
func WithMetrics(m *metric.Registry) Option {
	return func(s *Server) { s.metrics = m }
}

// WithCertWatcher serves the certificate through w so it can be replaced
// while running.
func WithCertWatcher(w *tlsroots.Watcher) Option {
	return func(s *Server) { s.certs = w }
}

// Server is the gateway. Create it with New, run it with Run or Start and
// stop it with Stop. A Server runs once.
type Server struct {
	cfg     Config
	router  Dispatcher
	log     logger.Logger
	metrics *metric.Registry
	certs   *tlsroots.Watcher

	counter Counter
	ids     *domain.IDSource
	limiter *ipLimiter
	delayed atomic.Int32

	state atomic.Int32

	mu      sync.Mutex
	ln      net.Listener
	tlsConf *tls.Config
	hitman  *shutdown.Hitman
	runErr  error

	conns     sync.WaitGroup
	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
}

// New creates a Server that routes requests through router.
func New(cfg Config, router Dispatcher, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		router: router,
		ids:    domain.NewIDSource(),
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Default()
	}
	if s.metrics == nil {
		s.metrics = metric.NewBareRegistry()
	}
	if cfg.RateLimit > 0 {
		s.limiter = newIPLimiter(cfg.RateLimit, cfg.RateBurst)
	}
	s.counter.onMove = func(delta int) { s.metrics.Inflight.Add(float64(delta)) }
	return s
}

// State returns the current lifecycle state.
func (s *Server) State() State {
	return State(s.state.Load())
}

// Inflight returns the number of connections holding a permit.
func (s *Server) Inflight() int {
	return s.counter.Value()
}

// Done is closed when Run has returned.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Addr returns the bound listener address, or nil before Running.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Run binds the listener and serves until Stop completes or ctx is
// cancelled. Cancelling ctx starts a graceful Stop. Run returns the error
// that prevented startup, or nil after a clean shutdown.
func (s *Server) Run(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateInitial), int32(StateStarting)) {
		return ErrInvalidState
	}
	defer close(s.done)

	ln, err := s.listen()
	if err != nil {
		s.state.Store(int32(StateStopping))
		s.log.Error("gateway failed to start", "error", err)
		s.state.Store(int32(StateStopped))
		s.signalReady(err)
		return err
	}

	base, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()

	s.mu.Lock()
	s.ln = ln
	s.hitman = shutdown.NewHitman(cancel)
	s.mu.Unlock()

	s.state.Store(int32(StateRunning))
	s.log.Info("gateway running", "addr", ln.Addr().String(), "concurrency_limit", s.cfg.ConcurrencyLimit)
	s.signalReady(nil)

	go func() {
		select {
		case <-ctx.Done():
			if err := s.Stop(context.Background()); err != nil && !errors.Is(err, ErrInvalidState) {
				s.log.Error("gateway stop failed", "error", err)
			}
		case <-base.Done():
		}
	}()

	s.acceptLoop(base, ln)

	// The listener may have failed on its own.
	if s.State() == StateRunning {
		go func() { _ = s.Stop(context.Background()) }()
	}

	<-s.hitman.Done()
	s.conns.Wait()
	s.state.Store(int32(StateStopped))
	s.log.Info("gateway stopped")
	return nil
}

// Start runs the server on its own goroutine and returns once it is
// Running or has failed to start. ctx governs the server's lifetime, as in
// Run.
func (s *Server) Start(ctx context.Context) error {
	if s.State() != StateInitial {
		return ErrInvalidState
	}
	go func() {
		// The error is reported through signalReady.
		_ = s.Run(ctx)
	}()
	<-s.ready
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runErr
}

// Stop shuts the server down: it stops accepting, waits up to
// ControlTimeout for in-flight requests, pauses for ShutdownGrace, cancels
// whatever is still running and waits for Run to return. ctx bounds the
// whole call.
func (s *Server) Stop(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateRunning), int32(StateShutdown)) {
		return ErrInvalidState
	}
	s.log.Info("gateway shutting down", "inflight", s.counter.Value())
	s.closeListener()

	drained := shutdown.Await(ctx, s.cfg.ControlTimeout, shutdown.DefaultTick, func() bool {
		return s.counter.Value() == 0
	})
	if !drained {
		s.log.Warn("shutdown timeout, cancelling in-flight requests", "inflight", s.counter.Value())
	}

	s.state.Store(int32(StateStopping))
	s.mu.Lock()
	hitman := s.hitman
	s.mu.Unlock()
	hitman.After(s.cfg.ShutdownGrace)
	select {
	case <-hitman.Done():
	case <-ctx.Done():
		hitman.Fire()
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) signalReady(err error) {
	s.readyOnce.Do(func() {
		s.mu.Lock()
		s.runErr = err
		s.mu.Unlock()
		close(s.ready)
	})
}

func (s *Server) closeListener() {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return
	}
	if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.log.Warn("close listener", "error", err)
	}
}
