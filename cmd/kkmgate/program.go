package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/yndnr/kkmgate/internal/core/service"
	"github.com/yndnr/kkmgate/internal/infra/confloader"
	"github.com/yndnr/kkmgate/internal/infra/tlsroots"
	"github.com/yndnr/kkmgate/internal/server/config"
	"github.com/yndnr/kkmgate/internal/server/gateway"
	"github.com/yndnr/kkmgate/internal/server/handler"
	"github.com/yndnr/kkmgate/internal/storage"
	"github.com/yndnr/kkmgate/internal/storage/respcache"
	"github.com/yndnr/kkmgate/internal/telemetry/logger"
	"github.com/yndnr/kkmgate/internal/telemetry/metric"
)

// program owns every long-lived component of a running gateway. It
// implements winsvc.Program.
type program struct {
	cfg  *config.GatewayConfig
	path string
	log  logger.Logger

	kv       *storage.BadgerEngine
	registry *storage.Registry
	static   *handler.Static
	certs    *tlsroots.Watcher
	reloader *confloader.Watcher
	metrics  *metric.Registry
	server   *gateway.Server

	// ctx governs the server; it outlives the context passed to Start.
	ctx    context.Context
	cancel context.CancelFunc

	releaseOnce sync.Once
	releaseErr  error
}

// newProgram wires the components. Nothing listens until Start. When path
// is set the file is watched and log.level is reloaded with reload, which
// should repeat the options the configuration was loaded with.
func newProgram(cfg *config.GatewayConfig, path string, log logger.Logger, reload ...confloader.Option) (_ *program, err error) {
	p := &program{cfg: cfg, path: path, log: log}
	defer func() {
		if err != nil {
			p.release()
		}
	}()

	kvCfg := storage.DefaultKVConfig(cfg.Device.DataDir)
	kvCfg.InMemory = cfg.Device.DataDir == ""
	if p.kv, err = storage.NewBadgerEngine(kvCfg, log); err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	if p.registry, err = storage.OpenRegistry(context.Background(), p.kv, log); err != nil {
		return nil, fmt.Errorf("init registry: %w", err)
	}

	driver, err := newDriver(cfg.Device)
	if err != nil {
		return nil, err
	}
	devices := service.NewDeviceService(p.registry, driver, log)
	cache := respcache.New(respcache.WithThreshold(cfg.Cache.CleanupThreshold))

	p.metrics = metric.NewRegistry()
	p.metrics.MustRegister(p.kv.Collectors()...)

	if p.static, err = newStatic(cfg, cache, p.metrics, log); err != nil {
		return nil, err
	}
	cfgHandler, err := handler.NewConfig(cfg, p.registry)
	if err != nil {
		return nil, fmt.Errorf("init config handler: %w", err)
	}

	router := handler.NewRouter(handler.NewFallback(cfg.Static.Index))
	router.Register("kkm", handler.NewDevice(devices, cache, cfg.Cache.IdempotencyTTL, p.metrics))
	router.Register("config", cfgHandler)
	router.Register("static", p.static)
	router.Register("ping", handler.NewPing())
	router.Register("metrics", handler.NewMetrics(p.metrics.Gatherer()))

	opts := []gateway.Option{gateway.WithLogger(log), gateway.WithMetrics(p.metrics)}
	if cfg.TLS.Watch {
		p.certs, err = tlsroots.NewWatcher(cfg.TLS.CertFile, cfg.TLS.KeyFile,
			tlsroots.WithLogger(log),
			tlsroots.WithPassword(cfg.TLS.KeyPassword))
		if err != nil {
			return nil, err
		}
		opts = append(opts, gateway.WithCertWatcher(p.certs))
	}
	p.server = gateway.New(gateway.ConfigFrom(cfg), router, opts...)

	p.metrics.MustRegister(metric.NewCollector(metric.Sources{
		CacheEntries:     cache.Len,
		Devices:          p.registry.Len,
		ConcurrencyLimit: func() int { return cfg.Server.ConcurrencyLimit },
		State:            func() string { return p.server.State().String() },
	}))

	if path != "" {
		if p.reloader, err = newReloader(path, log, reload); err != nil {
			return nil, err
		}
	}

	p.ctx, p.cancel = context.WithCancel(context.Background())
	return p, nil
}

func newDriver(cfg config.DeviceSection) (service.Driver, error) {
	switch cfg.Driver {
	case "", service.EmulatorName:
		return service.NewEmulator(cfg.Latency), nil
	default:
		return nil, fmt.Errorf("unknown device driver %q", cfg.Driver)
	}
}

// newStatic opens static.root. A missing directory disables static files
// instead of failing startup.
func newStatic(cfg *config.GatewayConfig, cache *respcache.Cache, m *metric.Registry, log logger.Logger) (*handler.Static, error) {
	root := cfg.Static.Root
	if root != "" {
		if _, err := os.Stat(root); errors.Is(err, os.ErrNotExist) {
			log.Warn("static root not found, static files disabled", "root", root)
			root = ""
		}
	}
	h, err := handler.NewStatic(root, cfg.Static.Index, cache, cfg.Cache.StaticTTL, m)
	if err != nil {
		return nil, fmt.Errorf("init static handler: %w", err)
	}
	return h, nil
}

func newReloader(path string, log logger.Logger, opts []confloader.Option) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, fmt.Errorf("init config watcher: %w", err)
	}
	if err := w.Watch(path); err != nil {
		_ = w.Stop()
		return nil, fmt.Errorf("watch config: %w", err)
	}
	w.OnChange(confloader.LevelReloader(log, opts...))
	return w, nil
}

// Start binds the listener and starts the watchers. On failure every
// component is released.
func (p *program) Start(context.Context) error {
	if err := p.server.Start(p.ctx); err != nil {
		p.release()
		return fmt.Errorf("start gateway: %w", err)
	}
	if p.certs != nil {
		p.certs.StartAsync()
	}
	if p.reloader != nil {
		p.reloader.StartAsync()
	}
	return nil
}

// Stop shuts the gateway down gracefully and releases every component.
func (p *program) Stop(ctx context.Context) error {
	err := p.server.Stop(ctx)
	if errors.Is(err, gateway.ErrInvalidState) {
		// Already stopped on its own; wait for Run to return.
		select {
		case <-p.server.Done():
			err = nil
		case <-ctx.Done():
			err = ctx.Err()
		}
	}
	return errors.Join(err, p.release())
}

// release stops the watchers and closes storage. Only the first call does
// any work.
func (p *program) release() error {
	p.releaseOnce.Do(func() { p.releaseErr = p.closeAll() })
	return p.releaseErr
}

func (p *program) closeAll() error {
	if p.cancel != nil {
		p.cancel()
	}
	if p.reloader != nil {
		_ = p.reloader.Stop()
	}
	if p.certs != nil {
		p.certs.Stop()
	}
	var errs []error
	if p.static != nil {
		if err := p.static.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close static root: %w", err))
		}
	}
	if p.kv != nil {
		if err := p.kv.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	return errors.Join(errs...)
}
