//go:build windows

package winsvc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"

	"github.com/yndnr/kkmgate/internal/telemetry/logger"
)

const (
	accepted    = svc.AcceptStop | svc.AcceptShutdown
	pollPeriod  = 300 * time.Millisecond
	startBudget = 30 * time.Second
)

// IsService reports whether the process was started by the service control
// manager.
func IsService() (bool, error) {
	return svc.IsWindowsService()
}

// Run hosts p under the service control manager until a stop or shutdown
// request arrives. It blocks for the lifetime of the service.
func Run(name string, p Program, log logger.Logger) error {
	if log == nil {
		log = logger.Default()
	}
	return svc.Run(name, &handler{program: p, log: log.With("service", name)})
}

type handler struct {
	program Program
	log     logger.Logger
}

// Execute implements svc.Handler.
func (h *handler) Execute(_ []string, requests <-chan svc.ChangeRequest, status chan<- svc.Status) (bool, uint32) {
	status <- svc.Status{State: svc.StartPending}

	startCtx, cancel := context.WithTimeout(context.Background(), startBudget)
	err := h.program.Start(startCtx)
	cancel()
	if err != nil {
		h.log.Error("service start failed", "error", err)
		return true, 1
	}

	status <- svc.Status{State: svc.Running, Accepts: accepted}
	h.log.Info("service running")

	for req := range requests {
		switch req.Cmd {
		case svc.Interrogate:
			status <- req.CurrentStatus
		case svc.Stop, svc.Shutdown:
			status <- svc.Status{State: svc.StopPending}
			stopCtx, cancel := context.WithTimeout(context.Background(), DefaultStopTimeout)
			err := h.program.Stop(stopCtx)
			cancel()
			if err != nil {
				h.log.Error("service stop failed", "error", err)
				return true, 2
			}
			h.log.Info("service stopped")
			return false, 0
		default:
			h.log.Warn("unexpected service control request", "cmd", req.Cmd)
		}
	}
	return false, 0
}

// Install registers the running executable as an auto-start service.
func Install(cfg Config) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("winsvc: locate executable: %w", err)
	}
	if exe, err = filepath.Abs(exe); err != nil {
		return fmt.Errorf("winsvc: locate executable: %w", err)
	}

	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("winsvc: connect to service manager: %w", err)
	}
	defer m.Disconnect()

	if s, err := m.OpenService(cfg.Name); err == nil {
		s.Close()
		return fmt.Errorf("winsvc: service %q already exists", cfg.Name)
	}

	s, err := m.CreateService(cfg.Name, exe, mgr.Config{
		DisplayName: cfg.DisplayName,
		Description: cfg.Description,
		StartType:   mgr.StartAutomatic,
	}, cfg.Args...)
	if err != nil {
		return fmt.Errorf("winsvc: create service %q: %w", cfg.Name, err)
	}
	defer s.Close()
	return nil
}

// Uninstall removes the service registration.
func Uninstall(name string) error {
	return withService(name, func(s *mgr.Service) error {
		if err := s.Delete(); err != nil {
			return fmt.Errorf("winsvc: delete service %q: %w", name, err)
		}
		return nil
	})
}

// Start asks the service control manager to start the service.
func Start(name string) error {
	return withService(name, func(s *mgr.Service) error {
		if err := s.Start(); err != nil {
			return fmt.Errorf("winsvc: start service %q: %w", name, err)
		}
		return nil
	})
}

// Stop asks the service to stop and waits until it reports Stopped or ctx
// ends. A service that is not running is not an error.
func Stop(ctx context.Context, name string) error {
	return withService(name, func(s *mgr.Service) error {
		st, err := s.Control(svc.Stop)
		if errors.Is(err, windows.ERROR_SERVICE_NOT_ACTIVE) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("winsvc: stop service %q: %w", name, err)
		}

		ticker := time.NewTicker(pollPeriod)
		defer ticker.Stop()
		for st.State != svc.Stopped {
			select {
			case <-ctx.Done():
				return fmt.Errorf("winsvc: wait for %q to stop: %w", name, ctx.Err())
			case <-ticker.C:
			}
			if st, err = s.Query(); err != nil {
				return fmt.Errorf("winsvc: query service %q: %w", name, err)
			}
		}
		return nil
	})
}

func withService(name string, fn func(*mgr.Service) error) error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("winsvc: connect to service manager: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(name)
	if err != nil {
		return fmt.Errorf("winsvc: open service %q: %w", name, err)
	}
	defer s.Close()
	return fn(s)
}
