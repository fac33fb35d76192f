package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/kkmgate/internal/cli/output"
	"github.com/yndnr/kkmgate/internal/infra/buildinfo"
	"github.com/yndnr/kkmgate/internal/infra/confloader"
	"github.com/yndnr/kkmgate/internal/infra/shutdown"
	"github.com/yndnr/kkmgate/internal/infra/tlsroots"
	"github.com/yndnr/kkmgate/internal/infra/winsvc"
	"github.com/yndnr/kkmgate/internal/server/config"
	"github.com/yndnr/kkmgate/internal/telemetry/logger"
)

// hookSlack is added to the shutdown hook budget on top of the gateway's
// own drain and grace periods.
const hookSlack = 5 * time.Second

func foregroundCommand() *cli.Command {
	return &cli.Command{
		Name:   "foreground",
		Usage:  "Run the gateway in the foreground until interrupted",
		Action: runForeground,
	}
}

func serviceCommand() *cli.Command {
	return &cli.Command{
		Name:   "service",
		Usage:  "Run under the Windows service control manager",
		Hidden: true,
		Action: runService,
	}
}

func installCommand() *cli.Command {
	return &cli.Command{
		Name:  "install",
		Usage: "Register kkmgate as a Windows service",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c.String("config"), c.StringSlice("set"))
			if err != nil {
				return err
			}
			var args []string
			if path := c.String("config"); path != "" {
				abs, err := filepath.Abs(path)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				args = append(args, "--config", abs)
			}
			for _, set := range c.StringSlice("set") {
				args = append(args, "--set", set)
			}
			args = append(args, "service")

			if err := winsvc.Install(winsvc.Config{
				Name:        cfg.Service.Name,
				DisplayName: cfg.Service.DisplayName,
				Description: cfg.Service.Description,
				Args:        args,
			}); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "service %q installed\n", cfg.Service.Name)
			return nil
		},
	}
}

func uninstallCommand() *cli.Command {
	return &cli.Command{
		Name:  "uninstall",
		Usage: "Remove the Windows service",
		Action: func(c *cli.Context) error {
			name, err := serviceName(c)
			if err != nil {
				return err
			}
			if err := winsvc.Stop(c.Context, name); err != nil {
				return err
			}
			if err := winsvc.Uninstall(name); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "service %q removed\n", name)
			return nil
		},
	}
}

func startCommand() *cli.Command {
	return &cli.Command{
		Name:  "start",
		Usage: "Start the Windows service",
		Action: func(c *cli.Context) error {
			name, err := serviceName(c)
			if err != nil {
				return err
			}
			return winsvc.Start(name)
		},
	}
}

func stopCommand() *cli.Command {
	return &cli.Command{
		Name:  "stop",
		Usage: "Stop the Windows service",
		Action: func(c *cli.Context) error {
			name, err := serviceName(c)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(c.Context, winsvc.DefaultStopTimeout)
			defer cancel()
			return winsvc.Stop(ctx, name)
		},
	}
}

func restartCommand() *cli.Command {
	return &cli.Command{
		Name:  "restart",
		Usage: "Stop and start the Windows service",
		Action: func(c *cli.Context) error {
			name, err := serviceName(c)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(c.Context, winsvc.DefaultStopTimeout)
			defer cancel()
			if err := winsvc.Stop(ctx, name); err != nil {
				return err
			}
			return winsvc.Start(name)
		},
	}
}

func showConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "show-config",
		Usage: "Print the effective configuration with secrets masked",
		Flags: []cli.Flag{outputFlag(string(output.FormatYAML))},
		Action: func(c *cli.Context) error {
			cfg, err := readConfig(c.String("config"), c.StringSlice("set"))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			f, err := formatterOf(c)
			if err != nil {
				return err
			}
			if _, ok := f.(*output.TableFormatter); ok {
				return errors.New("show-config supports json and yaml output")
			}
			return f.Format(c.App.Writer, config.Sanitize(cfg))
		},
	}
}

func genCertCommand() *cli.Command {
	return &cli.Command{
		Name:  "gen-cert",
		Usage: "Write a self-signed certificate to tls.cert_file and tls.key_file",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "host",
				Usage: "DNS name or IP address to include (repeatable)",
				Value: cli.NewStringSlice("localhost", "127.0.0.1", "::1"),
			},
			&cli.DurationFlag{
				Name:  "valid-for",
				Usage: "Certificate lifetime",
				Value: 825 * 24 * time.Hour,
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := readConfig(c.String("config"), c.StringSlice("set"))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if config.IsPKCS12(cfg.TLS.CertFile) {
				return fmt.Errorf("gen-cert writes PEM files; tls.cert_file %q is a PKCS#12 bundle", cfg.TLS.CertFile)
			}
			if err := tlsroots.WriteSelfSigned(cfg.TLS.CertFile, cfg.TLS.KeyFile, c.StringSlice("host"), c.Duration("valid-for")); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "certificate written to %s\nprivate key written to %s\n", cfg.TLS.CertFile, cfg.TLS.KeyFile)
			return nil
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print build information",
		Action: func(c *cli.Context) error {
			info := buildinfo.Get()
			fmt.Fprintf(c.App.Writer, "kkmgate %s\ncommit:     %s\nbuilt:      %s\ngo version: %s\n",
				info.Version, info.Commit, info.BuildTime, info.GoVersion)
			return nil
		},
	}
}

// serviceName reads service.name without requiring valid TLS material.
func serviceName(c *cli.Context) (string, error) {
	cfg, err := readConfig(c.String("config"), c.StringSlice("set"))
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	return cfg.Service.Name, nil
}

// runForeground serves until SIGINT/SIGTERM or until the gateway stops on
// its own.
func runForeground(c *cli.Context) error {
	p, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Close(p.log)
	if err := p.Start(c.Context); err != nil {
		return err
	}

	h := shutdown.NewHandler(p.cfg.Server.ControlTimeout + p.cfg.Server.ShutdownGrace + hookSlack)
	h.OnShutdown(func(ctx context.Context) error {
		p.log.Info("shutting down gateway")
		return p.Stop(ctx)
	})

	go func() {
		<-p.server.Done()
		h.Trigger()
	}()

	p.log.Info("gateway started, press Ctrl+C to stop")
	if err := h.Wait(c.Context); err != nil {
		p.log.Error("shutdown error", "error", err)
		return err
	}
	p.log.Info("gateway stopped gracefully")
	return nil
}

// runService hands the gateway to the service control manager.
func runService(c *cli.Context) error {
	p, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Close(p.log)
	return winsvc.Run(p.cfg.Service.Name, p, p.log)
}

// setup loads the configuration and builds the program.
func setup(c *cli.Context) (*program, error) {
	path := c.String("config")
	cfg, err := loadConfig(path, c.StringSlice("set"))
	if err != nil {
		return nil, err
	}
	log, err := initLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log = log.With("instance", ulid.Make().String())
	log.Info("starting kkmgate",
		"version", buildinfo.Version,
		"commit", buildinfo.Commit,
		"config", path)

	overrides, err := confloader.ParseOverrides(c.StringSlice("set"))
	if err != nil {
		_ = logger.Close(log)
		return nil, err
	}
	p, err := newProgram(cfg, path, log, confloader.WithOverrides(overrides))
	if err != nil {
		_ = logger.Close(log)
		return nil, err
	}
	return p, nil
}
