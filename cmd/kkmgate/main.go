package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/kkmgate/internal/infra/buildinfo"
	"github.com/yndnr/kkmgate/internal/infra/confloader"
	"github.com/yndnr/kkmgate/internal/infra/winsvc"
	"github.com/yndnr/kkmgate/internal/server/config"
	"github.com/yndnr/kkmgate/internal/telemetry/logger"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newApp creates the CLI application.
func newApp() *cli.App {
	return &cli.App{
		Name:    "kkmgate",
		Usage:   "HTTPS gateway for fiscal cash registers",
		Version: buildinfo.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file (YAML or JSON)",
				EnvVars: []string{confloader.DefaultEnvPrefix + "CONFIG"},
			},
			&cli.StringSliceFlag{
				Name:  "set",
				Usage: "Override a configuration key, e.g. --set server.port=9443 (repeatable)",
			},
		},
		Commands: []*cli.Command{
			foregroundCommand(),
			serviceCommand(),
			installCommand(),
			uninstallCommand(),
			startCommand(),
			stopCommand(),
			restartCommand(),
			showConfigCommand(),
			devicesCommand(),
			genCertCommand(),
			versionCommand(),
		},
		// The service control manager starts the binary with the arguments
		// recorded by install; a bare invocation falls back to foreground.
		Action: func(c *cli.Context) error {
			isService, err := winsvc.IsService()
			if err != nil {
				return fmt.Errorf("detect service mode: %w", err)
			}
			if isService {
				return runService(c)
			}
			return runForeground(c)
		},
	}
}

// readConfig loads defaults, the optional file, the environment and the
// --set overrides.
func readConfig(path string, sets []string) (*config.GatewayConfig, error) {
	cfg := config.Default()

	overrides, err := confloader.ParseOverrides(sets)
	if err != nil {
		return nil, err
	}
	opts := []confloader.Option{confloader.WithOverrides(overrides)}
	if path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}
	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, err
	}
	if path != "" {
		resolveRelative(cfg, filepath.Dir(path))
	}
	return cfg, nil
}

// loadConfig is readConfig followed by validation.
func loadConfig(path string, sets []string) (*config.GatewayConfig, error) {
	cfg, err := readConfig(path, sets)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// resolveRelative anchors relative paths at the directory of the config
// file. Services start with the system directory as their working
// directory.
func resolveRelative(cfg *config.GatewayConfig, base string) {
	for _, p := range []*string{
		&cfg.TLS.CertFile,
		&cfg.TLS.KeyFile,
		&cfg.Static.Root,
		&cfg.Device.DataDir,
		&cfg.Log.File,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

// initLogger creates the process logger and makes it the default.
func initLogger(cfg *config.GatewayConfig) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
		Output: os.Stdout,
	})
	if err != nil {
		return nil, err
	}
	logger.SetDefault(log)
	return log, nil
}
