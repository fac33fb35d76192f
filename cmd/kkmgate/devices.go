package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/kkmgate/internal/cli/output"
	"github.com/yndnr/kkmgate/internal/core/domain"
	"github.com/yndnr/kkmgate/internal/storage"
	"github.com/yndnr/kkmgate/internal/telemetry/logger"
)

// errInMemoryRegistry is returned when device.data_dir is empty: the
// registry then lives only inside the running gateway.
var errInMemoryRegistry = errors.New("device.data_dir is empty; the registry is kept in memory by the running gateway")

func outputFlag(value string) cli.Flag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Output format: table, json, yaml",
		Value:   value,
	}
}

func formatterOf(c *cli.Context) (output.Formatter, error) {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return nil, err
	}
	return output.NewFormatter(format, c.Bool("wide")), nil
}

// devicesCommand edits the persistent registry directly. The gateway holds
// a lock on the data directory, so it must be stopped first.
func devicesCommand() *cli.Command {
	return &cli.Command{
		Name:  "devices",
		Usage: "Manage the device registry while the gateway is stopped",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List registered devices",
				Flags: []cli.Flag{
					outputFlag(string(output.FormatTable)),
					&cli.BoolFlag{Name: "wide", Aliases: []string{"w"}, Usage: "Show all columns"},
				},
				Action: func(c *cli.Context) error {
					f, err := formatterOf(c)
					if err != nil {
						return err
					}
					return withRegistry(c, func(r *storage.Registry) error {
						return f.Format(c.App.Writer, r.List())
					})
				},
			},
			{
				Name:  "add",
				Usage: "Register a device or replace its parameters",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "serial", Usage: "Factory serial number", Required: true},
					&cli.StringFlag{Name: "port", Usage: `Serial port ("COM3") or "tcp://host:port"`, Required: true},
					&cli.IntFlag{Name: "baud", Usage: "Line speed; 0 lets the driver pick"},
					&cli.StringFlag{Name: "model", Usage: "Driver-specific model name"},
					&cli.DurationFlag{Name: "timeout", Usage: "Per-operation timeout"},
				},
				Action: func(c *cli.Context) error {
					d := domain.Device{
						Serial:  c.String("serial"),
						Port:    c.String("port"),
						Baud:    c.Int("baud"),
						Model:   c.String("model"),
						Timeout: c.Duration("timeout"),
					}
					return withRegistry(c, func(r *storage.Registry) error {
						saved, err := r.Put(c.Context, d)
						if err != nil {
							return err
						}
						fmt.Fprintf(c.App.Writer, "device %s registered on %s\n", saved.Serial, saved.Port)
						return nil
					})
				},
			},
			{
				Name:      "remove",
				Usage:     "Remove a device",
				ArgsUsage: "<serial>",
				Action: func(c *cli.Context) error {
					serial := c.Args().First()
					if serial == "" {
						return errors.New("serial number required")
					}
					return withRegistry(c, func(r *storage.Registry) error {
						ok, err := r.Remove(c.Context, serial)
						if err != nil {
							return err
						}
						if !ok {
							return fmt.Errorf("device %s is not registered", serial)
						}
						fmt.Fprintf(c.App.Writer, "device %s removed\n", serial)
						return nil
					})
				},
			},
		},
	}
}

// withRegistry opens the registry under device.data_dir for the duration
// of fn.
func withRegistry(c *cli.Context, fn func(*storage.Registry) error) (err error) {
	cfg, err := readConfig(c.String("config"), c.StringSlice("set"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Device.DataDir == "" {
		return errInMemoryRegistry
	}

	kvCfg := storage.DefaultKVConfig(cfg.Device.DataDir)
	kvCfg.GCInterval = 0
	kv, err := storage.NewBadgerEngine(kvCfg, logger.Discard())
	if err != nil {
		return fmt.Errorf("open registry (is the gateway running?): %w", err)
	}
	defer func() {
		if cerr := kv.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	r, err := storage.OpenRegistry(context.WithoutCancel(c.Context), kv, logger.Discard())
	if err != nil {
		return err
	}
	return fn(r)
}
