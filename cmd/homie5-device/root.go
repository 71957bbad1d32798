package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/schaze/homie5"
	"github.com/schaze/homie5/device"
	"github.com/schaze/homie5/ext/meta"
	"github.com/schaze/homie5/internal/config"
	"github.com/schaze/homie5/internal/logging"
	"github.com/schaze/homie5/internal/session"
)

type options struct {
	configPath string
	deviceID   string
	name       string
	logLevel   string
	room       string
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "homie5-device",
		Short: "Run an example Homie 5 light device",
		Long: `homie5-device announces a dimmable light on the configured broker and
applies set commands for its state and brightness.

Settings come from an optional YAML file and HOMIE_* environment variables;
flags override both.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "path to a YAML configuration file")
	f.StringVar(&opts.deviceID, "device-id", "", "homie id of the device (overrides homie.device_id)")
	f.StringVar(&opts.name, "name", "homie5 light", "friendly name of the device")
	f.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (overrides logging.level)")
	f.StringVar(&opts.room, "room", "", "publish a $meta room entry for the device")
	return cmd
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.deviceID != "" {
		cfg.Homie.DeviceID = opts.deviceID
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	id, err := homie5.NewHomieID(cfg.Homie.DeviceID)
	if err != nil {
		return fmt.Errorf("device id: %w", err)
	}

	log := logging.New(cfg.Logging, Version).With("device", id.String())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	light := newLight(id, cfg.Homie.Domain, opts.name)
	light.SetLogger(log.Logger)

	will := light.Will()
	sess, err := session.Open(ctx, cfg, &will, log.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warn("closing session", "error", err)
		}
	}()
	sess.MQTT.SetOnConnect(light.Reconnected)

	// mirror warnings and errors of the light to its $log topic
	events := slog.New(device.NewLogHandler(light, slog.LevelWarn))
	light.SetGlobalHandler(func(d *device.Device, prop homie5.PropertyRef, v homie5.Value) bool {
		log.Info("set command", "property", prop.String(), "value", v.String())
		if prop.NodeID() == lightNode && prop.PropID() == brightnessProp && v == homie5.IntegerValue(100) {
			events.Warn("brightness at maximum")
		}
		return false
	})

	errc := make(chan error, 1)
	go func() { errc <- light.RunWithContext(ctx, sess.Client) }()

	if opts.room != "" {
		if err := publishRoom(sess.Client, light, opts.room); err != nil {
			log.Warn("publishing meta data", "error", err)
		}
	}

	log.Info("device running", "domain", cfg.Homie.Domain.String())
	err = <-errc
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	log.Info("device stopped")
	return err
}

func publishRoom(c session.Client, d *device.Device, room string) error {
	p, err := meta.FromDeviceProtocol(d.Protocol()).PublishMetaDevice(d.ID(), map[string]string{"room": room})
	if err != nil {
		return err
	}
	return c.Publish(p)
}
