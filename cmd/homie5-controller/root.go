package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/schaze/homie5"
	"github.com/schaze/homie5/controller"
	"github.com/schaze/homie5/internal/config"
	"github.com/schaze/homie5/internal/logging"
	"github.com/schaze/homie5/internal/session"
)

type globalOptions struct {
	configPath string
	logLevel   string
	domain     string
	jsonOutput bool
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "homie5-controller",
		Short: "Discover and control Homie 5 devices",
		Long: `homie5-controller watches the devices of a Homie domain on an MQTT broker.

It lists devices with their property values, sends set commands and
broadcasts, clears removed devices from the broker, replays captured
traffic and offers an interactive shell.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "path to a YAML configuration file")
	pf.StringVar(&g.logLevel, "log-level", "", "debug, info, warn or error (overrides logging.level)")
	pf.StringVar(&g.domain, "domain", "", `homie domain to watch, "+" for all (overrides homie.domain)`)
	pf.BoolVar(&g.jsonOutput, "json", false, "print results as JSON")

	cmd.AddCommand(
		newDiscoverCmd(g),
		newSetCmd(g),
		newBroadcastCmd(g),
		newRemoveCmd(g),
		newReplayCmd(g),
		newBrokerCmd(g),
		newShellCmd(g),
	)
	return cmd
}

// env is the loaded configuration of one command invocation.
type env struct {
	cfg    *config.Config
	log    *logging.Logger
	domain homie5.HomieDomain
}

func (g *globalOptions) load() (*env, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}
	domain := cfg.Homie.Domain
	if g.domain != "" {
		domain, err = homie5.NewHomieDomain(g.domain)
		if err != nil {
			return nil, fmt.Errorf("domain: %w", err)
		}
	}
	return &env{
		cfg:    cfg,
		log:    logging.New(cfg.Logging, Version).With("component", "controller"),
		domain: domain,
	}, nil
}

func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// connect opens a session and starts a controller on it.  onEvent, when
// set, is installed before discovery starts.  The returned close func stops
// the controller and closes the session.
func (e *env) connect(ctx context.Context, withMeta bool, onEvent func(controller.Event)) (*controller.Controller, func(), error) {
	sess, err := session.Open(ctx, e.cfg, nil, e.log.Logger)
	if err != nil {
		return nil, nil, err
	}

	ctl := controller.New(sess.Client, e.domain)
	ctl.SetLogger(e.log.Logger)
	if withMeta {
		ctl.EnableMeta()
	}
	if onEvent != nil {
		ctl.OnEvent(onEvent)
	}
	sess.MQTT.SetOnConnect(ctl.Reconnected)
	if err := ctl.Start(); err != nil {
		_ = sess.Close()
		return nil, nil, err
	}

	closeFn := func() {
		if err := ctl.Stop(); err != nil {
			e.log.Debug("stopping controller", "error", err)
		}
		if err := sess.Close(); err != nil {
			e.log.Warn("closing session", "error", err)
		}
	}
	return ctl, closeFn, nil
}

// waitFor polls cond until it holds, ctx ends or timeout passes.
func waitFor(ctx context.Context, timeout time.Duration, cond func() bool) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if cond() {
			return true
		}
		select {
		case <-ctx.Done():
			return cond()
		case <-ticker.C:
		}
	}
}
