package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/schaze/homie5"
	"github.com/schaze/homie5/capture"
	"github.com/schaze/homie5/controller"
	"github.com/schaze/homie5/mqtt"
)

// offlineClient lets a controller run without a broker.  Publishes are
// dropped and subscriptions are only counted.
type offlineClient struct {
	subscriptions int
}

func (o *offlineClient) Publish(homie5.Publish) error { return nil }

func (o *offlineClient) Subscribe(homie5.Subscription, mqtt.MessageHandler) error {
	o.subscriptions++
	return nil
}

func (o *offlineClient) Unsubscribe(homie5.Unsubscribe) error {
	o.subscriptions--
	return nil
}

type replayOptions struct {
	device  string
	session string
	events  bool
}

func newReplayCmd(g *globalOptions) *cobra.Command {
	var opts replayOptions
	cmd := &cobra.Command{
		Use:   "replay <capture-file>",
		Short: "Rebuild device state from a traffic capture",
		Long: `replay feeds the records of a capture file into an offline controller and
prints the resulting devices.  Records that are not valid Homie messages are
counted and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.load()
			if err != nil {
				return err
			}
			ctl, stats, err := replayFile(args[0], e.domain, opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			e.log.Info("replay finished", "records", stats.Records, "failed", stats.Failed)
			return g.print(cmd.OutOrStdout(), ctl.Devices())
		},
	}
	cmd.Flags().StringVar(&opts.device, "device", "", "only replay records of this device id")
	cmd.Flags().StringVar(&opts.session, "session", "", "only replay records of this capture session")
	cmd.Flags().BoolVar(&opts.events, "events", false, "print controller events while replaying")
	return cmd
}

func replayFile(path string, domain homie5.HomieDomain, opts replayOptions, out io.Writer) (*controller.Controller, capture.ReplayStats, error) {
	filter := capture.Filter{SessionID: opts.session}
	if opts.device != "" {
		id, err := homie5.NewHomieID(opts.device)
		if err != nil {
			return nil, capture.ReplayStats{}, fmt.Errorf("device: %w", err)
		}
		filter.DeviceID = id
	}
	r, err := capture.NewFilteredReader(path, filter)
	if err != nil {
		return nil, capture.ReplayStats{}, err
	}
	defer r.Close()

	ctl := controller.New(&offlineClient{}, domain)
	ctl.EnableMeta()
	if opts.events {
		ctl.OnEvent(func(ev controller.Event) {
			fmt.Fprintln(out, formatEvent(ev))
		})
	}
	if err := ctl.Start(); err != nil {
		return nil, capture.ReplayStats{}, err
	}

	stats, err := capture.Replay(r, ctl.Handle)
	if err != nil {
		return nil, stats, fmt.Errorf("replaying %s: %w", path, err)
	}
	return ctl, stats, nil
}
