package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/schaze/homie5/controller"
)

func newDiscoverCmd(g *globalOptions) *cobra.Command {
	var (
		wait  time.Duration
		meta  bool
		watch bool
	)
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List the devices of the domain",
		Long: `discover collects retained device state for --wait and prints every device
with its property values.  With --watch it keeps running and prints events
until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.load()
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			var onEvent func(controller.Event)
			if watch {
				out := cmd.OutOrStdout()
				onEvent = func(ev controller.Event) {
					fmt.Fprintln(out, formatEvent(ev))
				}
			}
			ctl, closeFn, err := e.connect(ctx, meta, onEvent)
			if err != nil {
				return err
			}
			defer closeFn()

			if watch {
				<-ctx.Done()
				return nil
			}

			select {
			case <-ctx.Done():
			case <-time.After(wait):
			}
			return g.print(cmd.OutOrStdout(), ctl.Devices())
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 2*time.Second, "time to collect retained state before printing")
	cmd.Flags().BoolVar(&meta, "meta", false, "also collect $meta data")
	cmd.Flags().BoolVar(&watch, "watch", false, "print events until interrupted")
	return cmd
}

func newSetCmd(g *globalOptions) *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "set <device>/<node>/<property> <value>",
		Short: "Send a set command to a property",
		Long: `set waits up to --wait for the description of the device and checks the
value against it.  When the device does not show up in time the command is
sent unchecked.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.load()
			if err != nil {
				return err
			}
			prop, err := parseProperty(e.domain, args[0])
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			ctl, closeFn, err := e.connect(ctx, false, nil)
			if err != nil {
				return err
			}
			defer closeFn()

			known := waitFor(ctx, wait, func() bool {
				dev, ok := ctl.Device(prop.Device)
				return ok && dev.Description != nil
			})
			if !known {
				e.log.Warn("device description not received, sending unchecked", "device", prop.Device.ID.String())
			}
			if err := ctl.SetString(prop, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "set %s to %q\n", args[0], args[1])
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 3*time.Second, "time to wait for the device description")
	return cmd
}

func newBroadcastCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "broadcast <subtopic> <message>",
		Short: "Publish a broadcast to the domain",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.load()
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			ctl, closeFn, err := e.connect(ctx, false, nil)
			if err != nil {
				return err
			}
			defer closeFn()
			return ctl.Broadcast(args[0], args[1])
		},
	}
}

func newRemoveCmd(g *globalOptions) *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "remove <device>",
		Short: "Clear the retained topics of a device",
		Long: `remove deletes a device from the broker on its behalf: it clears $state,
the device attributes and the retained property values.  The device must be
discovered within --wait.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.load()
			if err != nil {
				return err
			}
			ref, err := parseDevice(e.domain, args[0])
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			ctl, closeFn, err := e.connect(ctx, false, nil)
			if err != nil {
				return err
			}
			defer closeFn()

			waitFor(ctx, wait, func() bool {
				dev, ok := ctl.Device(ref)
				return ok && dev.Description != nil
			})
			if err := ctl.RemoveDevice(ref); err != nil {
				return err
			}
			gone := waitFor(ctx, wait, func() bool {
				_, ok := ctl.Device(ref)
				return !ok
			})
			if !gone {
				return fmt.Errorf("device %s still present after removal", ref.ID)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", ref.ID)
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 3*time.Second, "time to wait for the device")
	return cmd
}
