package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/schaze/homie5"
	"github.com/schaze/homie5/internal/broker"
)

func newBrokerCmd(g *globalOptions) *cobra.Command {
	var (
		addr     string
		username string
		password string
	)
	cmd := &cobra.Command{
		Use:   "broker",
		Short: "Run an embedded MQTT broker for development",
		Long: `broker starts a local MQTT broker and logs the Homie messages passing
through it at debug level.  It runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.load()
			if err != nil {
				return err
			}
			log := e.log.With("component", "broker")
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			b, err := broker.New(broker.Options{
				Address:  addr,
				Username: username,
				Password: password,
				Logger:   log.Logger,
				OnMessage: func(topic string, msg homie5.Message) {
					log.Debug("homie message", "topic", topic)
				},
			})
			if err != nil {
				return err
			}
			if err := b.Start(ctx); err != nil {
				return err
			}
			log.Info("broker listening", "address", b.Addr())

			<-ctx.Done()
			log.Info("broker stopping", "devices", len(b.Devices()))
			return b.Stop(5 * time.Second)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":1883", "listen address")
	cmd.Flags().StringVar(&username, "username", "", "require this username from clients")
	cmd.Flags().StringVar(&password, "password", "", "require this password from clients")
	return cmd
}
