// Package session opens the MQTT connection the homie5 tools work over:
// broker lookup by mDNS when configured, the paho client and an optional
// traffic capture around it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/schaze/homie5"
	"github.com/schaze/homie5/capture"
	"github.com/schaze/homie5/discovery"
	"github.com/schaze/homie5/internal/config"
	"github.com/schaze/homie5/mqtt"
)

// Client is what devices and controllers publish and subscribe with.
type Client interface {
	Publish(p homie5.Publish) error
	Subscribe(s homie5.Subscription, handler mqtt.MessageHandler) error
	Unsubscribe(u homie5.Unsubscribe) error
}

// Session is an open connection.  Client records traffic when capture is
// enabled and is the MQTT client itself otherwise.
type Session struct {
	MQTT   *mqtt.Client
	Client Client

	recorder *capture.FileRecorder
}

// Finder looks up a broker on the network.
type Finder interface {
	Find(ctx context.Context) (discovery.Broker, error)
}

// ResolveBroker fills in the broker host from mDNS when discovery is
// enabled and no host is configured.
func ResolveBroker(ctx context.Context, cfg *config.Config, finder Finder, log *slog.Logger) error {
	if !cfg.Discovery.Enabled || cfg.MQTT.Broker.Host != "" {
		return nil
	}
	if finder == nil {
		finder = discovery.NewBrowser(discovery.Config{
			Interface: cfg.Discovery.Interface,
			Timeout:   cfg.DiscoveryTimeout(),
		})
	}
	b, err := finder.Find(ctx)
	if err != nil {
		return fmt.Errorf("broker discovery: %w", err)
	}
	cfg.MQTT.Broker.Host = b.Host()
	if b.Port > 0 {
		cfg.MQTT.Broker.Port = b.Port
	}
	log.Info("discovered mqtt broker", "instance", b.Instance, "address", b.Address())
	return nil
}

// Open resolves the broker, connects and sets up capture.
func Open(ctx context.Context, cfg *config.Config, will *homie5.LastWill, log *slog.Logger) (*Session, error) {
	if err := ResolveBroker(ctx, cfg, nil, log); err != nil {
		return nil, err
	}

	client, err := mqtt.Connect(cfg.MQTT.ClientConfig(will))
	if err != nil {
		return nil, err
	}
	client.SetLogger(log.With("component", "mqtt"))
	log.Info("connected to mqtt broker",
		"host", cfg.MQTT.Broker.Host,
		"port", cfg.MQTT.Broker.Port,
		"client_id", client.ClientID(),
	)

	s := &Session{MQTT: client, Client: client}
	if cfg.Capture.Enabled {
		rec, err := capture.NewFileRecorder(cfg.Capture.Path)
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("opening capture: %w", err)
		}
		s.recorder = rec
		wrapped := capture.Wrap(client, capture.NewMultiRecorder(
			rec,
			capture.NewSlogRecorder(log.With("component", "capture")),
		))
		s.Client = wrapped
		log.Info("capturing homie traffic", "path", cfg.Capture.Path, "session", wrapped.SessionID())
	}
	return s, nil
}

func (s *Session) Close() error {
	var errs []error
	if err := s.MQTT.Close(); err != nil {
		errs = append(errs, err)
	}
	if s.recorder != nil {
		if err := s.recorder.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
