// Package broker runs an embedded MQTT broker for development and tests.
package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
)

// Options configure the embedded broker.
type Options struct {
	// Address to listen on, e.g. ":1883".  A port of 0 picks a free port.
	Address string

	// Username and Password, when set, are required from every client.
	Username string
	Password string

	Logger *slog.Logger

	// OnMessage is called for every Homie message that passes the broker.
	OnMessage MessageFunc
}

// Broker wraps a mochi MQTT server.
type Broker struct {
	server *mqtt.Server
	opts   Options
	log    *slog.Logger
	hook   *HomieHook

	mu      sync.RWMutex
	addr    string
	running bool
}

// New creates a broker.  Call Start to begin listening.
func New(opts Options) (*Broker, error) {
	if opts.Address == "" {
		opts.Address = ":1883"
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	server := mqtt.New(&mqtt.Options{
		InlineClient: true,
		Logger:       log.With("component", "broker"),
	})

	if opts.Username != "" {
		ledger := &auth.Ledger{
			Auth: auth.AuthRules{
				{Username: auth.RString(opts.Username), Password: auth.RString(opts.Password), Allow: true},
			},
		}
		if err := server.AddHook(new(auth.Hook), &auth.Options{Ledger: ledger}); err != nil {
			return nil, fmt.Errorf("failed to add auth hook: %w", err)
		}
	} else {
		// mochi refuses all clients unless an auth hook allows them
		if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
			return nil, fmt.Errorf("failed to add allow hook: %w", err)
		}
	}

	hook := NewHomieHook(log, opts.OnMessage)
	if err := server.AddHook(hook, nil); err != nil {
		return nil, fmt.Errorf("failed to add homie hook: %w", err)
	}

	return &Broker{server: server, opts: opts, log: log, hook: hook}, nil
}

// Start begins listening.
func (b *Broker) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return errors.New("broker is already running")
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	addr, err := resolveAddress(b.opts.Address)
	if err != nil {
		return err
	}

	listener := listeners.NewTCP(listeners.Config{ID: "homie5-tcp", Address: addr})
	if err := b.server.AddListener(listener); err != nil {
		return fmt.Errorf("failed to add listener: %w", err)
	}

	go func() {
		if err := b.server.Serve(); err != nil {
			b.log.Error("MQTT server error", "error", err)
		}
	}()

	b.addr = addr
	b.running = true
	b.log.Info("broker listening", "address", addr)
	return nil
}

// resolveAddress replaces port 0 with a free port so the address can be
// handed to clients.
func resolveAddress(addr string) (string, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("invalid broker address %q: %w", addr, err)
	}
	if port != "0" {
		return addr, nil
	}
	if host == "" {
		host = "127.0.0.1"
	}
	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return "", fmt.Errorf("finding free port: %w", err)
	}
	defer l.Close()
	return l.Addr().String(), nil
}

// Stop closes the server, waiting at most timeout.
func (b *Broker) Stop(timeout time.Duration) error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	b.running = false
	b.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- b.server.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to close server: %w", err)
		}
		return nil
	case <-time.After(timeout):
		return errors.New("broker shutdown timed out")
	}
}

// Addr returns the host:port the broker listens on.
func (b *Broker) Addr() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.addr
}

// HostPort splits Addr for client configuration.
func (b *Broker) HostPort() (string, int) {
	host, port, _ := net.SplitHostPort(b.Addr())
	p, _ := net.LookupPort("tcp", port)
	if host == "" || host == "::" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return host, p
}

func (b *Broker) IsRunning() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.running
}

// Publish injects a message from the broker itself.
func (b *Broker) Publish(topic string, payload []byte, qos byte, retain bool) error {
	if !b.IsRunning() {
		return errors.New("broker is not running")
	}
	return b.server.Publish(topic, payload, retain, qos)
}

// Devices returns the last $state seen for every device.
func (b *Broker) Devices() map[string]string {
	return b.hook.Devices()
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	return len(b.server.Clients.GetAll())
}
