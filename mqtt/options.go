package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/schaze/homie5"
)

const (
	// defaultConnectTimeout is the maximum time to wait for initial connection.
	defaultConnectTimeout = 10 * time.Second

	// defaultOperationTimeout bounds publish, subscribe and unsubscribe acknowledgements.
	defaultOperationTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 1000 // milliseconds

	defaultKeepAlive = 30 * time.Second

	maxQoS = 2

	tlsMinVersion = tls.VersionTLS12
)

// Config describes how to reach the broker.
type Config struct {
	Host     string
	Port     int
	TLS      bool
	ClientID string

	Username string
	Password string

	// ConnectRetryInterval is the delay between attempts while the first
	// connection is pending.  MaxReconnectInterval caps the backoff after
	// a connection was lost.
	ConnectRetryInterval time.Duration
	MaxReconnectInterval time.Duration
	KeepAlive            time.Duration

	// ConnectTimeout bounds Connect.  Zero means 10s.
	ConnectTimeout time.Duration

	// Will is registered with the broker when set.  Devices pass the
	// LastWill returned by homie5.NewDeviceProtocol.
	Will *homie5.LastWill
}

// BrokerURL returns the paho broker URL for cfg.
func (cfg Config) BrokerURL() string {
	scheme := "tcp"
	if cfg.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, cfg.Port)
}

// buildClientOptions creates paho options from cfg.
func buildClientOptions(cfg Config) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL())
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	// subscriptions are restored by the client itself
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	if cfg.ConnectRetryInterval > 0 {
		opts.SetConnectRetryInterval(cfg.ConnectRetryInterval)
	}
	if cfg.MaxReconnectInterval > 0 {
		opts.SetMaxReconnectInterval(cfg.MaxReconnectInterval)
	}

	opts.SetConnectTimeout(connectTimeout(cfg))

	keepAlive := cfg.KeepAlive
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	opts.SetKeepAlive(keepAlive)

	// set commands for different properties may be handled concurrently
	opts.SetOrderMatters(false)

	if cfg.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tlsMinVersion})
	}

	if cfg.Will != nil {
		configureWill(opts, *cfg.Will)
	}

	return opts
}

// configureWill registers the device's last will.  For a Homie device this is
// $state "lost", published by the broker when the connection drops without a
// clean disconnect.
func configureWill(opts *pahomqtt.ClientOptions, will homie5.LastWill) {
	opts.SetBinaryWill(will.Topic, will.Payload, byte(will.QoS), will.Retain)
}

func connectTimeout(cfg Config) time.Duration {
	if cfg.ConnectTimeout > 0 {
		return cfg.ConnectTimeout
	}
	return defaultConnectTimeout
}
