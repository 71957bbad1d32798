// Package config loads the settings shared by the homie5 command line tools.
//
// Configuration comes from an optional YAML file layered over defaults, and
// is then overridden by HOMIE_* environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/schaze/homie5"
	"github.com/schaze/homie5/mqtt"
)

// Config is the root configuration structure.
type Config struct {
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Homie     HomieConfig     `yaml:"homie"`
	Logging   LoggingConfig   `yaml:"logging"`
	Capture   CaptureConfig   `yaml:"capture"`
	Discovery DiscoveryConfig `yaml:"discovery"`
}

// MQTTConfig contains broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
	KeepAlive int                 `yaml:"keep_alive"` // seconds
}

type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig holds the retry intervals in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// HomieConfig selects the homie-domain and the id a device announces itself with.
type HomieConfig struct {
	Domain   homie5.HomieDomain `yaml:"domain"`
	DeviceID string             `yaml:"device_id"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// CaptureConfig enables recording of Homie traffic to a CBOR file.
type CaptureConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DiscoveryConfig controls mDNS lookup of a broker when no host is set.
type DiscoveryConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Interface string `yaml:"interface"`
	Timeout   int    `yaml:"timeout"` // seconds
}

// Load reads path, if given, over the defaults and applies environment
// overrides.  An empty path yields defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if cfg.MQTT.Broker.ClientID == "" {
		cfg.MQTT.Broker.ClientID = "homie5-" + uuid.NewString()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host: "localhost",
				Port: 1883,
			},
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			KeepAlive: 30,
		},
		Homie: HomieConfig{
			Domain:   homie5.DefaultDomain,
			DeviceID: "homie5-light",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Capture: CaptureConfig{
			Path: "homie5-capture.hcap",
		},
		Discovery: DiscoveryConfig{
			Timeout: 5,
		},
	}
}

// applyEnvOverrides applies HOMIE_* environment variables.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("HOMIE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HOMIE_MQTT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HOMIE_MQTT_PORT: %w", err)
		}
		cfg.MQTT.Broker.Port = port
	}
	if v := os.Getenv("HOMIE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HOMIE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("HOMIE_MQTT_CLIENT_ID"); v != "" {
		cfg.MQTT.Broker.ClientID = v
	}
	if v := os.Getenv("HOMIE_MQTT_HOMIE_DOMAIN"); v != "" {
		d, err := homie5.NewHomieDomain(v)
		if err != nil {
			return fmt.Errorf("HOMIE_MQTT_HOMIE_DOMAIN: %w", err)
		}
		cfg.Homie.Domain = d
	}
	if v := os.Getenv("HOMIE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.MQTT.Broker.Host == "" && !c.Discovery.Enabled {
		errs = append(errs, "mqtt.broker.host is required unless discovery is enabled")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.Reconnect.MaxDelay < c.MQTT.Reconnect.InitialDelay {
		errs = append(errs, "mqtt.reconnect.max_delay must not be below initial_delay")
	}
	if c.Homie.Domain.IsAll() {
		errs = append(errs, "homie.domain cannot be the + wildcard")
	}
	if _, err := homie5.NewHomieID(c.Homie.DeviceID); err != nil {
		errs = append(errs, "homie.device_id: "+err.Error())
	}
	if c.Capture.Enabled && c.Capture.Path == "" {
		errs = append(errs, "capture.path is required when capture is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// DiscoveryTimeout returns the mDNS browse timeout as a Duration.
func (c *Config) DiscoveryTimeout() time.Duration {
	return time.Duration(c.Discovery.Timeout) * time.Second
}

// ClientConfig converts the mqtt section into transport options.  will may
// be nil for controllers.
func (m MQTTConfig) ClientConfig(will *homie5.LastWill) mqtt.Config {
	return mqtt.Config{
		Host:                 m.Broker.Host,
		Port:                 m.Broker.Port,
		TLS:                  m.Broker.TLS,
		ClientID:             m.Broker.ClientID,
		Username:             m.Auth.Username,
		Password:             m.Auth.Password,
		ConnectRetryInterval: time.Duration(m.Reconnect.InitialDelay) * time.Second,
		MaxReconnectInterval: time.Duration(m.Reconnect.MaxDelay) * time.Second,
		KeepAlive:            time.Duration(m.KeepAlive) * time.Second,
		Will:                 will,
	}
}
