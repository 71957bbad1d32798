package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/schaze/homie5"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
mqtt:
  broker:
    host: "broker.local"
    port: 1884
    client_id: "test-client"
homie:
  domain: "test"
  device_id: "kitchen-light"
discovery:
  timeout: 2
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.local")
	}
	if cfg.MQTT.Broker.Port != 1884 {
		t.Errorf("MQTT.Broker.Port = %d, want 1884", cfg.MQTT.Broker.Port)
	}
	if cfg.Homie.Domain != homie5.MustHomieDomain("test") {
		t.Errorf("Homie.Domain = %v, want test", cfg.Homie.Domain)
	}
	if cfg.Homie.DeviceID != "kitchen-light" {
		t.Errorf("Homie.DeviceID = %q", cfg.Homie.DeviceID)
	}
	// defaults survive for keys the file does not set
	if cfg.MQTT.Reconnect.MaxDelay != 60 {
		t.Errorf("MQTT.Reconnect.MaxDelay = %d, want 60", cfg.MQTT.Reconnect.MaxDelay)
	}
	if cfg.DiscoveryTimeout() != 2*time.Second {
		t.Errorf("DiscoveryTimeout() = %v", cfg.DiscoveryTimeout())
	}
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Homie.Domain.IsDefault() {
		t.Errorf("Homie.Domain = %v, want homie", cfg.Homie.Domain)
	}
	if !strings.HasPrefix(cfg.MQTT.Broker.ClientID, "homie5-") {
		t.Errorf("generated client id = %q", cfg.MQTT.Broker.ClientID)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_InvalidDomain(t *testing.T) {
	_, err := Load(writeConfig(t, "homie:\n  domain: \"a/b\"\n"))
	if err == nil {
		t.Error("Load() expected error for invalid domain, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	_, err := Load(writeConfig(t, `
mqtt:
  broker:
    port: 70000
homie:
  device_id: "Not Valid"
`))
	if err == nil {
		t.Fatal("Load() expected validation error, got nil")
	}
	for _, want := range []string{"mqtt.broker.port", "homie.device_id"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HOMIE_MQTT_HOST", "10.0.0.5")
	t.Setenv("HOMIE_MQTT_PORT", "8883")
	t.Setenv("HOMIE_MQTT_USERNAME", "user")
	t.Setenv("HOMIE_MQTT_PASSWORD", "secret")
	t.Setenv("HOMIE_MQTT_CLIENT_ID", "env-client")
	t.Setenv("HOMIE_MQTT_HOMIE_DOMAIN", "envdomain")
	t.Setenv("HOMIE_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Broker.Host != "10.0.0.5" || cfg.MQTT.Broker.Port != 8883 {
		t.Errorf("broker = %s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port)
	}
	if cfg.MQTT.Auth.Username != "user" || cfg.MQTT.Auth.Password != "secret" {
		t.Errorf("auth = %+v", cfg.MQTT.Auth)
	}
	if cfg.MQTT.Broker.ClientID != "env-client" {
		t.Errorf("client id = %q", cfg.MQTT.Broker.ClientID)
	}
	if cfg.Homie.Domain.String() != "envdomain" {
		t.Errorf("domain = %v", cfg.Homie.Domain)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
}

func TestEnvOverrides_BadPort(t *testing.T) {
	t.Setenv("HOMIE_MQTT_PORT", "eighty")
	if _, err := Load(""); err == nil {
		t.Error("Load() expected error for bad HOMIE_MQTT_PORT")
	}
}

func TestMQTTConfig_ClientConfig(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	_, will := homie5.NewDeviceProtocol(homie5.MustHomieID("light-1"), cfg.Homie.Domain)

	cc := cfg.MQTT.ClientConfig(&will)
	if cc.BrokerURL() != "tcp://localhost:1883" {
		t.Errorf("BrokerURL() = %q", cc.BrokerURL())
	}
	if cc.ConnectRetryInterval != time.Second || cc.MaxReconnectInterval != time.Minute {
		t.Errorf("reconnect = %v/%v", cc.ConnectRetryInterval, cc.MaxReconnectInterval)
	}
	if cc.KeepAlive != 30*time.Second {
		t.Errorf("KeepAlive = %v", cc.KeepAlive)
	}
	if cc.Will == nil || cc.Will.Topic != "homie/5/light-1/$state" {
		t.Errorf("Will = %+v", cc.Will)
	}
}
