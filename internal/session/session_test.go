package session

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schaze/homie5"
	"github.com/schaze/homie5/capture"
	"github.com/schaze/homie5/discovery"
	"github.com/schaze/homie5/internal/broker"
	"github.com/schaze/homie5/internal/config"
)

type stubFinder struct {
	broker discovery.Broker
	err    error
	calls  int
}

func (s *stubFinder) Find(context.Context) (discovery.Broker, error) {
	s.calls++
	return s.broker, s.err
}

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

func TestResolveBroker(t *testing.T) {
	cfg := &config.Config{}
	cfg.Discovery.Enabled = true
	cfg.MQTT.Broker.Port = 1883
	finder := &stubFinder{broker: discovery.Broker{Instance: "nas", Addresses: []string{"10.0.0.5"}, Port: 8883}}

	require.NoError(t, ResolveBroker(context.Background(), cfg, finder, discard()))
	assert.Equal(t, "10.0.0.5", cfg.MQTT.Broker.Host)
	assert.Equal(t, 8883, cfg.MQTT.Broker.Port)
}

func TestResolveBrokerSkipped(t *testing.T) {
	finder := &stubFinder{}

	cfg := &config.Config{}
	cfg.MQTT.Broker.Host = ""
	require.NoError(t, ResolveBroker(context.Background(), cfg, finder, discard()))

	cfg.Discovery.Enabled = true
	cfg.MQTT.Broker.Host = "broker.lan"
	require.NoError(t, ResolveBroker(context.Background(), cfg, finder, discard()))

	assert.Zero(t, finder.calls)
	assert.Equal(t, "broker.lan", cfg.MQTT.Broker.Host)
}

func TestResolveBrokerNotFound(t *testing.T) {
	cfg := &config.Config{}
	cfg.Discovery.Enabled = true
	err := ResolveBroker(context.Background(), cfg, &stubFinder{err: discovery.ErrNotFound}, discard())
	assert.True(t, errors.Is(err, discovery.ErrNotFound))
}

func TestOpenWithCapture(t *testing.T) {
	b, err := broker.New(broker.Options{Address: "127.0.0.1:0"})
	require.NoError(t, err)
	require.NoError(t, b.Start(context.Background()))
	t.Cleanup(func() { _ = b.Stop(5 * time.Second) })
	host, port := b.HostPort()

	path := filepath.Join(t.TempDir(), "session.hcap")
	cfg := &config.Config{}
	cfg.MQTT.Broker.Host = host
	cfg.MQTT.Broker.Port = port
	cfg.MQTT.Broker.ClientID = "session-test"
	cfg.Capture.Enabled = true
	cfg.Capture.Path = path

	s, err := Open(context.Background(), cfg, nil, discard())
	require.NoError(t, err)
	_, recording := s.Client.(*capture.RecordingClient)
	assert.True(t, recording)

	proto, _ := homie5.NewDeviceProtocol("probe", homie5.DefaultDomain)
	require.NoError(t, s.Client.Publish(proto.PublishState(homie5.StatusReady)))
	require.NoError(t, s.Close())

	_, err = os.Stat(path)
	require.NoError(t, err)
	r, err := capture.NewReader(path)
	require.NoError(t, err)
	defer r.Close()
	rec, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "homie/5/probe/$state", rec.Topic)
	assert.Equal(t, capture.DirectionOut, rec.Direction)
}
