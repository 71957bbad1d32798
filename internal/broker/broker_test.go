package broker

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/packets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schaze/homie5"
)

func startBroker(t *testing.T, opts Options) *Broker {
	t.Helper()
	if opts.Address == "" {
		opts.Address = "127.0.0.1:0"
	}
	b, err := New(opts)
	require.NoError(t, err)
	require.NoError(t, b.Start(context.Background()))
	t.Cleanup(func() { _ = b.Stop(5 * time.Second) })
	return b
}

func TestBroker_StartStop(t *testing.T) {
	b, err := New(Options{Address: "127.0.0.1:0"})
	require.NoError(t, err)
	assert.False(t, b.IsRunning())

	require.NoError(t, b.Start(context.Background()))
	assert.True(t, b.IsRunning())
	assert.Error(t, b.Start(context.Background()), "second start must fail")

	host, port := b.HostPort()
	assert.Equal(t, "127.0.0.1", host)
	assert.NotZero(t, port)

	require.NoError(t, b.Stop(5*time.Second))
	assert.False(t, b.IsRunning())
	assert.Error(t, b.Publish("homie/5/x/$state", []byte("ready"), 0, true))
}

func TestBroker_StartCancelledContext(t *testing.T) {
	b, err := New(Options{Address: "127.0.0.1:0"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, b.Start(ctx), context.Canceled)
}

func TestResolveAddress(t *testing.T) {
	addr, err := resolveAddress("127.0.0.1:1883")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:1883", addr)

	addr, err = resolveAddress(":0")
	require.NoError(t, err)
	assert.NotEqual(t, "127.0.0.1:0", addr)

	_, err = resolveAddress("no-port")
	assert.Error(t, err)
}

func TestBroker_TracksDeviceStates(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []homie5.Message
	)
	b := startBroker(t, Options{
		OnMessage: func(_ string, msg homie5.Message) {
			mu.Lock()
			seen = append(seen, msg)
			mu.Unlock()
		},
	})

	require.NoError(t, b.Publish("homie/5/dev-1/$state", []byte("ready"), 2, true))
	assert.Eventually(t, func() bool {
		return b.Devices()["homie/5/dev-1"] == "ready"
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, b.Publish("homie/5/dev-1/$state", nil, 2, true))
	assert.Eventually(t, func() bool {
		_, ok := b.Devices()["homie/5/dev-1"]
		return !ok
	}, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	assert.IsType(t, homie5.DeviceStateMessage{}, seen[0])
	assert.IsType(t, homie5.DeviceRemovalMessage{}, seen[1])
}

func TestHomieHook_OnPublished(t *testing.T) {
	var got []string
	hook := NewHomieHook(slog.New(slog.DiscardHandler), func(topic string, _ homie5.Message) {
		got = append(got, topic)
	})
	assert.True(t, hook.Provides(mqtt.OnPublished))
	assert.False(t, hook.Provides(mqtt.OnConnect))

	cl := &mqtt.Client{ID: "light-1"}
	hook.OnPublished(cl, packets.Packet{TopicName: "homie/5/light-1/$state", Payload: []byte("init")})
	hook.OnPublished(cl, packets.Packet{TopicName: "homie/5/light-1/$log/warn", Payload: []byte("hot")})
	hook.OnPublished(cl, packets.Packet{TopicName: "other/topic", Payload: []byte("ignored")})
	hook.OnPublished(cl, packets.Packet{TopicName: "homie/5/light-2/$state", Payload: []byte("bogus")})

	assert.Equal(t, []string{"homie/5/light-1/$state", "homie/5/light-1/$log/warn"}, got)
	assert.Equal(t, map[string]string{"homie/5/light-1": "init"}, hook.Devices())
}
