package controller

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schaze/homie5"
	"github.com/schaze/homie5/device"
	"github.com/schaze/homie5/internal/broker"
	"github.com/schaze/homie5/mqtt"
)

func TestControllerOverBroker(t *testing.T) {
	b, err := broker.New(broker.Options{Address: "127.0.0.1:0"})
	require.NoError(t, err)
	require.NoError(t, b.Start(context.Background()))
	t.Cleanup(func() { _ = b.Stop(5 * time.Second) })
	host, port := b.HostPort()

	d := device.New("light-1", homie5.DefaultDomain, lightDescription())
	d.SetPropertyHandler("light", "brightness", func(dev *device.Device, prop homie5.PropertyRef, v homie5.Value) bool {
		return dev.SetValue(prop.NodeID(), prop.PropID(), v) == nil
	})
	require.NoError(t, d.SetValue("light", "brightness", homie5.IntegerValue(10)))

	will := d.Will()
	devClient, err := mqtt.Connect(mqtt.Config{Host: host, Port: port, ClientID: "light-1", Will: &will})
	require.NoError(t, err)
	t.Cleanup(func() { _ = devClient.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = d.RunWithContext(ctx, devClient) }()

	ctlClient, err := mqtt.Connect(mqtt.Config{Host: host, Port: port, ClientID: "controller"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctlClient.Close() })

	c := New(ctlClient, homie5.DefaultDomain)
	require.NoError(t, c.Start())
	t.Cleanup(func() { _ = c.Stop() })

	ref := homie5.NewDeviceRef(homie5.DefaultDomain, "light-1")
	brightness := homie5.PropertyRefFromNode(homie5.NodeRefFromDevice(ref, "light"), "brightness")

	require.Eventually(t, func() bool {
		st, ok := c.State(brightness)
		return ok && homie5.ValuesEqual(st.Value, homie5.IntegerValue(10))
	}, 5*time.Second, 10*time.Millisecond)

	dev, ok := c.Device(ref)
	require.True(t, ok)
	assert.Equal(t, homie5.StatusReady, dev.State)
	require.NotNil(t, dev.Description)
	assert.Equal(t, d.Description().Version, dev.Description.Version)

	require.NoError(t, c.Set(brightness, homie5.IntegerValue(60)))
	require.Eventually(t, func() bool {
		st, ok := c.State(brightness)
		return ok && homie5.ValuesEqual(st.Value, homie5.IntegerValue(60))
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, d.Remove())
	require.Eventually(t, func() bool {
		_, ok := c.Device(ref)
		return !ok
	}, 5*time.Second, 10*time.Millisecond)
}
