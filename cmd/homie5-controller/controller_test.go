package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schaze/homie5"
	"github.com/schaze/homie5/capture"
	"github.com/schaze/homie5/controller"
)

type recordingClient struct {
	offlineClient
	published []homie5.Publish
}

func (r *recordingClient) Publish(p homie5.Publish) error {
	r.published = append(r.published, p)
	return nil
}

func testDescription(t *testing.T) []byte {
	t.Helper()
	desc := homie5.NewDeviceDescriptionBuilder().
		Name("Test Light").
		AddNode("light", homie5.NewNodeDescriptionBuilder().
			AddProperty("state", homie5.NewPropertyDescriptionBuilder(homie5.DataTypeBoolean).
				Settable(true).
				Build()).
			AddProperty("power", homie5.NewPropertyDescriptionBuilder(homie5.DataTypeFloat).
				Unit("W").
				Build()).
			AddProperty("click", homie5.NewPropertyDescriptionBuilder(homie5.DataTypeString).
				Retained(false).
				Build()).
			Build()).
		Build()
	desc.UpdateVersion()
	b, err := json.Marshal(desc)
	require.NoError(t, err)
	return b
}

func feedLight(t *testing.T, ctl *controller.Controller, id string) {
	t.Helper()
	base := "homie/5/" + id
	require.NoError(t, ctl.Handle(base+"/$state", []byte("ready")))
	require.NoError(t, ctl.Handle(base+"/$description", testDescription(t)))
	require.NoError(t, ctl.Handle(base+"/light/state", []byte("true")))
	require.NoError(t, ctl.Handle(base+"/light/power", []byte("12.5")))
}

func newOfflineController(t *testing.T) (*controller.Controller, *recordingClient) {
	t.Helper()
	client := &recordingClient{}
	ctl := controller.New(client, homie5.DefaultDomain)
	require.NoError(t, ctl.Start())
	return ctl, client
}

func TestParseProperty(t *testing.T) {
	prop, err := parseProperty(homie5.DefaultDomain, "light-1/light/state")
	require.NoError(t, err)
	assert.Equal(t, "homie/5/light-1/light/state", prop.ToTopic())

	for _, bad := range []string{"light-1/light", "light-1/light/state/set", "Light/light/state", "light-1//state", "light-1/light/$x"} {
		_, err := parseProperty(homie5.DefaultDomain, bad)
		assert.Error(t, err, bad)
	}

	_, err = parseProperty(homie5.AllDomains, "light-1/light/state")
	assert.Error(t, err)
}

func TestParseDevice(t *testing.T) {
	ref, err := parseDevice(homie5.DefaultDomain, "light-1")
	require.NoError(t, err)
	assert.Equal(t, homie5.HomieID("light-1"), ref.ID)

	_, err = parseDevice(homie5.DefaultDomain, "Bad_id")
	assert.Error(t, err)
}

func TestPrintDevices(t *testing.T) {
	ctl, _ := newOfflineController(t)
	feedLight(t, ctl, "light-1")
	require.NoError(t, ctl.Handle("homie/5/light-1/$alert/battery", []byte("low")))
	require.NoError(t, ctl.Handle("homie/5/light-2/$state", []byte("init")))

	var buf bytes.Buffer
	require.NoError(t, printDevices(&buf, ctl.Devices()))
	out := buf.String()

	assert.Contains(t, out, "DEVICE")
	assert.Contains(t, out, "light-1 (Test Light)")
	assert.Contains(t, out, "light/state")
	assert.Contains(t, out, "settable")
	assert.Contains(t, out, "12.5 W")
	assert.Contains(t, out, "non-retained")
	assert.Contains(t, out, "$alert/battery")
	assert.Contains(t, out, "light-2")
	assert.Contains(t, out, "init")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("light-1")), bytes.Index(buf.Bytes(), []byte("light-2")))
}

func TestPrintDevicesJSON(t *testing.T) {
	ctl, _ := newOfflineController(t)
	feedLight(t, ctl, "light-1")

	var buf bytes.Buffer
	require.NoError(t, printDevicesJSON(&buf, ctl.Devices()))

	var out []deviceSummary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "light-1", out[0].Device)
	assert.Equal(t, "homie", out[0].Domain)
	assert.Equal(t, "ready", out[0].State)
	require.Len(t, out[0].Properties, 3)
	assert.Equal(t, "light/click", out[0].Properties[0].Property)
	assert.Empty(t, out[0].Properties[0].Value)
	assert.Equal(t, "light/state", out[0].Properties[2].Property)
	assert.Equal(t, "true", out[0].Properties[2].Value)
}

func TestFormatEvent(t *testing.T) {
	ref := homie5.NewDeviceRef(homie5.DefaultDomain, "light-1")
	prop := homie5.PropertyRefFromNode(homie5.NodeRefFromDevice(ref, "light"), "state")

	tests := []struct {
		ev   controller.Event
		want string
	}{
		{controller.Event{Kind: controller.DeviceDiscovered, Device: ref, Message: homie5.DeviceStateMessage{Device: ref, State: homie5.StatusInit}},
			"device-discovered light-1 init"},
		{controller.Event{Kind: controller.PropertyValueChanged, Device: ref, Property: prop, Value: homie5.BoolValue(true)},
			"property-value light-1/light/state true"},
		{controller.Event{Kind: controller.DeviceAlertChanged, Device: ref, Message: homie5.DeviceAlertMessage{Device: ref, AlertID: "battery"}},
			"device-alert light-1 battery cleared"},
		{controller.Event{Kind: controller.DeviceLogReceived, Device: ref, Message: homie5.DeviceLogMessage{Device: ref, Level: homie5.LogLevelWarn, Text: "hot"}},
			"device-log light-1 [warn] hot"},
		{controller.Event{Kind: controller.DeviceRemoved, Device: ref}, "device-removed light-1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatEvent(tt.ev))
	}
}

func TestReplayFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traffic.hcap")
	rec, err := capture.NewFileRecorder(path)
	require.NoError(t, err)
	now := time.Now()
	for _, r := range []capture.Record{
		{Topic: "homie/5/light-1/$state", Payload: []byte("ready")},
		{Topic: "homie/5/light-1/$description", Payload: testDescription(t)},
		{Topic: "homie/5/light-1/light/state", Payload: []byte("false")},
		{Topic: "homie/5/light-2/$state", Payload: []byte("ready")},
		{Topic: "garbage/topic", Payload: []byte("x")},
	} {
		r.Timestamp = now
		rec.Record(r)
	}
	require.NoError(t, rec.Close())

	var events bytes.Buffer
	ctl, stats, err := replayFile(path, homie5.DefaultDomain, replayOptions{events: true}, &events)
	require.NoError(t, err)
	assert.Equal(t, capture.ReplayStats{Records: 5, Failed: 1}, stats)
	require.Len(t, ctl.Devices(), 2)
	assert.Contains(t, events.String(), "property-value light-1/light/state false")

	st, ok := ctl.State(homie5.NewPropertyRef(homie5.DefaultDomain, "light-1", "light", "state"))
	require.True(t, ok)
	assert.Equal(t, homie5.BoolValue(false), st.Value)

	ctl, stats, err = replayFile(path, homie5.DefaultDomain, replayOptions{device: "light-2"}, &events)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Records)
	devices := ctl.Devices()
	require.Len(t, devices, 1)
	assert.Equal(t, homie5.HomieID("light-2"), devices[0].Ref.ID)

	_, _, err = replayFile(filepath.Join(t.TempDir(), "missing.hcap"), homie5.DefaultDomain, replayOptions{}, &events)
	assert.Error(t, err)
}

func TestReplayFileInvalidDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traffic.hcap")
	rec, err := capture.NewFileRecorder(path)
	require.NoError(t, err)
	rec.Record(capture.Record{Topic: "homie/5/light-1/$state", Payload: []byte("ready")})
	require.NoError(t, rec.Close())

	var events bytes.Buffer
	_, _, err = replayFile(path, homie5.DefaultDomain, replayOptions{device: "Light_1"}, &events)
	require.Error(t, err)
	assert.ErrorIs(t, err, homie5.ErrInvalidHomieID)
}

func TestShellExec(t *testing.T) {
	ctl, client := newOfflineController(t)
	feedLight(t, ctl, "light-1")

	var out bytes.Buffer
	sh := newShell(ctl, homie5.DefaultDomain, &out)

	assert.False(t, sh.exec(""))
	assert.False(t, sh.exec("devices"))
	assert.Contains(t, out.String(), "light-1 (Test Light)")

	out.Reset()
	assert.False(t, sh.exec("set light-1/light/state false"))
	assert.Empty(t, out.String())
	require.NotEmpty(t, client.published)
	last := client.published[len(client.published)-1]
	assert.Equal(t, "homie/5/light-1/light/state/set", last.Topic)
	assert.Equal(t, "false", string(last.Payload))

	out.Reset()
	sh.exec("set light-1/light/power 3")
	assert.Contains(t, out.String(), "Error:")

	out.Reset()
	sh.exec("show light-9")
	assert.Contains(t, out.String(), "unknown device")

	out.Reset()
	sh.exec("broadcast alarm fire in the hall")
	last = client.published[len(client.published)-1]
	assert.Equal(t, "homie/5/$broadcast/alarm", last.Topic)
	assert.Equal(t, "fire in the hall", string(last.Payload))

	sh.exec("events off")
	assert.False(t, sh.events.Load())
	out.Reset()
	sh.handleEvent(controller.Event{Kind: controller.DeviceRemoved})
	assert.Empty(t, out.String())

	sh.exec("frobnicate")
	assert.Contains(t, out.String(), "Unknown command: frobnicate")

	assert.True(t, sh.exec("exit"))
}

func TestRootCmdSubcommands(t *testing.T) {
	cmd := newRootCmd()
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"discover", "set", "broadcast", "remove", "replay", "broker", "shell"})
	assert.NotNil(t, cmd.PersistentFlags().Lookup("domain"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("json"))
}
