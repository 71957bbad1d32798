package broker

import (
	"bytes"
	"log/slog"
	"maps"
	"sync"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/packets"

	"github.com/schaze/homie5"
)

// MessageFunc receives Homie messages published through the broker.
type MessageFunc func(topic string, msg homie5.Message)

// HomieHook decodes Homie traffic as it passes the broker and keeps track of
// device states.  Publishes outside the convention are ignored.
type HomieHook struct {
	mqtt.HookBase

	log       *slog.Logger
	onMessage MessageFunc

	mu      sync.RWMutex
	devices map[string]string
}

func NewHomieHook(log *slog.Logger, onMessage MessageFunc) *HomieHook {
	return &HomieHook{
		log:       log,
		onMessage: onMessage,
		devices:   make(map[string]string),
	}
}

func (h *HomieHook) ID() string {
	return "homie5-hook"
}

func (h *HomieHook) Provides(b byte) bool {
	return bytes.Contains([]byte{mqtt.OnPublished}, []byte{b})
}

// OnPublished is called after a client publish has been processed.
func (h *HomieHook) OnPublished(cl *mqtt.Client, pk packets.Packet) {
	msg, err := homie5.ParseMessage(pk.TopicName, pk.Payload)
	if err != nil {
		return
	}

	switch m := msg.(type) {
	case homie5.DeviceStateMessage:
		h.mu.Lock()
		h.devices[m.Device.String()] = m.State.String()
		h.mu.Unlock()
		h.log.Info("device state", "device", m.Device.String(), "state", m.State, "client", cl.ID)
	case homie5.DeviceRemovalMessage:
		h.mu.Lock()
		delete(h.devices, m.Device.String())
		h.mu.Unlock()
		h.log.Info("device removed", "device", m.Device.String(), "client", cl.ID)
	case homie5.DeviceLogMessage:
		h.log.Debug("device log", "device", m.Device.String(), "level", m.Level, "text", m.Text)
	}

	if h.onMessage != nil {
		h.onMessage(pk.TopicName, msg)
	}
}

// Devices returns a copy of the device state table, keyed by device topic.
func (h *HomieHook) Devices() map[string]string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return maps.Clone(h.devices)
}
