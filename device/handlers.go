package device

import (
	"github.com/schaze/homie5"
)

// handleSet receives messages on the device's set topics.
func (d *Device) handleSet(topic string, payload []byte) error {
	msg, err := homie5.ParseMessage(topic, payload)
	if err != nil {
		return err
	}
	set, ok := msg.(homie5.PropertySetMessage)
	if !ok || set.Property.DeviceRef() != d.Ref() {
		return nil
	}

	log := d.logger()

	d.mu.RLock()
	prop, found := d.desc.GetProperty(set.Property.Pointer)
	d.mu.RUnlock()
	if !found || !prop.Settable {
		log.Warn("set command for unknown or read-only property", "property", set.Property.String())
		return nil
	}

	value, err := homie5.ParseValue(set.Value, prop)
	if err != nil {
		log.Warn("ignoring invalid set command", "property", set.Property.String(), "value", set.Value, "error", err)
		return nil
	}

	if !d.dispatch(set.Property, value) {
		log.Debug("set command not handled", "property", set.Property.String(), "value", set.Value)
	}
	return nil
}

// dispatch runs the set handler chain: global, node, property.
func (d *Device) dispatch(ref homie5.PropertyRef, value homie5.Value) bool {
	d.mu.RLock()
	chain := []SetHandler{
		d.globalHandler,
		d.nodeHandlers[ref.NodeID()],
		d.propertyHandlers[ref.Pointer],
	}
	d.mu.RUnlock()

	for _, h := range chain {
		if h != nil && h(d, ref, value) {
			return true
		}
	}
	return false
}

func (d *Device) handleBroadcast(topic string, payload []byte) error {
	msg, err := homie5.ParseMessage(topic, payload)
	if err != nil {
		return err
	}
	b, ok := msg.(homie5.BroadcastMessage)
	if !ok {
		return nil
	}

	d.mu.RLock()
	h := d.broadcastHandler
	d.mu.RUnlock()
	if h != nil {
		h(d, b.Subtopic, b.Data)
	}
	return nil
}
