package controller

import (
	"fmt"
	"maps"
	"slices"

	"github.com/schaze/homie5"
)

// Device is what the controller knows about a discovered device.  Values
// are only kept for retained properties and only once the description is
// known.
type Device struct {
	Ref         homie5.DeviceRef
	State       homie5.DeviceStatus
	Description *homie5.DeviceDescription
	Properties  PropertyValueStore

	// Alerts maps alert ids to their text.
	Alerts map[homie5.HomieID]string

	// Meta and Tags are keyed by the topic of the device, node or property
	// they were published for.
	Meta map[string]map[string]string
	Tags map[string][]string
}

func newDevice(ref homie5.DeviceRef, state homie5.DeviceStatus) *Device {
	return &Device{
		Ref:        ref,
		State:      state,
		Properties: NewPropertyValueStore(),
		Alerts:     make(map[homie5.HomieID]string),
		Meta:       make(map[string]map[string]string),
		Tags:       make(map[string][]string),
	}
}

// Clone returns a deep copy.
func (d *Device) Clone() Device {
	out := *d
	if d.Description != nil {
		desc := d.Description.Clone()
		out.Description = &desc
	}
	out.Properties = d.Properties.Clone()
	out.Alerts = maps.Clone(d.Alerts)
	out.Meta = make(map[string]map[string]string, len(d.Meta))
	for k, v := range d.Meta {
		out.Meta[k] = maps.Clone(v)
	}
	out.Tags = make(map[string][]string, len(d.Tags))
	for k, v := range d.Tags {
		out.Tags[k] = slices.Clone(v)
	}
	return out
}

// Property looks up the description of a property.
func (d *Device) Property(ptr homie5.PropertyPointer) (homie5.PropertyDescription, bool) {
	if d.Description == nil {
		return homie5.PropertyDescription{}, false
	}
	return d.Description.GetProperty(ptr)
}

// parseValue converts a raw value or target of a property using the
// device's description.
func (d *Device) parseValue(ptr homie5.PropertyPointer, raw string) (homie5.Value, homie5.PropertyDescription, error) {
	if d.Description == nil {
		return nil, homie5.PropertyDescription{}, errNoDescription
	}
	prop, found := d.Description.GetProperty(ptr)
	if !found {
		return nil, prop, fmt.Errorf("%w: %s/%s", homie5.ErrPropertyNotFound, ptr.NodeID, ptr.PropID)
	}
	v, err := homie5.ParseValue(raw, prop)
	if err != nil {
		return nil, prop, err
	}
	return v, prop, nil
}

// pruneProperties drops stored states of properties missing from the
// current description.
func (d *Device) pruneProperties() {
	if d.Description == nil {
		return
	}
	var gone []homie5.PropertyPointer
	for ptr := range d.Properties.All() {
		if _, ok := d.Description.GetProperty(ptr); !ok {
			gone = append(gone, ptr)
		}
	}
	for _, ptr := range gone {
		d.Properties.RemoveProperty(ptr)
	}
}
