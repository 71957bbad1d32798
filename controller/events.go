package controller

import "github.com/schaze/homie5"

// EventKind classifies an Event.
type EventKind int

const (
	DeviceDiscovered EventKind = iota
	DeviceStateChanged
	DescriptionUpdated
	PropertyValueChanged
	PropertyTargetChanged
	DeviceLogReceived
	DeviceAlertChanged
	BroadcastReceived
	MetaUpdated
	DeviceRemoved
)

func (k EventKind) String() string {
	switch k {
	case DeviceDiscovered:
		return "device-discovered"
	case DeviceStateChanged:
		return "device-state"
	case DescriptionUpdated:
		return "description"
	case PropertyValueChanged:
		return "property-value"
	case PropertyTargetChanged:
		return "property-target"
	case DeviceLogReceived:
		return "device-log"
	case DeviceAlertChanged:
		return "device-alert"
	case BroadcastReceived:
		return "broadcast"
	case MetaUpdated:
		return "meta"
	case DeviceRemoved:
		return "device-removed"
	}
	return "unknown"
}

// Event is emitted after the store has been updated.  Value is set for
// property events, Message holds the decoded homie5.Message or
// meta.Message that caused it.
type Event struct {
	Kind     EventKind
	Device   homie5.DeviceRef
	Property homie5.PropertyRef
	Value    homie5.Value
	Message  any
}
