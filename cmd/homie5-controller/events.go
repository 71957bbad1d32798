package main

import (
	"fmt"

	"github.com/schaze/homie5"
	"github.com/schaze/homie5/controller"
)

// formatEvent renders an event as a single line for watch output and the
// shell.
func formatEvent(ev controller.Event) string {
	switch m := ev.Message.(type) {
	case homie5.DeviceStateMessage:
		return fmt.Sprintf("%s %s %s", ev.Kind, ev.Device.ID, m.State)
	case homie5.DeviceDescriptionMessage:
		return fmt.Sprintf("%s %s version=%d", ev.Kind, ev.Device.ID, m.Description.Version)
	case homie5.DeviceLogMessage:
		return fmt.Sprintf("%s %s [%s] %s", ev.Kind, ev.Device.ID, m.Level, m.Text)
	case homie5.DeviceAlertMessage:
		if m.Text == "" {
			return fmt.Sprintf("%s %s %s cleared", ev.Kind, ev.Device.ID, m.AlertID)
		}
		return fmt.Sprintf("%s %s %s: %s", ev.Kind, ev.Device.ID, m.AlertID, m.Text)
	case homie5.BroadcastMessage:
		return fmt.Sprintf("%s %s/%s %s", ev.Kind, m.Domain, m.Subtopic, m.Data)
	}

	switch ev.Kind {
	case controller.PropertyValueChanged, controller.PropertyTargetChanged:
		return fmt.Sprintf("%s %s/%s/%s %s", ev.Kind,
			ev.Device.ID, ev.Property.NodeID(), ev.Property.PropID(), valueString(ev.Value))
	}
	return fmt.Sprintf("%s %s", ev.Kind, ev.Device.ID)
}
