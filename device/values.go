package device

import (
	"fmt"

	"github.com/schaze/homie5"
)

func (d *Device) lookup(nodeID, propID homie5.HomieID) (homie5.PropertyDescription, error) {
	d.mu.RLock()
	prop, ok := d.desc.WithPropertyByID(nodeID, propID)
	d.mu.RUnlock()
	if !ok {
		return homie5.PropertyDescription{}, fmt.Errorf("%w: %s/%s", homie5.ErrPropertyNotFound, nodeID, propID)
	}
	return prop, nil
}

func checkValue(v homie5.Value, prop homie5.PropertyDescription, nodeID, propID homie5.HomieID) error {
	if v == nil {
		return fmt.Errorf("%w: no value for %s/%s", homie5.ErrInvalidHomieValue, nodeID, propID)
	}
	if !homie5.ValidateValue(v, prop) {
		return fmt.Errorf("%w: %q for %s/%s", homie5.ErrInvalidHomieValue, v.String(), nodeID, propID)
	}
	return nil
}

// SetValue stores the value of a property and publishes it when the device
// is running.  The value must be valid for the property's description.
func (d *Device) SetValue(nodeID, propID homie5.HomieID, v homie5.Value) error {
	prop, err := d.lookup(nodeID, propID)
	if err != nil {
		return err
	}
	if err := checkValue(v, prop, nodeID, propID); err != nil {
		return err
	}

	ptr := homie5.NewPropertyPointer(nodeID, propID)
	return d.doOrLocal(func(c Client) error {
		d.mu.Lock()
		d.values[ptr] = v
		d.mu.Unlock()
		if c == nil {
			return nil
		}
		return c.Publish(d.proto.PublishValue(nodeID, propID, v.String(), prop.Retained))
	})
}

// SetValueString parses raw against the property's description and stores it.
func (d *Device) SetValueString(nodeID, propID homie5.HomieID, raw string) error {
	prop, err := d.lookup(nodeID, propID)
	if err != nil {
		return err
	}
	v, err := homie5.ParseValue(raw, prop)
	if err != nil {
		return err
	}
	return d.SetValue(nodeID, propID, v)
}

// SetTarget publishes the value a property is moving towards.
func (d *Device) SetTarget(nodeID, propID homie5.HomieID, v homie5.Value) error {
	prop, err := d.lookup(nodeID, propID)
	if err != nil {
		return err
	}
	if err := checkValue(v, prop, nodeID, propID); err != nil {
		return err
	}

	ptr := homie5.NewPropertyPointer(nodeID, propID)
	return d.doOrLocal(func(c Client) error {
		d.mu.Lock()
		d.targets[ptr] = v
		d.mu.Unlock()
		if c == nil {
			return nil
		}
		return c.Publish(d.proto.PublishTarget(nodeID, propID, v.String(), prop.Retained))
	})
}

// Log publishes msg to the device's $log/<level> topic.
func (d *Device) Log(level homie5.DeviceLogLevel, msg string) error {
	return d.do(func(c Client) error {
		return c.Publish(d.proto.PublishLog(level, msg))
	})
}

// Alert raises, or updates, the alert alertID.
func (d *Device) Alert(alertID homie5.HomieID, msg string) error {
	return d.do(func(c Client) error {
		return c.Publish(d.proto.PublishAlert(alertID, msg))
	})
}

// ClearAlert removes the retained alert alertID.
func (d *Device) ClearAlert(alertID homie5.HomieID) error {
	return d.do(func(c Client) error {
		return c.Publish(d.proto.ClearAlert(alertID))
	})
}
