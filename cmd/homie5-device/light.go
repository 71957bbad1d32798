package main

import (
	"github.com/schaze/homie5"
	"github.com/schaze/homie5/device"
)

const (
	lightNode      homie5.HomieID = "light"
	stateProp      homie5.HomieID = "state"
	brightnessProp homie5.HomieID = "brightness"
)

func lightDescription(name string) homie5.DeviceDescription {
	return homie5.NewDeviceDescriptionBuilder().
		Name(name).
		Type("light").
		AddNode(lightNode, homie5.NewNodeDescriptionBuilder().
			Name("Light node").
			AddProperty(stateProp, homie5.NewPropertyDescriptionBuilder(homie5.DataTypeBoolean).
				Name("Light state").
				Format(homie5.BooleanFormat{FalseVal: "off", TrueVal: "on"}).
				Settable(true).
				Build()).
			AddProperty(brightnessProp, homie5.NewPropertyDescriptionBuilder(homie5.DataTypeInteger).
				Name("Brightness").
				Format(homie5.IntegerRange{Min: homie5.Ptr[int64](0), Max: homie5.Ptr[int64](100)}).
				Unit(homie5.UnitPercent).
				Settable(true).
				Build()).
			Build()).
		Build()
}

// newLight creates the light, off and at zero brightness.  A set command
// first publishes the target, then switches the lamp and publishes the new
// value.
func newLight(id homie5.HomieID, domain homie5.HomieDomain, name string) *device.Device {
	d := device.New(id, domain, lightDescription(name))
	_ = d.SetValue(lightNode, stateProp, homie5.BoolValue(false))
	_ = d.SetValue(lightNode, brightnessProp, homie5.IntegerValue(0))

	d.SetNodeHandler(lightNode, applySet)
	return d
}

func applySet(d *device.Device, prop homie5.PropertyRef, v homie5.Value) bool {
	if err := d.SetTarget(prop.NodeID(), prop.PropID(), v); err != nil {
		return false
	}
	// the physical lamp would be switched here
	return d.SetValue(prop.NodeID(), prop.PropID(), v) == nil
}
