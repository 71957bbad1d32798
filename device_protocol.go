package homie5

import "encoding/json"

// DeviceProtocol builds the publishes and subscriptions a device needs.  A
// root device may also publish on behalf of its children with the *ForID
// variants; those check that the description's root matches.
type DeviceProtocol struct {
	device  DeviceRef
	isChild bool
}

// NewDeviceProtocol returns the protocol for a root device and the last will
// to register with the broker.
func NewDeviceProtocol(id HomieID, domain HomieDomain) (DeviceProtocol, LastWill) {
	p := DeviceProtocol{device: DeviceRef{Domain: domain, ID: id}}
	will := LastWill{
		Topic:   p.deviceTopic(id).AddAttr(DeviceAttributeState).Build(),
		Payload: []byte(StatusLost),
		QoS:     AtLeastOnce,
		Retain:  true,
	}
	return p, will
}

// CloneForChild returns a protocol for child device id in the same domain.
func (p DeviceProtocol) CloneForChild(id HomieID) DeviceProtocol {
	return DeviceProtocol{device: DeviceRef{Domain: p.device.Domain, ID: id}, isChild: true}
}

// ForChild returns a protocol for child device id of root.
func ForChild(id HomieID, root DeviceProtocol) DeviceProtocol {
	return root.CloneForChild(id)
}

func (p DeviceProtocol) DeviceRef() DeviceRef { return p.device }
func (p DeviceProtocol) ID() HomieID { return p.device.ID }
func (p DeviceProtocol) Domain() HomieDomain { return p.device.Domain }
func (p DeviceProtocol) IsChild() bool { return p.isChild }

func (p DeviceProtocol) deviceTopic(id HomieID) TopicBuilder {
	return NewTopicBuilderForDevice(p.device.Domain, id)
}

func (p DeviceProtocol) propertyTopic(id, nodeID, propID HomieID) TopicBuilder {
	return NewTopicBuilderForProperty(p.device.Domain, id, nodeID, propID)
}

// checkRoot guards against publishing a description tree that does not hang
// off this device.
func (p DeviceProtocol) checkRoot(id HomieID, desc *DeviceDescription) error {
	if p.isChild {
		return nil
	}
	if id == p.device.ID && desc.Root != "" {
		return ErrNonEmptyRootForRootDevice
	}
	if id != p.device.ID && desc.Root != p.device.ID {
		return ErrRootMismatch
	}
	return nil
}

func (p DeviceProtocol) PublishState(state DeviceStatus) Publish {
	return p.PublishStateForID(p.device.ID, state)
}

func (p DeviceProtocol) PublishStateForID(id HomieID, state DeviceStatus) Publish {
	return Publish{
		Topic:   p.deviceTopic(id).AddAttr(DeviceAttributeState).Build(),
		Payload: []byte(state),
		QoS:     ExactlyOnce,
		Retain:  true,
	}
}

func (p DeviceProtocol) PublishLog(level DeviceLogLevel, msg string) Publish {
	return p.PublishLogForID(p.device.ID, level, msg)
}

func (p DeviceProtocol) PublishLogForID(id HomieID, level DeviceLogLevel, msg string) Publish {
	return Publish{
		Topic:   p.deviceTopic(id).AddAttr(DeviceAttributeLog).AddAttr(string(level)).Build(),
		Payload: []byte(msg),
		QoS:     AtLeastOnce,
		Retain:  true,
	}
}

// PublishAlert raises alert alertID.  Clearing an alert is done with
// ClearAlert, which publishes an empty retained payload.
func (p DeviceProtocol) PublishAlert(alertID HomieID, msg string) Publish {
	return p.PublishAlertForID(p.device.ID, alertID, msg)
}

func (p DeviceProtocol) PublishAlertForID(id, alertID HomieID, msg string) Publish {
	return Publish{
		Topic:   p.deviceTopic(id).AddAttr(DeviceAttributeAlert).AddID(alertID).Build(),
		Payload: []byte(msg),
		QoS:     AtLeastOnce,
		Retain:  true,
	}
}

func (p DeviceProtocol) ClearAlert(alertID HomieID) Publish {
	pub := p.PublishAlert(alertID, "")
	pub.Payload = nil
	return pub
}

func (p DeviceProtocol) PublishValue(nodeID, propID HomieID, value string, retain bool) Publish {
	return p.PublishValueForID(p.device.ID, nodeID, propID, value, retain)
}

func (p DeviceProtocol) PublishValueForID(id, nodeID, propID HomieID, value string, retain bool) Publish {
	return Publish{
		Topic:   p.propertyTopic(id, nodeID, propID).Build(),
		Payload: EncodeString(value),
		QoS:     ExactlyOnce,
		Retain:  retain,
	}
}

// PublishValueProp publishes a typed value for ref.
func (p DeviceProtocol) PublishValueProp(ref PropertyRef, value Value, retain bool) Publish {
	return p.PublishValueForID(ref.Device.ID, ref.Pointer.NodeID, ref.Pointer.PropID, valueString(value), retain)
}

func (p DeviceProtocol) PublishTarget(nodeID, propID HomieID, target string, retain bool) Publish {
	return p.PublishTargetForID(p.device.ID, nodeID, propID, target, retain)
}

func (p DeviceProtocol) PublishTargetForID(id, nodeID, propID HomieID, target string, retain bool) Publish {
	return Publish{
		Topic:   p.propertyTopic(id, nodeID, propID).AddAttr(PropertyAttributeTarget).Build(),
		Payload: EncodeString(target),
		QoS:     ExactlyOnce,
		Retain:  retain,
	}
}

func (p DeviceProtocol) PublishTargetProp(ref PropertyRef, target Value, retain bool) Publish {
	return p.PublishTargetForID(ref.Device.ID, ref.Pointer.NodeID, ref.Pointer.PropID, valueString(target), retain)
}

func valueString(v Value) string {
	if v == nil {
		return ""
	}
	return v.String()
}

func (p DeviceProtocol) PublishDescription(desc DeviceDescription) (Publish, error) {
	return p.PublishDescriptionForID(p.device.ID, desc)
}

func (p DeviceProtocol) PublishDescriptionForID(id HomieID, desc DeviceDescription) (Publish, error) {
	if err := p.checkRoot(id, &desc); err != nil {
		return Publish{}, err
	}
	payload, err := json.Marshal(desc)
	if err != nil {
		return Publish{}, ErrInvalidDeviceDescription
	}
	return Publish{
		Topic:   p.deviceTopic(id).AddAttr(DeviceAttributeDescription).Build(),
		Payload: payload,
		QoS:     ExactlyOnce,
		Retain:  true,
	}, nil
}

// SubscribeProps returns a set-topic subscription for every property.
func (p DeviceProtocol) SubscribeProps(desc DeviceDescription) ([]Subscription, error) {
	return p.SubscribePropsForID(p.device.ID, desc)
}

func (p DeviceProtocol) SubscribePropsForID(id HomieID, desc DeviceDescription) ([]Subscription, error) {
	if err := p.checkRoot(id, &desc); err != nil {
		return nil, err
	}
	var subs []Subscription
	for e := range desc.Iter() {
		subs = append(subs, Subscription{
			Topic: p.propertyTopic(id, e.NodeID, e.PropID).AddAttr(PropertySetTopic).Build(),
			QoS:   ExactlyOnce,
		})
	}
	return subs, nil
}

// UnsubscribeProps mirrors SubscribeProps.
func (p DeviceProtocol) UnsubscribeProps(desc DeviceDescription) ([]Unsubscribe, error) {
	return p.UnsubscribePropsForID(p.device.ID, desc)
}

func (p DeviceProtocol) UnsubscribePropsForID(id HomieID, desc DeviceDescription) ([]Unsubscribe, error) {
	if err := p.checkRoot(id, &desc); err != nil {
		return nil, err
	}
	var unsubs []Unsubscribe
	for e := range desc.Iter() {
		unsubs = append(unsubs, Unsubscribe{
			Topic: p.propertyTopic(id, e.NodeID, e.PropID).AddAttr(PropertySetTopic).Build(),
		})
	}
	return unsubs, nil
}

// RemoveDevice returns the publishes that delete a device from the broker:
// empty retained payloads for every device attribute, $state first, then for
// the set and $target topics of every retained property.
func (p DeviceProtocol) RemoveDevice(desc DeviceDescription) ([]Publish, error) {
	return p.RemoveDeviceForID(p.device.ID, desc)
}

func (p DeviceProtocol) RemoveDeviceForID(id HomieID, desc DeviceDescription) ([]Publish, error) {
	if err := p.checkRoot(id, &desc); err != nil {
		return nil, err
	}

	var pubs []Publish
	for _, attr := range DeviceAttributes {
		pubs = append(pubs, Publish{
			Topic:  p.deviceTopic(id).AddAttr(attr).Build(),
			QoS:    ExactlyOnce,
			Retain: true,
		})
	}
	for e := range desc.Iter() {
		if !e.Prop.Retained {
			continue
		}
		prop := p.propertyTopic(id, e.NodeID, e.PropID)
		pubs = append(pubs,
			Publish{Topic: prop.AddAttr(PropertySetTopic).Build(), QoS: ExactlyOnce, Retain: true},
			Publish{Topic: prop.AddAttr(PropertyAttributeTarget).Build(), QoS: ExactlyOnce, Retain: true},
		)
	}
	return pubs, nil
}
