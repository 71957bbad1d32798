package homie5

// ControllerProtocol builds the subscriptions and publishes a controller
// needs to discover devices, follow their properties and send commands.
type ControllerProtocol struct{}

func NewControllerProtocol() ControllerProtocol {
	return ControllerProtocol{}
}

// DiscoverDevices subscribes to the $state of every device in domain.  Use
// AllDomains to discover devices across domains.
func (ControllerProtocol) DiscoverDevices(domain HomieDomain) []Subscription {
	return []Subscription{{
		Topic: NewTopicBuilder(domain).AddAttr("+").AddAttr(DeviceAttributeState).Build(),
		QoS:   ExactlyOnce,
	}}
}

func deviceFilters(device DeviceRef) []string {
	t := device.Topic()
	return []string{
		t.AddAttr(DeviceAttributeLog).AddAttr("+").Build(),
		t.AddAttr(DeviceAttributeAlert).AddAttr("+").Build(),
		t.AddAttr(DeviceAttributeDescription).Build(),
	}
}

// SubscribeDevice follows the log, alerts and description of a discovered device.
func (ControllerProtocol) SubscribeDevice(device DeviceRef) []Subscription {
	filters := deviceFilters(device)
	subs := make([]Subscription, 0, len(filters))
	for _, f := range filters {
		subs = append(subs, Subscription{Topic: f, QoS: ExactlyOnce})
	}
	return subs
}

func (ControllerProtocol) UnsubscribeDevice(device DeviceRef) []Unsubscribe {
	filters := deviceFilters(device)
	unsubs := make([]Unsubscribe, 0, len(filters))
	for _, f := range filters {
		unsubs = append(unsubs, Unsubscribe{Topic: f})
	}
	return unsubs
}

// SubscribeProps follows the value and $target of every property in desc.
func (ControllerProtocol) SubscribeProps(device DeviceRef, desc DeviceDescription) []Subscription {
	var subs []Subscription
	for e := range desc.Iter() {
		prop := NewTopicBuilderForProperty(device.Domain, device.ID, e.NodeID, e.PropID)
		subs = append(subs,
			Subscription{Topic: prop.Build(), QoS: ExactlyOnce},
			Subscription{Topic: prop.AddAttr(PropertyAttributeTarget).Build(), QoS: ExactlyOnce},
		)
	}
	return subs
}

// UnsubscribeProps mirrors SubscribeProps.
func (ControllerProtocol) UnsubscribeProps(device DeviceRef, desc DeviceDescription) []Unsubscribe {
	var unsubs []Unsubscribe
	for e := range desc.Iter() {
		prop := NewTopicBuilderForProperty(device.Domain, device.ID, e.NodeID, e.PropID)
		unsubs = append(unsubs,
			Unsubscribe{Topic: prop.Build()},
			Unsubscribe{Topic: prop.AddAttr(PropertyAttributeTarget).Build()},
		)
	}
	return unsubs
}

// SetCommand asks the device to change prop to value.  Set commands are never
// retained.
func (c ControllerProtocol) SetCommand(prop PropertyRef, value Value) Publish {
	return c.SetCommandString(prop, valueString(value))
}

func (ControllerProtocol) SetCommandString(prop PropertyRef, value string) Publish {
	return Publish{
		Topic:   prop.ToTopicWithSubpath(PropertySetTopic),
		Payload: EncodeString(value),
		QoS:     ExactlyOnce,
		Retain:  false,
	}
}

// SetCommandIDs is SetCommand addressed by ids.
func (c ControllerProtocol) SetCommandIDs(domain HomieDomain, deviceID, nodeID, propID HomieID, value Value) Publish {
	return c.SetCommand(NewPropertyRef(domain, deviceID, nodeID, propID), value)
}

// SendBroadcast publishes data to <domain>/5/$broadcast/<subtopic>.
func (ControllerProtocol) SendBroadcast(domain HomieDomain, subtopic, data string) Publish {
	return Publish{
		Topic:   NewTopicBuilder(domain).AddAttr(TopicBroadcast).AddAttr(subtopic).Build(),
		Payload: EncodeString(data),
		QoS:     ExactlyOnce,
		Retain:  false,
	}
}

func broadcastFilter(domain HomieDomain) string {
	return NewTopicBuilder(domain).AddAttr(TopicBroadcast).AddAttr("#").Build()
}

func (ControllerProtocol) SubscribeBroadcast(domain HomieDomain) []Subscription {
	return []Subscription{{Topic: broadcastFilter(domain), QoS: ExactlyOnce}}
}

func (ControllerProtocol) UnsubscribeBroadcast(domain HomieDomain) []Unsubscribe {
	return []Unsubscribe{{Topic: broadcastFilter(domain)}}
}
