package homie5

// Ref is implemented by DeviceRef, NodeRef and PropertyRef.  Equal compares
// across levels: a property equals its device and its node, and a node equals
// its device.
type Ref interface {
	ToTopic() string
	ToTopicWithSubpath(sub string) string
	Equal(other Ref) bool
	DeviceRef() DeviceRef
}

// DeviceRef identifies a device within a homie-domain.
type DeviceRef struct {
	Domain HomieDomain
	ID     HomieID
}

func NewDeviceRef(domain HomieDomain, id HomieID) DeviceRef {
	return DeviceRef{Domain: domain, ID: id}
}

func (r DeviceRef) DeviceRef() DeviceRef { return r }

func (r DeviceRef) Topic() TopicBuilder { return NewTopicBuilderForDevice(r.Domain, r.ID) }

func (r DeviceRef) ToTopic() string { return r.Topic().Build() }

func (r DeviceRef) ToTopicWithSubpath(sub string) string { return r.Topic().AddAttr(sub).Build() }

func (r DeviceRef) Equal(other Ref) bool {
	if other == nil {
		return false
	}
	return other.DeviceRef() == r
}

func (r DeviceRef) String() string { return r.ToTopic() }

// NodeRef identifies a node within a device.
type NodeRef struct {
	Device DeviceRef
	ID     HomieID
}

func NewNodeRef(domain HomieDomain, deviceID, nodeID HomieID) NodeRef {
	return NodeRef{Device: NewDeviceRef(domain, deviceID), ID: nodeID}
}

// NodeRefFromDevice creates a reference to node nodeID on device.
func NodeRefFromDevice(device DeviceRef, nodeID HomieID) NodeRef {
	return NodeRef{Device: device, ID: nodeID}
}

func (r NodeRef) DeviceRef() DeviceRef { return r.Device }

func (r NodeRef) Topic() TopicBuilder { return r.Device.Topic().AddID(r.ID) }

func (r NodeRef) ToTopic() string { return r.Topic().Build() }

func (r NodeRef) ToTopicWithSubpath(sub string) string { return r.Topic().AddAttr(sub).Build() }

func (r NodeRef) Equal(other Ref) bool {
	switch o := other.(type) {
	case DeviceRef:
		return r.Device == o
	case NodeRef:
		return r == o
	case PropertyRef:
		return r.Device == o.Device && r.ID == o.Pointer.NodeID
	}
	return false
}

func (r NodeRef) String() string { return r.ToTopic() }

// PropertyPointer locates a property within a device description.
type PropertyPointer struct {
	NodeID HomieID
	PropID HomieID
}

func NewPropertyPointer(nodeID, propID HomieID) PropertyPointer {
	return PropertyPointer{NodeID: nodeID, PropID: propID}
}

// PropertyRef identifies a property of a device.
type PropertyRef struct {
	Device  DeviceRef
	Pointer PropertyPointer
}

func NewPropertyRef(domain HomieDomain, deviceID, nodeID, propID HomieID) PropertyRef {
	return PropertyRef{
		Device:  NewDeviceRef(domain, deviceID),
		Pointer: PropertyPointer{NodeID: nodeID, PropID: propID},
	}
}

// PropertyRefFromNode creates a reference to property propID on node.
func PropertyRefFromNode(node NodeRef, propID HomieID) PropertyRef {
	return PropertyRef{Device: node.Device, Pointer: PropertyPointer{NodeID: node.ID, PropID: propID}}
}

func (r PropertyRef) NodeID() HomieID { return r.Pointer.NodeID }

func (r PropertyRef) PropID() HomieID { return r.Pointer.PropID }

func (r PropertyRef) DeviceRef() DeviceRef { return r.Device }

// NodeRef returns the reference of the node the property belongs to.
func (r PropertyRef) NodeRef() NodeRef { return NodeRef{Device: r.Device, ID: r.Pointer.NodeID} }

func (r PropertyRef) Topic() TopicBuilder {
	return r.Device.Topic().AddID(r.Pointer.NodeID).AddID(r.Pointer.PropID)
}

func (r PropertyRef) ToTopic() string { return r.Topic().Build() }

func (r PropertyRef) ToTopicWithSubpath(sub string) string { return r.Topic().AddAttr(sub).Build() }

func (r PropertyRef) Equal(other Ref) bool {
	switch o := other.(type) {
	case DeviceRef:
		return r.Device == o
	case NodeRef:
		return r.Device == o.Device && r.Pointer.NodeID == o.ID
	case PropertyRef:
		return r == o
	}
	return false
}

// MatchWithNode reports whether r is property propID of node.
func (r PropertyRef) MatchWithNode(node NodeRef, propID HomieID) bool {
	return r.Equal(node) && r.Pointer.PropID == propID
}

// MatchWithDevice reports whether r is property nodeID/propID of device.
func (r PropertyRef) MatchWithDevice(device DeviceRef, nodeID, propID HomieID) bool {
	return r.Device == device && r.Pointer.NodeID == nodeID && r.Pointer.PropID == propID
}

func (r PropertyRef) String() string { return r.ToTopic() }
