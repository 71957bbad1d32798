package homie5

// TopicBuilder assembles Homie topics segment by segment.  Each call returns a
// new builder; the receiver is left unchanged.
type TopicBuilder struct {
	topic string
}

// NewTopicBuilder starts a topic at "<domain>/5".
func NewTopicBuilder(domain HomieDomain) TopicBuilder {
	return TopicBuilder{topic: domain.String() + "/" + HomieVersion}
}

func NewTopicBuilderForDevice(domain HomieDomain, deviceID HomieID) TopicBuilder {
	return NewTopicBuilder(domain).AddID(deviceID)
}

func NewTopicBuilderForNode(domain HomieDomain, deviceID, nodeID HomieID) TopicBuilder {
	return NewTopicBuilderForDevice(domain, deviceID).AddID(nodeID)
}

func NewTopicBuilderForProperty(domain HomieDomain, deviceID, nodeID, propID HomieID) TopicBuilder {
	return NewTopicBuilderForNode(domain, deviceID, nodeID).AddID(propID)
}

// AddID appends an id segment.
func (t TopicBuilder) AddID(id HomieID) TopicBuilder {
	return t.add(string(id))
}

// AddAttr appends an attribute or arbitrary sub topic segment.
func (t TopicBuilder) AddAttr(attr string) TopicBuilder {
	return t.add(attr)
}

func (t TopicBuilder) add(segment string) TopicBuilder {
	return TopicBuilder{topic: t.topic + "/" + segment}
}

// Build returns the assembled topic.
func (t TopicBuilder) Build() string { return t.topic }

func (t TopicBuilder) String() string { return t.topic }
