package homie5

// QoS is the MQTT quality of service level.
type QoS byte

const (
	AtMostOnce  QoS = 0
	AtLeastOnce QoS = 1
	ExactlyOnce QoS = 2
)

func (q QoS) String() string {
	switch q {
	case AtMostOnce:
		return "at-most-once"
	case AtLeastOnce:
		return "at-least-once"
	case ExactlyOnce:
		return "exactly-once"
	}
	return "invalid"
}

// Publish is a message the transport should send.
type Publish struct {
	Topic   string
	Payload []byte
	QoS     QoS
	Retain  bool
}

// Subscription is a topic filter the transport should subscribe to.
type Subscription struct {
	Topic string
	QoS   QoS
}

// Unsubscribe is a topic filter the transport should drop.
type Unsubscribe struct {
	Topic string
}

// LastWill is the will message to register when connecting.
type LastWill struct {
	Topic   string
	Payload []byte
	QoS     QoS
	Retain  bool
}
