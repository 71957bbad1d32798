package homie5

import (
	"strings"
	"unicode/utf8"
)

// Message is a decoded Homie MQTT publish.  The concrete types are
// DeviceStateMessage, DeviceDescriptionMessage, DeviceLogMessage,
// DeviceAlertMessage, PropertyValueMessage, PropertyTargetMessage,
// PropertySetMessage, BroadcastMessage and DeviceRemovalMessage.
type Message interface {
	isMessage()
}

type DeviceStateMessage struct {
	Device DeviceRef
	State  DeviceStatus
}

type DeviceDescriptionMessage struct {
	Device      DeviceRef
	Description DeviceDescription
}

type DeviceLogMessage struct {
	Device DeviceRef
	Level  DeviceLogLevel
	Text   string
}

type DeviceAlertMessage struct {
	Device  DeviceRef
	AlertID HomieID
	Text    string
}

// PropertyValueMessage carries the raw value.  Convert it with ParseValue
// against the property's description.
type PropertyValueMessage struct {
	Property PropertyRef
	Value    string
}

type PropertyTargetMessage struct {
	Property PropertyRef
	Target   string
}

type PropertySetMessage struct {
	Property PropertyRef
	Value    string
}

type BroadcastMessage struct {
	Domain   HomieDomain
	Subtopic string
	Data     string
}

// DeviceRemovalMessage is an empty retained $state, sent when a device is deleted.
type DeviceRemovalMessage struct {
	Device DeviceRef
}

func (DeviceStateMessage) isMessage() {}
func (DeviceDescriptionMessage) isMessage() {}
func (DeviceLogMessage) isMessage() {}
func (DeviceAlertMessage) isMessage() {}
func (PropertyValueMessage) isMessage() {}
func (PropertyTargetMessage) isMessage() {}
func (PropertySetMessage) isMessage() {}
func (BroadcastMessage) isMessage() {}
func (DeviceRemovalMessage) isMessage() {}

func payloadString(payload []byte) (string, error) {
	if !utf8.Valid(payload) {
		return "", ErrPayloadConversion
	}
	return DecodeString(payload), nil
}

// ParseMessage decodes an MQTT publish into a Message.
//
//	<domain>/5/$broadcast/<subtopic...>
//	<domain>/5/<device>/$state|$description|$log
//	<domain>/5/<device>/$alert/<alert-id>
//	<domain>/5/<device>/$log/<level>
//	<domain>/5/<device>/<node>/<prop>
//	<domain>/5/<device>/<node>/<prop>/set|$target
func ParseMessage(topic string, payload []byte) (Message, error) {
	tokens := strings.Split(topic, "/")
	if len(tokens) <= 3 {
		return nil, ErrInvalidTopic
	}

	domain, err := NewHomieDomain(tokens[0])
	if err != nil {
		return nil, wrapHomieDomain(err)
	}
	if tokens[1] != HomieVersion {
		return nil, ErrInvalidTopic
	}

	if tokens[2] == TopicBroadcast {
		data, err := payloadString(payload)
		if err != nil {
			return nil, err
		}
		return BroadcastMessage{Domain: domain, Subtopic: strings.Join(tokens[3:], "/"), Data: data}, nil
	}

	deviceID, err := NewHomieID(tokens[2])
	if err != nil {
		return nil, wrapHomieID(err)
	}
	device := DeviceRef{Domain: domain, ID: deviceID}

	switch len(tokens) {
	case 4:
		switch tokens[3] {
		case DeviceAttributeState:
			if len(payload) == 0 {
				return DeviceRemovalMessage{Device: device}, nil
			}
			s, err := payloadString(payload)
			if err != nil {
				return nil, err
			}
			state, err := ParseDeviceStatus(s)
			if err != nil {
				return nil, ErrInvalidPayload
			}
			return DeviceStateMessage{Device: device, State: state}, nil
		case DeviceAttributeDescription:
			if !utf8.Valid(payload) {
				return nil, ErrPayloadConversion
			}
			desc, err := ParseDeviceDescription(payload)
			if err != nil {
				return nil, ErrInvalidPayload
			}
			return DeviceDescriptionMessage{Device: device, Description: desc}, nil
		case DeviceAttributeLog:
			// devices that do not publish a level segment
			text, err := payloadString(payload)
			if err != nil {
				return nil, err
			}
			return DeviceLogMessage{Device: device, Level: LogLevelInfo, Text: text}, nil
		}
		return nil, ErrInvalidTopic
	case 5:
		switch tokens[3] {
		case DeviceAttributeAlert:
			alertID, err := NewHomieID(tokens[4])
			if err != nil {
				return nil, wrapHomieID(err)
			}
			text, err := payloadString(payload)
			if err != nil {
				return nil, err
			}
			return DeviceAlertMessage{Device: device, AlertID: alertID, Text: text}, nil
		case DeviceAttributeLog:
			level, err := ParseDeviceLogLevel(tokens[4])
			if err != nil {
				return nil, err
			}
			text, err := payloadString(payload)
			if err != nil {
				return nil, err
			}
			return DeviceLogMessage{Device: device, Level: level, Text: text}, nil
		}
		prop, err := propertyRef(device, tokens[3], tokens[4])
		if err != nil {
			return nil, err
		}
		value, err := payloadString(payload)
		if err != nil {
			return nil, err
		}
		return PropertyValueMessage{Property: prop, Value: value}, nil
	case 6:
		prop, err := propertyRef(device, tokens[3], tokens[4])
		if err != nil {
			return nil, err
		}
		switch tokens[5] {
		case PropertySetTopic:
			value, err := payloadString(payload)
			if err != nil {
				return nil, err
			}
			return PropertySetMessage{Property: prop, Value: value}, nil
		case PropertyAttributeTarget:
			target, err := payloadString(payload)
			if err != nil {
				return nil, err
			}
			return PropertyTargetMessage{Property: prop, Target: target}, nil
		}
	}
	return nil, ErrInvalidTopic
}

func propertyRef(device DeviceRef, node, prop string) (PropertyRef, error) {
	nodeID, err := NewHomieID(node)
	if err != nil {
		return PropertyRef{}, wrapHomieID(err)
	}
	propID, err := NewHomieID(prop)
	if err != nil {
		return PropertyRef{}, wrapHomieID(err)
	}
	return PropertyRef{Device: device, Pointer: PropertyPointer{NodeID: nodeID, PropID: propID}}, nil
}
