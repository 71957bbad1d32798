// Package meta implements the Homie meta extension: free form key/value
// metadata ($meta) and tag lists ($tags) attached to devices, nodes and
// properties.
package meta

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/schaze/homie5"
)

const (
	MetaAttribute = "$meta"
	TagsAttribute = "$tags"
)

var ErrInvalidMetaData = errors.New("Error parsing MetaData")

// DeviceProtocol publishes meta data for a device and its children.
type DeviceProtocol struct {
	id     homie5.HomieID
	domain homie5.HomieDomain
}

func NewDeviceProtocol(id homie5.HomieID, domain homie5.HomieDomain) DeviceProtocol {
	return DeviceProtocol{id: id, domain: domain}
}

// FromDeviceProtocol shares the id and domain of an existing device protocol.
func FromDeviceProtocol(p homie5.DeviceProtocol) DeviceProtocol {
	return DeviceProtocol{id: p.ID(), domain: p.Domain()}
}

func (p DeviceProtocol) ID() homie5.HomieID { return p.id }

func (p DeviceProtocol) Domain() homie5.HomieDomain { return p.domain }

func publishJSON(topic string, v any) (homie5.Publish, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return homie5.Publish{}, fmt.Errorf("%w: %w", ErrInvalidMetaData, err)
	}
	return homie5.Publish{Topic: topic, Payload: payload, QoS: homie5.ExactlyOnce, Retain: true}, nil
}

func (p DeviceProtocol) PublishMetaDevice(deviceID homie5.HomieID, meta map[string]string) (homie5.Publish, error) {
	t := homie5.NewTopicBuilderForDevice(p.domain, deviceID).AddAttr(MetaAttribute)
	return publishJSON(t.Build(), meta)
}

func (p DeviceProtocol) PublishMetaNode(deviceID, nodeID homie5.HomieID, meta map[string]string) (homie5.Publish, error) {
	t := homie5.NewTopicBuilderForNode(p.domain, deviceID, nodeID).AddAttr(MetaAttribute)
	return publishJSON(t.Build(), meta)
}

func (p DeviceProtocol) PublishMetaProperty(deviceID, nodeID, propID homie5.HomieID, meta map[string]string) (homie5.Publish, error) {
	t := homie5.NewTopicBuilderForProperty(p.domain, deviceID, nodeID, propID).AddAttr(MetaAttribute)
	return publishJSON(t.Build(), meta)
}

func (p DeviceProtocol) PublishTagsDevice(deviceID homie5.HomieID, tags []string) (homie5.Publish, error) {
	t := homie5.NewTopicBuilderForDevice(p.domain, deviceID).AddAttr(TagsAttribute)
	return publishJSON(t.Build(), nonNil(tags))
}

func (p DeviceProtocol) PublishTagsNode(deviceID, nodeID homie5.HomieID, tags []string) (homie5.Publish, error) {
	t := homie5.NewTopicBuilderForNode(p.domain, deviceID, nodeID).AddAttr(TagsAttribute)
	return publishJSON(t.Build(), nonNil(tags))
}

func (p DeviceProtocol) PublishTagsProperty(deviceID, nodeID, propID homie5.HomieID, tags []string) (homie5.Publish, error) {
	t := homie5.NewTopicBuilderForProperty(p.domain, deviceID, nodeID, propID).AddAttr(TagsAttribute)
	return publishJSON(t.Build(), nonNil(tags))
}

// nonNil makes an absent tag list publish as [] rather than null.
func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

// ControllerProtocol builds the subscriptions a controller needs to follow
// meta data.
type ControllerProtocol struct{}

// SubscribeForDevice covers $meta and $tags of the device, its nodes and
// its properties.
func (ControllerProtocol) SubscribeForDevice(device homie5.DeviceRef) []homie5.Subscription {
	t := device.Topic()
	var subs []homie5.Subscription
	for _, attr := range []string{MetaAttribute, TagsAttribute} {
		subs = append(subs,
			homie5.Subscription{Topic: t.AddAttr(attr).Build(), QoS: homie5.ExactlyOnce},
			homie5.Subscription{Topic: t.AddAttr("+").AddAttr(attr).Build(), QoS: homie5.ExactlyOnce},
			homie5.Subscription{Topic: t.AddAttr("+").AddAttr("+").AddAttr(attr).Build(), QoS: homie5.ExactlyOnce},
		)
	}
	return subs
}

// Message is one of DeviceMeta, NodeMeta, PropertyMeta, DeviceTags,
// NodeTags or PropertyTags.
type Message interface {
	Ref() homie5.Ref
	isMetaMessage()
}

type DeviceMeta struct {
	Device homie5.DeviceRef
	Meta   map[string]string
}

type NodeMeta struct {
	Node homie5.NodeRef
	Meta map[string]string
}

type PropertyMeta struct {
	Property homie5.PropertyRef
	Meta     map[string]string
}

type DeviceTags struct {
	Device homie5.DeviceRef
	Tags   []string
}

type NodeTags struct {
	Node homie5.NodeRef
	Tags []string
}

type PropertyTags struct {
	Property homie5.PropertyRef
	Tags     []string
}

func (m DeviceMeta) Ref() homie5.Ref { return m.Device }
func (m NodeMeta) Ref() homie5.Ref { return m.Node }
func (m PropertyMeta) Ref() homie5.Ref { return m.Property }
func (m DeviceTags) Ref() homie5.Ref { return m.Device }
func (m NodeTags) Ref() homie5.Ref { return m.Node }
func (m PropertyTags) Ref() homie5.Ref { return m.Property }

func (DeviceMeta) isMetaMessage() {}
func (NodeMeta) isMetaMessage() {}
func (PropertyMeta) isMetaMessage() {}
func (DeviceTags) isMetaMessage() {}
func (NodeTags) isMetaMessage() {}
func (PropertyTags) isMetaMessage() {}

// IsMetaTopic reports whether topic ends in $meta or $tags.
func IsMetaTopic(topic string) bool {
	return strings.HasSuffix(topic, "/"+MetaAttribute) || strings.HasSuffix(topic, "/"+TagsAttribute)
}

// ParseMessage decodes a $meta or $tags publish.
func ParseMessage(topic string, payload []byte) (Message, error) {
	tokens := strings.Split(topic, "/")
	if len(tokens) < 4 || len(tokens) > 6 || tokens[1] != homie5.HomieVersion {
		return nil, homie5.ErrInvalidTopic
	}
	attr := tokens[len(tokens)-1]
	if attr != MetaAttribute && attr != TagsAttribute {
		return nil, homie5.ErrInvalidTopic
	}

	domain, err := homie5.NewHomieDomain(tokens[0])
	if err != nil {
		return nil, fmt.Errorf("Invalid homie domain: %w", err)
	}
	ids := make([]homie5.HomieID, 0, 3)
	for _, tok := range tokens[2 : len(tokens)-1] {
		id, err := homie5.NewHomieID(tok)
		if err != nil {
			return nil, fmt.Errorf("Invalid homie id: %w", err)
		}
		ids = append(ids, id)
	}
	if !utf8.Valid(payload) {
		return nil, homie5.ErrPayloadConversion
	}

	device := homie5.NewDeviceRef(domain, ids[0])
	if attr == MetaAttribute {
		// an empty payload clears the attribute and leaves Meta nil
		var m map[string]string
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &m); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidMetaData, err)
			}
		}
		switch len(ids) {
		case 1:
			return DeviceMeta{Device: device, Meta: m}, nil
		case 2:
			return NodeMeta{Node: homie5.NodeRefFromDevice(device, ids[1]), Meta: m}, nil
		default:
			return PropertyMeta{Property: homie5.NewPropertyRef(domain, ids[0], ids[1], ids[2]), Meta: m}, nil
		}
	}

	var tags []string
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &tags); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidMetaData, err)
		}
	}
	switch len(ids) {
	case 1:
		return DeviceTags{Device: device, Tags: tags}, nil
	case 2:
		return NodeTags{Node: homie5.NodeRefFromDevice(device, ids[1]), Tags: tags}, nil
	default:
		return PropertyTags{Property: homie5.NewPropertyRef(domain, ids[0], ids[1], ids[2]), Tags: tags}, nil
	}
}
