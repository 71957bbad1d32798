package mqtt

import (
	"fmt"

	"github.com/schaze/homie5"
)

// maxPayloadSize limits a single message to 1MB, in line with typical
// broker limits.  Large device descriptions stay well below it.
const maxPayloadSize = 1 << 20

// Publish sends a message produced by the homie5 core.
func (c *Client) Publish(p homie5.Publish) error {
	return c.PublishRaw(p.Topic, p.Payload, byte(p.QoS), p.Retain)
}

// PublishAll sends the messages in order and stops at the first failure.
// The step sequences of a device rely on that order.
func (c *Client) PublishAll(ps []homie5.Publish) error {
	for _, p := range ps {
		if err := c.Publish(p); err != nil {
			return err
		}
	}
	return nil
}

// PublishRaw sends payload to topic.  An empty payload is sent as a zero
// length message, which clears a retained topic.
func (c *Client) PublishRaw(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	if payload == nil {
		payload = []byte{}
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultOperationTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultOperationTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}
