package mqtt

import (
	"errors"
	"fmt"

	"github.com/schaze/homie5"
)

// Subscribe registers handler for messages matching sub.Topic.  Homie
// filters use the + wildcard, e.g. "homie/5/+/$state".
//
// The subscription is tracked and restored after a reconnect.  Subscribing
// to the same filter again replaces the handler.
func (c *Client) Subscribe(sub homie5.Subscription, handler MessageHandler) error {
	topic, qos := sub.Topic, byte(sub.QoS)
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.subMu.Lock()
	c.subscriptions[topic] = subscription{
		topic:   topic,
		qos:     qos,
		handler: handler,
	}
	c.subMu.Unlock()

	token := c.client.Subscribe(topic, qos, c.wrapHandler(handler))
	if !token.WaitTimeout(defaultOperationTimeout) {
		c.forget(topic)
		return fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, defaultOperationTimeout)
	}
	if err := token.Error(); err != nil {
		c.forget(topic)
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	return nil
}

// SubscribeAll subscribes every filter with the same handler.  All filters
// are attempted, the returned error joins the failures.
func (c *Client) SubscribeAll(subs []homie5.Subscription, handler MessageHandler) error {
	var errs []error
	for _, sub := range subs {
		if err := c.Subscribe(sub, handler); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sub.Topic, err))
		}
	}
	return errors.Join(errs...)
}

// Unsubscribe removes a subscription.  Messages already in flight may
// still be delivered.
func (c *Client) Unsubscribe(u homie5.Unsubscribe) error {
	topic := u.Topic
	if topic == "" {
		return ErrInvalidTopic
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.forget(topic)

	token := c.client.Unsubscribe(topic)
	if !token.WaitTimeout(defaultOperationTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrUnsubscribeFailed, defaultOperationTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnsubscribeFailed, err)
	}

	return nil
}

// UnsubscribeAll removes every filter in us and joins the failures.
func (c *Client) UnsubscribeAll(us []homie5.Unsubscribe) error {
	var errs []error
	for _, u := range us {
		if err := c.Unsubscribe(u); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", u.Topic, err))
		}
	}
	return errors.Join(errs...)
}

func (c *Client) forget(topic string) {
	c.subMu.Lock()
	delete(c.subscriptions, topic)
	c.subMu.Unlock()
}

// SubscriptionCount returns the number of active subscriptions.
func (c *Client) SubscriptionCount() int {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.subscriptions)
}

// HasSubscription checks for a subscription with exactly this filter.
func (c *Client) HasSubscription(topic string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	_, exists := c.subscriptions[topic]
	return exists
}
