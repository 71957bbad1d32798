package capture

import (
	"time"

	"github.com/google/uuid"

	"github.com/schaze/homie5"
	"github.com/schaze/homie5/mqtt"
)

// Client is the transport a RecordingClient wraps.
type Client interface {
	Publish(p homie5.Publish) error
	Subscribe(s homie5.Subscription, handler mqtt.MessageHandler) error
	Unsubscribe(u homie5.Unsubscribe) error
}

// RecordingClient records every successful publish and every message
// delivered to its subscriptions.
type RecordingClient struct {
	client  Client
	rec     Recorder
	session string
	now     func() time.Time
}

// Wrap returns a RecordingClient with a fresh session id.
func Wrap(c Client, rec Recorder) *RecordingClient {
	if rec == nil {
		rec = NoopRecorder{}
	}
	return &RecordingClient{
		client:  c,
		rec:     rec,
		session: uuid.NewString(),
		now:     time.Now,
	}
}

func (c *RecordingClient) SessionID() string { return c.session }

func (c *RecordingClient) Publish(p homie5.Publish) error {
	if err := c.client.Publish(p); err != nil {
		return err
	}
	c.rec.Record(Record{
		Timestamp: c.now(),
		SessionID: c.session,
		Direction: DirectionOut,
		Topic:     p.Topic,
		Payload:   p.Payload,
		QoS:       p.QoS,
		Retain:    p.Retain,
	})
	return nil
}

func (c *RecordingClient) Subscribe(s homie5.Subscription, handler mqtt.MessageHandler) error {
	return c.client.Subscribe(s, func(topic string, payload []byte) error {
		c.rec.Record(Record{
			Timestamp: c.now(),
			SessionID: c.session,
			Direction: DirectionIn,
			Topic:     topic,
			Payload:   payload,
		})
		return handler(topic, payload)
	})
}

func (c *RecordingClient) Unsubscribe(u homie5.Unsubscribe) error {
	return c.client.Unsubscribe(u)
}
