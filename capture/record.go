package capture

import (
	"time"

	"github.com/schaze/homie5"
)

// Direction tells whether a record was sent or received.
type Direction uint8

const (
	DirectionIn  Direction = 0
	DirectionOut Direction = 1
)

func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Record is one captured publish.  CBOR encoding uses integer keys.
type Record struct {
	Timestamp time.Time  `cbor:"1,keyasint"`
	SessionID string     `cbor:"2,keyasint"`
	Direction Direction  `cbor:"3,keyasint"`
	Topic     string     `cbor:"4,keyasint"`
	Payload   []byte     `cbor:"5,keyasint,omitempty"`
	QoS       homie5.QoS `cbor:"6,keyasint,omitempty"`
	Retain    bool       `cbor:"7,keyasint,omitempty"`
}

// Message decodes the record as a Homie message.
func (r Record) Message() (homie5.Message, error) {
	return homie5.ParseMessage(r.Topic, r.Payload)
}

// Recorder receives captured records.  Implementations must be safe for
// concurrent use and should not block.
type Recorder interface {
	Record(r Record)
}

// NoopRecorder discards all records.
type NoopRecorder struct{}

func (NoopRecorder) Record(Record) {}

// MultiRecorder fans records out to several recorders.
type MultiRecorder struct {
	recorders []Recorder
}

func NewMultiRecorder(recorders ...Recorder) *MultiRecorder {
	return &MultiRecorder{recorders: recorders}
}

func (m *MultiRecorder) Record(r Record) {
	for _, rec := range m.recorders {
		rec.Record(r)
	}
}

var (
	_ Recorder = NoopRecorder{}
	_ Recorder = (*MultiRecorder)(nil)
)
