package capture

import (
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/schaze/homie5"
)

// Filter selects records.  Zero fields match everything.
type Filter struct {
	SessionID string
	Direction *Direction

	// TopicPrefix matches records whose topic starts with it.
	TopicPrefix string

	// DeviceID matches records on the topics of one device.
	DeviceID homie5.HomieID

	// TimeStart is inclusive, TimeEnd exclusive.
	TimeStart *time.Time
	TimeEnd   *time.Time
}

func (f *Filter) matches(r Record) bool {
	if f.SessionID != "" && r.SessionID != f.SessionID {
		return false
	}
	if f.Direction != nil && r.Direction != *f.Direction {
		return false
	}
	if f.TopicPrefix != "" && !strings.HasPrefix(r.Topic, f.TopicPrefix) {
		return false
	}
	if f.DeviceID != "" && topicDevice(r.Topic) != f.DeviceID.String() {
		return false
	}
	if f.TimeStart != nil && r.Timestamp.Before(*f.TimeStart) {
		return false
	}
	if f.TimeEnd != nil && !r.Timestamp.Before(*f.TimeEnd) {
		return false
	}
	return true
}

// topicDevice returns the device segment of <domain>/5/<device>/...
func topicDevice(topic string) string {
	parts := strings.SplitN(topic, "/", 4)
	if len(parts) < 3 || parts[2] == homie5.TopicBroadcast {
		return ""
	}
	return parts[2]
}

// Reader streams records from a capture file.
type Reader struct {
	file    *os.File
	scanner *recordScanner
	filter  Filter
}

func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{
		file:    f,
		scanner: newRecordScanner(f),
		filter:  filter,
	}, nil
}

// Next returns the next matching record, or io.EOF at the end of the file.
func (r *Reader) Next() (Record, error) {
	for {
		rec, err := r.scanner.next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Record{}, io.EOF
			}
			return Record{}, err
		}
		if r.filter.matches(rec) {
			return rec, nil
		}
	}
}

func (r *Reader) Close() error {
	return r.file.Close()
}
