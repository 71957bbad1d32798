package capture

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schaze/homie5"
	"github.com/schaze/homie5/mqtt"
)

func writeCapture(t *testing.T, records []Record) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.hcap")
	rec, err := NewFileRecorder(path)
	require.NoError(t, err)
	for _, r := range records {
		rec.Record(r)
	}
	require.NoError(t, rec.Close())
	return path
}

func readAll(t *testing.T, r *Reader) []Record {
	t.Helper()
	var out []Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, rec)
	}
}

func TestEncodeDecodeRecord(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)
	in := Record{
		Timestamp: ts,
		SessionID: "s-1",
		Direction: DirectionOut,
		Topic:     "homie/5/light-1/$state",
		Payload:   []byte("ready"),
		QoS:       homie5.ExactlyOnce,
		Retain:    true,
	}
	data, err := EncodeRecord(in)
	require.NoError(t, err)

	out, err := DecodeRecord(data)
	require.NoError(t, err)
	assert.True(t, ts.Equal(out.Timestamp))
	assert.Equal(t, in.Topic, out.Topic)
	assert.Equal(t, in.Payload, out.Payload)
	assert.Equal(t, in.QoS, out.QoS)
	assert.True(t, out.Retain)
	assert.Equal(t, DirectionOut, out.Direction)

	_, err = DecodeRecord([]byte{0xff})
	assert.Error(t, err)
}

func TestDecodeRecordRejectsMalformed(t *testing.T) {
	for _, r := range []Record{
		{Direction: DirectionIn},
		{Topic: "homie/5/a/$state", Direction: Direction(9)},
	} {
		data, err := EncodeRecord(r)
		require.NoError(t, err)
		_, err = DecodeRecord(data)
		assert.ErrorIs(t, err, ErrBadRecord)
	}

	// the same check applies when streaming a file
	path := filepath.Join(t.TempDir(), "bad.hcap")
	data, err := EncodeRecord(Record{Topic: "homie/5/a/$state", Direction: Direction(9)})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()
	_, err = r.Next()
	assert.ErrorIs(t, err, ErrBadRecord)
}

func TestEncodeRecordCanonical(t *testing.T) {
	in := Record{Topic: "homie/5/a/$state", Payload: []byte("ready"), Retain: true}
	a, err := EncodeRecord(in)
	require.NoError(t, err)
	b, err := EncodeRecord(in)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestFileRecorderAppends(t *testing.T) {
	path := writeCapture(t, []Record{{Topic: "homie/5/a/$state", Payload: []byte("init")}})

	rec, err := NewFileRecorder(path)
	require.NoError(t, err)
	rec.Record(Record{Topic: "homie/5/a/$state", Payload: []byte("ready")})
	require.NoError(t, rec.Close())
	require.NoError(t, rec.Close())
	rec.Record(Record{Topic: "dropped"})

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()
	got := readAll(t, r)
	require.Len(t, got, 2)
	assert.Equal(t, "init", string(got[0].Payload))
	assert.Equal(t, "ready", string(got[1].Payload))
}

func TestFileRecorderConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.hcap")
	rec, err := NewFileRecorder(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 25 {
				rec.Record(Record{Topic: "homie/5/dev/$state", Payload: []byte{byte('a' + i)}})
			}
		}()
	}
	wg.Wait()
	require.NoError(t, rec.Close())

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()
	assert.Len(t, readAll(t, r), 200)
}

func TestNewFileRecorderError(t *testing.T) {
	_, err := NewFileRecorder(filepath.Join(t.TempDir(), "missing", "x.hcap"))
	assert.Error(t, err)
}

func TestFilteredReader(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []Record{
		{Timestamp: base, SessionID: "a", Direction: DirectionIn, Topic: "homie/5/light-1/$state"},
		{Timestamp: base.Add(time.Second), SessionID: "a", Direction: DirectionOut, Topic: "homie/5/light-1/light/state/set"},
		{Timestamp: base.Add(2 * time.Second), SessionID: "b", Direction: DirectionIn, Topic: "homie/5/light-2/$state"},
		{Timestamp: base.Add(3 * time.Second), SessionID: "b", Direction: DirectionIn, Topic: "homie/5/$broadcast/light-1"},
	}
	path := writeCapture(t, records)

	in := DirectionIn
	start, end := base.Add(time.Second), base.Add(3*time.Second)
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all", Filter{}, []string{
			"homie/5/light-1/$state", "homie/5/light-1/light/state/set",
			"homie/5/light-2/$state", "homie/5/$broadcast/light-1",
		}},
		{"session", Filter{SessionID: "b"}, []string{"homie/5/light-2/$state", "homie/5/$broadcast/light-1"}},
		{"direction", Filter{Direction: &in, SessionID: "a"}, []string{"homie/5/light-1/$state"}},
		{"device", Filter{DeviceID: "light-1"}, []string{"homie/5/light-1/$state", "homie/5/light-1/light/state/set"}},
		{"prefix", Filter{TopicPrefix: "homie/5/$broadcast"}, []string{"homie/5/$broadcast/light-1"}},
		{"time", Filter{TimeStart: &start, TimeEnd: &end}, []string{"homie/5/light-1/light/state/set", "homie/5/light-2/$state"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewFilteredReader(path, tt.filter)
			require.NoError(t, err)
			defer r.Close()

			var topics []string
			for _, rec := range readAll(t, r) {
				topics = append(topics, rec.Topic)
			}
			assert.Equal(t, tt.want, topics)
		})
	}
}

func TestReaderMissingFile(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "nope.hcap"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

type memRecorder struct {
	mu      sync.Mutex
	records []Record
}

func (m *memRecorder) Record(r Record) {
	m.mu.Lock()
	m.records = append(m.records, r)
	m.mu.Unlock()
}

func TestMultiRecorder(t *testing.T) {
	a, b := &memRecorder{}, &memRecorder{}
	m := NewMultiRecorder(a, b, NoopRecorder{})
	m.Record(Record{Topic: "x"})
	assert.Len(t, a.records, 1)
	assert.Len(t, b.records, 1)
}

func TestSlogRecorder(t *testing.T) {
	var sb strings.Builder
	logger := slog.New(slog.NewTextHandler(&sb, &slog.HandlerOptions{Level: slog.LevelDebug}))
	NewSlogRecorder(logger).Record(Record{
		SessionID: "s-1",
		Direction: DirectionIn,
		Topic:     "homie/5/light-1/$state",
		Payload:   []byte("ready"),
		Retain:    true,
	})

	out := sb.String()
	assert.Contains(t, out, "homie traffic")
	assert.Contains(t, out, "direction=IN")
	assert.Contains(t, out, "message=state")
	assert.Contains(t, out, "retain=true")
}

type stubClient struct {
	subs map[string]mqtt.MessageHandler
	fail bool
}

func (s *stubClient) Publish(homie5.Publish) error {
	if s.fail {
		return errors.New("offline")
	}
	return nil
}

func (s *stubClient) Subscribe(sub homie5.Subscription, h mqtt.MessageHandler) error {
	s.subs[sub.Topic] = h
	return nil
}

func (s *stubClient) Unsubscribe(u homie5.Unsubscribe) error {
	delete(s.subs, u.Topic)
	return nil
}

func TestRecordingClient(t *testing.T) {
	stub := &stubClient{subs: make(map[string]mqtt.MessageHandler)}
	mem := &memRecorder{}
	c := Wrap(stub, mem)
	require.NotEmpty(t, c.SessionID())

	proto, _ := homie5.NewDeviceProtocol("light-1", homie5.DefaultDomain)
	require.NoError(t, c.Publish(proto.PublishState(homie5.StatusReady)))

	var handled string
	require.NoError(t, c.Subscribe(homie5.Subscription{Topic: "homie/5/light-1/light/state/set"}, func(_ string, payload []byte) error {
		handled = string(payload)
		return nil
	}))
	require.NoError(t, stub.subs["homie/5/light-1/light/state/set"]("homie/5/light-1/light/state/set", []byte("true")))
	assert.Equal(t, "true", handled)

	stub.fail = true
	assert.Error(t, c.Publish(proto.PublishState(homie5.StatusLost)))

	require.NoError(t, c.Unsubscribe(homie5.Unsubscribe{Topic: "homie/5/light-1/light/state/set"}))
	assert.Empty(t, stub.subs)

	require.Len(t, mem.records, 2)
	assert.Equal(t, DirectionOut, mem.records[0].Direction)
	assert.True(t, mem.records[0].Retain)
	assert.Equal(t, DirectionIn, mem.records[1].Direction)
	assert.Equal(t, c.SessionID(), mem.records[1].SessionID)
}

func TestReplay(t *testing.T) {
	path := writeCapture(t, []Record{
		{Topic: "homie/5/light-1/$state", Payload: []byte("ready")},
		{Topic: "not/a/homie/topic"},
		{Topic: "homie/5/light-1/$state", Payload: []byte("disconnected")},
	})
	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	var states []homie5.DeviceStatus
	stats, err := Replay(r, func(topic string, payload []byte) error {
		msg, err := homie5.ParseMessage(topic, payload)
		if err != nil {
			return err
		}
		if s, ok := msg.(homie5.DeviceStateMessage); ok {
			states = append(states, s.State)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, ReplayStats{Records: 3, Failed: 1}, stats)
	assert.Equal(t, []homie5.DeviceStatus{homie5.StatusReady, homie5.StatusDisconnected}, states)
}
