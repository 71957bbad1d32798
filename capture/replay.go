package capture

import (
	"errors"
	"io"

	"github.com/schaze/homie5"
	"github.com/schaze/homie5/mqtt"
)

// ReplayStats counts what Replay did.
type ReplayStats struct {
	Records int
	Failed  int
}

// Replay hands every record of r to handler in file order.  Handler errors
// are counted, not returned; Replay stops only when reading fails.
func Replay(r *Reader, handler mqtt.MessageHandler) (ReplayStats, error) {
	var stats ReplayStats
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, err
		}
		stats.Records++
		if err := handler(rec.Topic, rec.Payload); err != nil {
			stats.Failed++
		}
	}
}

func messageKind(msg homie5.Message) string {
	switch msg.(type) {
	case homie5.DeviceStateMessage:
		return "state"
	case homie5.DeviceDescriptionMessage:
		return "description"
	case homie5.DeviceLogMessage:
		return "log"
	case homie5.DeviceAlertMessage:
		return "alert"
	case homie5.PropertyValueMessage:
		return "value"
	case homie5.PropertyTargetMessage:
		return "target"
	case homie5.PropertySetMessage:
		return "set"
	case homie5.BroadcastMessage:
		return "broadcast"
	case homie5.DeviceRemovalMessage:
		return "removal"
	}
	return "unknown"
}
