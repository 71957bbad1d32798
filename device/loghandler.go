package device

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/schaze/homie5"
)

// LogHandler is a slog.Handler that forwards records to a device's $log
// topics.  Records are queued without blocking and dropped while the device
// is not running, so it can be combined with other handlers safely.
type LogHandler struct {
	device *Device
	level  slog.Leveler
	attrs  []slog.Attr
	group  string
}

// NewLogHandler forwards records at or above level to d.
func NewLogHandler(d *Device, level slog.Leveler) *LogHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &LogHandler{device: d, level: level}
}

func (h *LogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *LogHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Message)
	for _, a := range h.attrs {
		writeAttr(&b, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, h.group, a)
		return true
	})

	level, text := DeviceLogLevel(r.Level), b.String()
	d := h.device
	d.post(func(c Client) error {
		return c.Publish(d.proto.PublishLog(level, text))
	})
	return nil
}

func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	nh.attrs = append(nh.attrs, h.attrs...)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		nh.attrs = append(nh.attrs, a)
	}
	return &nh
}

func (h *LogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := *h
	if h.group != "" {
		nh.group = h.group + "." + name
	} else {
		nh.group = name
	}
	return &nh
}

func writeAttr(b *strings.Builder, group string, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if group != "" {
		key = group + "." + key
	}
	fmt.Fprintf(b, " %s=%v", key, a.Value.Resolve())
}

// DeviceLogLevel maps a slog level to the closest Homie log level.  Levels
// above error are fatal.
func DeviceLogLevel(l slog.Level) homie5.DeviceLogLevel {
	switch {
	case l < slog.LevelInfo:
		return homie5.LogLevelDebug
	case l < slog.LevelWarn:
		return homie5.LogLevelInfo
	case l < slog.LevelError:
		return homie5.LogLevelWarn
	case l == slog.LevelError:
		return homie5.LogLevelError
	default:
		return homie5.LogLevelFatal
	}
}
