package device

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/schaze/homie5"
)

func TestDeviceLogLevel(t *testing.T) {
	tests := []struct {
		level slog.Level
		want  homie5.DeviceLogLevel
	}{
		{slog.LevelDebug, homie5.LogLevelDebug},
		{slog.LevelDebug + 2, homie5.LogLevelDebug},
		{slog.LevelInfo, homie5.LogLevelInfo},
		{slog.LevelWarn, homie5.LogLevelWarn},
		{slog.LevelError, homie5.LogLevelError},
		{slog.LevelError + 4, homie5.LogLevelFatal},
	}
	for _, tt := range tests {
		if got := DeviceLogLevel(tt.level); got != tt.want {
			t.Errorf("DeviceLogLevel(%v) = %s, want %s", tt.level, got, tt.want)
		}
	}
}

func TestLogHandler(t *testing.T) {
	c := newFakeClient()
	d := New("light-1", homie5.DefaultDomain, lightDescription())
	startDevice(t, d, c)

	logger := slog.New(NewLogHandler(d, slog.LevelInfo)).With("component", "dimmer").WithGroup("req")
	logger.Debug("dropped")
	logger.Warn("lamp hot", "celsius", 71)

	assert.Eventually(t, func() bool {
		for _, p := range c.snapshot() {
			if p.Topic == "homie/5/light-1/$log/warn" {
				text := string(p.Payload)
				return strings.HasPrefix(text, "lamp hot") &&
					strings.Contains(text, "component=dimmer") &&
					strings.Contains(text, "req.celsius=71")
			}
		}
		return false
	}, 5*time.Second, 5*time.Millisecond)

	for _, p := range c.snapshot() {
		assert.NotEqual(t, "homie/5/light-1/$log/debug", p.Topic)
	}
}

func TestLogHandlerNotRunning(t *testing.T) {
	d := New("light-1", homie5.DefaultDomain, lightDescription())
	h := NewLogHandler(d, nil)

	assert.False(t, h.Enabled(t.Context(), slog.LevelDebug))
	assert.True(t, h.Enabled(t.Context(), slog.LevelInfo))
	assert.NotPanics(t, func() { slog.New(h).Error("nobody listens") })
}
