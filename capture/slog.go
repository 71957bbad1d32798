package capture

import (
	"context"
	"log/slog"
)

// SlogRecorder writes records to a slog.Logger at debug level.
type SlogRecorder struct {
	logger *slog.Logger
}

func NewSlogRecorder(logger *slog.Logger) *SlogRecorder {
	return &SlogRecorder{logger: logger}
}

func (s *SlogRecorder) Record(r Record) {
	attrs := []slog.Attr{
		slog.String("session", r.SessionID),
		slog.String("direction", r.Direction.String()),
		slog.String("topic", r.Topic),
		slog.Int("size", len(r.Payload)),
	}
	if r.Retain {
		attrs = append(attrs, slog.Bool("retain", true))
	}
	if msg, err := r.Message(); err == nil {
		attrs = append(attrs, slog.String("message", messageKind(msg)))
	}
	s.logger.LogAttrs(context.Background(), slog.LevelDebug, "homie traffic", attrs...)
}

var _ Recorder = (*SlogRecorder)(nil)
