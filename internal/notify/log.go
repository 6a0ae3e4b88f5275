package notify

import (
	"context"
	"log/slog"
)

// LogSink writes every event to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink logs to logger, or to the default logger when nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(ctx context.Context, env Envelope) error {
	s.logger.InfoContext(ctx, "event", "event", env.Name, "event_id", env.ID, "occurred_at", env.OccurredAt)
	return nil
}
