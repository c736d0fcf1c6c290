// Package sinks provides progress.Sink implementations for reporting crawl
// activity to logs and Prometheus.
package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/pricefeed/webcrawler/internal/progress"
)

// LogSink writes progress events through a zap logger. Run milestones log at
// Info; per-fetch events log at Debug to keep normal output quiet.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wraps logger in a Sink.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs one event.
func (s *LogSink) Consume(_ context.Context, evt progress.Event) error {
	fields := []zap.Field{
		zap.String("run_id", evt.RunID.String()),
		zap.String("stage", string(evt.Stage)),
	}
	if evt.URL != "" {
		fields = append(fields, zap.String("url", evt.URL), zap.Int("depth", evt.Depth))
	}
	if evt.Dur > 0 {
		fields = append(fields, zap.Duration("duration", evt.Dur))
	}
	if evt.Note != "" {
		fields = append(fields, zap.String("note", evt.Note))
	}

	switch evt.Stage {
	case progress.StageRunStart, progress.StageRunDone:
		s.logger.Info("Crawl progress", fields...)
	case progress.StageRunError:
		s.logger.Error("Crawl progress", fields...)
	case progress.StageFetchFail:
		s.logger.Warn("Crawl progress", fields...)
	default:
		s.logger.Debug("Crawl progress", fields...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
