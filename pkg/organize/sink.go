package organize

import (
	"context"

	"github.com/sdejongh/orgphoto/pkg/logging"
	"github.com/sdejongh/orgphoto/pkg/models"
)

// EventSink consumes the per-file event stream
// The engine never formats events itself
type EventSink interface {
	Emit(ctx context.Context, ev models.Event) error
}

// SinkFunc adapts a function to EventSink
type SinkFunc func(ctx context.Context, ev models.Event) error

// Emit calls f
func (f SinkFunc) Emit(ctx context.Context, ev models.Event) error {
	return f(ctx, ev)
}

// MultiSink fans events out to several sinks
type MultiSink []EventSink

// Emit forwards ev to every sink and returns the first error
func (m MultiSink) Emit(ctx context.Context, ev models.Event) error {
	var first error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Emit(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// LogSink writes events to a logger
type LogSink struct {
	logger logging.Logger
}

// NewLogSink creates a sink logging every event
func NewLogSink(logger logging.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Emit logs the event at info level, or error level for failures
func (s *LogSink) Emit(ctx context.Context, ev models.Event) error {
	fields := logging.Fields{
		"run_id":   ev.RunID,
		"incoming": ev.IncomingPath,
		"outcome":  string(ev.Outcome),
		"conflict": string(ev.ConflictKind),
		"dry_run":  ev.DryRun,
	}
	if ev.Reason != "" {
		fields["reason"] = ev.Reason
	}
	if ev.FinalPath != "" {
		fields["final_path"] = ev.FinalPath
	}
	if ev.SubjectPath != "" {
		fields["subject"] = ev.SubjectPath
	}

	if ev.Outcome == models.OutcomeFailed {
		s.logger.Error(ctx, "File failed", ev.Err, fields)
		return nil
	}
	s.logger.Info(ctx, "File "+string(ev.Outcome), fields)
	return nil
}
