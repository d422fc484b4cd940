package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// LogSink stores one log record for a run.
type LogSink interface {
	AppendLog(ctx context.Context, runID uuid.UUID, ts time.Time, level, message string, metadata json.RawMessage) error
}

// DBLogHandler is a slog.Handler that writes records to the run log, so
// everything a run reports (including its error handler) is visible through
// the logs endpoint. Records are also passed to next when it is set.
type DBLogHandler struct {
	Sink  LogSink
	RunID uuid.UUID
	next  slog.Handler
	attrs []slog.Attr
}

func NewDBLogHandler(sink LogSink, runID uuid.UUID, next slog.Handler) *DBLogHandler {
	return &DBLogHandler{Sink: sink, RunID: runID, next: next}
}

func (h *DBLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return true // Log everything
}

func (h *DBLogHandler) Handle(ctx context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		attrs[a.Key] = logValue(a.Value.Resolve())
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = logValue(a.Value.Resolve())
		return true
	})

	metaJSON, err := json.Marshal(attrs)
	if err != nil {
		metaJSON = []byte("{}")
	}

	if h.next != nil && h.next.Enabled(ctx, r.Level) {
		_ = h.next.Handle(ctx, r)
	}

	// Background context so logs persist even if the request context cancels
	return h.Sink.AppendLog(context.Background(), h.RunID, r.Time, r.Level.String(), r.Message, metaJSON)
}

func (h *DBLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	if h.next != nil {
		clone.next = h.next.WithAttrs(attrs)
	}
	return &clone
}

func (h *DBLogHandler) WithGroup(name string) slog.Handler {
	return h
}

// logValue keeps errors and durations readable once marshalled.
func logValue(v slog.Value) any {
	switch x := v.Any().(type) {
	case error:
		return x.Error()
	case time.Duration:
		return x.String()
	default:
		return x
	}
}
