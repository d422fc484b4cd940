package research

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// ErrorReporter is the operator-visible channel the ErrorHandler writes to.
type ErrorReporter interface {
	Report(ctx context.Context, query string, errs []string)
}

// LogReporter reports through a structured logger.
type LogReporter struct {
	Logger *slog.Logger
}

func (r LogReporter) Report(ctx context.Context, query string, errs []string) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.ErrorContext(ctx, "Error(s) encountered", "query", query, "count", len(errs), "errors", errs)
}

// WriterReporter prints the error list for a human operator.
type WriterReporter struct {
	mu sync.Mutex
	W  io.Writer
}

func (r *WriterReporter) Report(_ context.Context, _ string, errs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	b.WriteString("Error(s) encountered:\n")
	for _, e := range errs {
		fmt.Fprintf(&b, "  - %s\n", e)
	}
	_, _ = io.WriteString(r.W, b.String())
}

// MultiReporter fans a report out to several reporters in order.
type MultiReporter []ErrorReporter

func (m MultiReporter) Report(ctx context.Context, query string, errs []string) {
	for _, r := range m {
		r.Report(ctx, query, errs)
	}
}
