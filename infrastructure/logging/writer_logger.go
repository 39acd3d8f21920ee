package logging

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/ca-srg/relaunch/domain"
)

// WriterLogger writes one line per entry to an io.Writer. It is used when no
// Loki endpoint is configured and as the daemon log file sink.
type WriterLogger struct {
	out       io.Writer
	mu        *sync.Mutex
	component string
	fields    []domain.Field
	now       func() time.Time
}

func NewWriterLogger(out io.Writer, component string) *WriterLogger {
	return &WriterLogger{
		out:       out,
		mu:        &sync.Mutex{},
		component: component,
		now:       time.Now,
	}
}

func (w *WriterLogger) Debug(ctx context.Context, msg string, fields ...domain.Field) {
	w.write(domain.LogLevelDebug, msg, fields)
}

func (w *WriterLogger) Info(ctx context.Context, msg string, fields ...domain.Field) {
	w.write(domain.LogLevelInfo, msg, fields)
}

func (w *WriterLogger) Warn(ctx context.Context, msg string, fields ...domain.Field) {
	w.write(domain.LogLevelWarn, msg, fields)
}

func (w *WriterLogger) Error(ctx context.Context, msg string, fields ...domain.Field) {
	w.write(domain.LogLevelError, msg, fields)
}

func (w *WriterLogger) WithFields(fields ...domain.Field) domain.Logger {
	merged := make([]domain.Field, 0, len(w.fields)+len(fields))
	merged = append(merged, w.fields...)
	merged = append(merged, fields...)
	return &WriterLogger{
		out:       w.out,
		mu:        w.mu,
		component: w.component,
		fields:    merged,
		now:       w.now,
	}
}

func (w *WriterLogger) write(level domain.LogLevel, msg string, fields []domain.Field) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s [%s] %s",
		w.now().Format("2006-01-02T15:04:05.000Z07:00"), levelToString(level), w.component, msg)
	for _, f := range w.fields {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	for _, f := range fields {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	b.WriteByte('\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	_, _ = io.WriteString(w.out, b.String())
}
