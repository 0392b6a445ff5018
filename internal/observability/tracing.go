package observability

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

type SpanStatus string

const (
	SpanStatusOK    SpanStatus = "OK"
	SpanStatusError SpanStatus = "ERROR"
)

// Span times one operation. Spans are log records, not exported traces: a
// finished span is written through LogAttrs.
type Span struct {
	TraceID   string
	SpanID    string
	ParentID  string
	Operation string
	Start     time.Time
	End       time.Time
	Status    SpanStatus
	Error     string

	tags []slog.Attr
}

type spanContextKey struct{}

// StartSpan opens a span under the span already in ctx, if any.
func StartSpan(ctx context.Context, operation string) (context.Context, *Span) {
	span := &Span{
		SpanID:    newSpanID(),
		Operation: operation,
		Start:     time.Now(),
		Status:    SpanStatusOK,
	}
	if parent := GetSpan(ctx); parent != nil {
		span.TraceID = parent.TraceID
		span.ParentID = parent.SpanID
	} else {
		span.TraceID = uuid.NewString()
	}
	return context.WithValue(ctx, spanContextKey{}, span), span
}

func (s *Span) Finish() {
	s.End = time.Now()
}

// Duration is the elapsed time so far, or the span length once finished.
func (s *Span) Duration() time.Duration {
	if s.End.IsZero() {
		return time.Since(s.Start)
	}
	return s.End.Sub(s.Start)
}

// SetTag adds a tag, replacing an earlier one with the same key.
func (s *Span) SetTag(key, value string) {
	for i := range s.tags {
		if s.tags[i].Key == key {
			s.tags[i].Value = slog.StringValue(value)
			return
		}
	}
	s.tags = append(s.tags, slog.String(key, value))
}

func (s *Span) SetError(err error) {
	s.Status = SpanStatusError
	if err != nil {
		s.Error = err.Error()
	}
}

// LogAttrs returns the span as slog key-value arguments, tags last in the
// order they were set.
func (s *Span) LogAttrs() []any {
	attrs := make([]any, 0, 7+len(s.tags))
	attrs = append(attrs,
		slog.String("trace_id", s.TraceID),
		slog.String("span_id", s.SpanID),
		slog.String("operation", s.Operation),
		slog.Duration("duration", s.Duration()),
		slog.String("status", string(s.Status)),
	)
	if s.ParentID != "" {
		attrs = append(attrs, slog.String("parent_id", s.ParentID))
	}
	if s.Error != "" {
		attrs = append(attrs, slog.String("error", s.Error))
	}
	for _, t := range s.tags {
		attrs = append(attrs, t)
	}
	return attrs
}

func GetSpan(ctx context.Context) *Span {
	if span, ok := ctx.Value(spanContextKey{}).(*Span); ok {
		return span
	}
	return nil
}

// Trace runs fn inside a child span of ctx and logs the span at debug level
// when fn returns.
func Trace(ctx context.Context, logger *slog.Logger, operation string, fn func(ctx context.Context, span *Span) error) error {
	ctx, span := StartSpan(ctx, operation)
	err := fn(ctx, span)
	if err != nil {
		span.SetError(err)
	}
	span.Finish()
	logger.Debug("span finished", span.LogAttrs()...)
	return err
}

func newSpanID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
