// Package trace correlates log lines belonging to one scan tick, store call or request.
package trace

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Propagation keys for HTTP headers and gRPC metadata.
const (
	TraceIDKey = "x-trace-id"
	SpanIDKey  = "x-span-id"
)

type ctxKey struct{}

// Context holds the identifiers of the current span.
type Context struct {
	TraceID      string
	SpanID       string
	ParentSpanID string
}

// New starts a fresh trace.
func New() Context {
	return Context{TraceID: newTraceID(), SpanID: newSpanID()}
}

// Child derives a span inside the same trace.
func (c Context) Child() Context {
	return Context{TraceID: c.TraceID, SpanID: newSpanID(), ParentSpanID: c.SpanID}
}

// FromContext extracts the trace context, if any.
func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(ctxKey{}).(Context)
	return tc, ok
}

// WithContext stores tc in ctx.
func WithContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// 32 hex chars
func newTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// 16 hex chars
func newSpanID() string {
	return newTraceID()[:16]
}

// Span times one operation and logs it on End.
type Span struct {
	Name  string
	Ctx   Context
	start time.Time
	attrs []any
}

// StartSpan begins a span, as a child when ctx already carries a trace.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	tc, ok := FromContext(ctx)
	if ok {
		tc = tc.Child()
	} else {
		tc = New()
	}
	return WithContext(ctx, tc), &Span{Name: name, Ctx: tc, start: time.Now()}
}

// SetAttr attaches a key/value logged with the span.
func (s *Span) SetAttr(key string, val any) {
	s.attrs = append(s.attrs, key, val)
}

// End logs the span at debug level with its duration.
func (s *Span) End() {
	args := append([]any{"span", s.Name, "duration", time.Since(s.start)}, s.attrs...)
	s.Ctx.logger().Debug("span finished", args...)
}

func (c Context) logger() *slog.Logger {
	l := slog.Default().With("trace_id", c.TraceID, "span_id", c.SpanID)
	if c.ParentSpanID != "" {
		l = l.With("parent_span_id", c.ParentSpanID)
	}
	return l
}

// Logger returns the default logger annotated with ctx's trace ids.
func Logger(ctx context.Context) *slog.Logger {
	tc, ok := FromContext(ctx)
	if !ok {
		return slog.Default()
	}
	return tc.logger()
}
