package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Span times one unit of work, such as an upload or a view aggregation, and
// logs its outcome when it ends.
type Span struct {
	ID     string
	Name   string
	logger *slog.Logger
	start  time.Time
	err    error
}

// StartSpan opens a span named name under the span already on ctx, if any.
// The returned context carries a logger tagged with the span.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	span := &Span{ID: uuid.NewString(), Name: name, start: time.Now()}

	attrs := []any{slog.String("span", name), slog.String("span_id", span.ID)}
	if parent := currentSpan(ctx); parent != nil {
		attrs = append(attrs, slog.String("parent_span_id", parent.ID))
	}
	if RequestIDFromContext(ctx) == "" {
		ctx = WithRequestID(ctx, uuid.NewString())
		attrs = append(attrs, slog.String("request_id", RequestIDFromContext(ctx)))
	}
	span.logger = FromContext(ctx).With(attrs...)

	ctx = WithLogger(ctx, span.logger)
	return context.WithValue(ctx, spanKey, span), span
}

// Fail records err as the span's outcome. A nil err is ignored.
func (s *Span) Fail(err error) {
	if s != nil && err != nil {
		s.err = err
	}
}

// End logs the span duration, at warn level when the span failed.
func (s *Span) End() {
	if s == nil {
		return
	}
	elapsed := slog.Duration("duration", time.Since(s.start))
	if s.err != nil {
		s.logger.Warn("span failed", elapsed, slog.Any("error", s.err))
		return
	}
	s.logger.Debug("span completed", elapsed)
}
