package logger

import (
	"context"
	"log/slog"

	"github.com/originalcoast/igbot/internal/ctxutil"
)

// ContextHandler stamps each record with the correlation ids found in its
// context (request, entry, event, user) and forwards it.
type ContextHandler struct {
	next slog.Handler
}

// NewContextHandler wraps next.
func NewContextHandler(next slog.Handler) *ContextHandler {
	return &ContextHandler{next: next}
}

// Enabled defers to the wrapped handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle adds the correlation ids. Canceling ctx does not drop the record.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	ctxutil.TracingFrom(ctx).Each(func(field, value string) {
		r.AddAttrs(slog.String(field, value))
	})
	return h.next.Handle(ctx, r)
}

// WithAttrs keeps the context stamping on the derived handler.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{next: h.next.WithAttrs(attrs)}
}

// WithGroup keeps the context stamping on the derived handler.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{next: h.next.WithGroup(name)}
}
