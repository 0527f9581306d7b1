// Package ctxutil carries correlation ids through a webhook delivery:
// the HTTP request, the entry (Instagram account) it belongs to, the
// message id, and the sender.
package ctxutil

import "context"

type contextKey int

const (
	requestIDKey contextKey = iota
	entryIDKey
	eventIDKey
	userIDKey
)

// Tracing is the set of correlation values stored in a context.
type Tracing struct {
	RequestID string
	EntryID   string
	EventID   string // message id (mid)
	UserID    string // Instagram-scoped id (IGSID)
}

// TracingFrom collects the correlation values stored in ctx.
func TracingFrom(ctx context.Context) Tracing {
	return Tracing{
		RequestID: value(ctx, requestIDKey),
		EntryID:   value(ctx, entryIDKey),
		EventID:   value(ctx, eventIDKey),
		UserID:    value(ctx, userIDKey),
	}
}

// Each calls fn with the log field name and value of every non-empty id,
// outermost first.
func (t Tracing) Each(fn func(field, value string)) {
	for _, kv := range [...]struct{ k, v string }{
		{"request_id", t.RequestID},
		{"entry_id", t.EntryID},
		{"event_id", t.EventID},
		{"user_id", t.UserID},
	} {
		if kv.v != "" {
			fn(kv.k, kv.v)
		}
	}
}

// WithTracing stores every non-empty value of t in ctx.
func WithTracing(ctx context.Context, t Tracing) context.Context {
	ctx = with(ctx, requestIDKey, t.RequestID)
	ctx = with(ctx, entryIDKey, t.EntryID)
	ctx = with(ctx, eventIDKey, t.EventID)
	return with(ctx, userIDKey, t.UserID)
}

// PreserveTracing returns a context that keeps only the correlation values
// of ctx. It is never cancelled, so work can outlive the HTTP response.
func PreserveTracing(ctx context.Context) context.Context {
	return WithTracing(context.Background(), TracingFrom(ctx))
}

// WithRequestID adds the HTTP request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID returns the request id and whether one was set.
func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok
}

// WithEntryID adds the id of the webhook entry being processed.
func WithEntryID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, entryIDKey, id)
}

// WithEventID adds the message id (mid) of the event being processed.
func WithEventID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, eventIDKey, id)
}

// GetEventID returns the message id, or "".
func GetEventID(ctx context.Context) string {
	return value(ctx, eventIDKey)
}

// WithUserID adds the sender's IGSID.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// GetUserID returns the sender's IGSID, or "".
func GetUserID(ctx context.Context) string {
	return value(ctx, userIDKey)
}

func value(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(key).(string)
	return s
}

func with(ctx context.Context, key contextKey, v string) context.Context {
	if v == "" {
		return ctx
	}
	return context.WithValue(ctx, key, v)
}
