package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	domerrors "github.com/originalcoast/igbot/internal/errors"
	"github.com/originalcoast/igbot/internal/igapi"
	"github.com/originalcoast/igbot/internal/logger"
	"github.com/originalcoast/igbot/internal/metrics"
	"github.com/originalcoast/igbot/internal/user"
)

// HandlerFunc invokes a handler for one token.
type HandlerFunc func(ctx context.Context, h Handler, token string, u user.User) ([]igapi.Message, error)

// Middleware wraps a HandlerFunc.
type Middleware func(next HandlerFunc) HandlerFunc

func invoke(ctx context.Context, h Handler, token string, u user.User) ([]igapi.Message, error) {
	return h.HandlePayload(ctx, token, u)
}

// Chain applies middlewares so the first one is outermost.
func Chain(final HandlerFunc, mws ...Middleware) HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		final = mws[i](final)
	}
	return final
}

// LoggingMiddleware logs handler execution with timing and result info.
func LoggingMiddleware(log *logger.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, h Handler, token string, u user.User) ([]igapi.Message, error) {
			start := time.Now()

			log.WithField("module", h.Name()).
				WithField("payload", token).
				Debug("Handler started")

			msgs, err := next(ctx, h, token, u)

			log.WithField("module", h.Name()).
				WithField("duration_ms", time.Since(start).Milliseconds()).
				WithField("msg_count", len(msgs)).
				Debug("Handler completed")

			return msgs, err
		}
	}
}

// MetricsMiddleware records the topic of every handled token and its failures.
func MetricsMiddleware(m *metrics.Metrics) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, h Handler, token string, u user.User) ([]igapi.Message, error) {
			m.RecordRoute(h.Name())
			msgs, err := next(ctx, h, token, u)
			if err != nil {
				m.RecordDispatchError(h.Name(), "error")
			}
			return msgs, err
		}
	}
}

// RecoveryMiddleware turns a handler panic into an error.
func RecoveryMiddleware(log *logger.Logger, m *metrics.Metrics) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, h Handler, token string, u user.User) (msgs []igapi.Message, err error) {
			defer func() {
				if r := recover(); r != nil {
					log.WithField("module", h.Name()).
						WithField("panic", r).
						WithField("stack", string(debug.Stack())).
						Error("Handler panicked")
					m.RecordDispatchError(h.Name(), "panic")

					msgs = nil
					err = domerrors.NewWrapper(h.Name(), "handle_payload").
						Wrap(fmt.Errorf("panic: %v", r), fmt.Sprint(r))
				}
			}()

			return next(ctx, h, token, u)
		}
	}
}
