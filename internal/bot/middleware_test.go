package bot

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	domerrors "github.com/originalcoast/igbot/internal/errors"
	"github.com/originalcoast/igbot/internal/igapi"
	"github.com/originalcoast/igbot/internal/logger"
	"github.com/originalcoast/igbot/internal/metrics"
	"github.com/originalcoast/igbot/internal/user"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestChain_Order(t *testing.T) {
	var trace []string
	mark := func(name string) Middleware {
		return func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, h Handler, token string, u user.User) ([]igapi.Message, error) {
				trace = append(trace, name)
				return next(ctx, h, token, u)
			}
		}
	}

	fn := Chain(invoke, mark("outer"), mark("inner"))
	h := &stubHandler{name: "test"}
	if _, err := fn(context.Background(), h, "X", user.User{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Join(trace, ",") != "outer,inner" {
		t.Errorf("trace = %v, want [outer inner]", trace)
	}
	if len(h.tokens) != 1 || h.tokens[0] != "X" {
		t.Errorf("handler tokens = %v", h.tokens)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter("debug", &buf)
	fn := Chain(invoke, LoggingMiddleware(log))

	msgs, err := fn(context.Background(), &stubHandler{name: "test", msgs: []igapi.Message{{Text: "ok"}}}, "TOKEN", user.User{})
	if err != nil || len(msgs) != 1 {
		t.Fatalf("got (%v, %v)", msgs, err)
	}
	out := buf.String()
	if !strings.Contains(out, "Handler started") || !strings.Contains(out, "Handler completed") {
		t.Errorf("missing log lines: %s", out)
	}
}

func TestMetricsMiddleware(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	fn := Chain(invoke, MetricsMiddleware(m))

	_, _ = fn(context.Background(), &stubHandler{name: "care"}, "CARE_HELP", user.User{})
	_, _ = fn(context.Background(), &stubHandler{name: "care", err: errors.New("x")}, "CARE_HELP", user.User{})

	if got := testutil.ToFloat64(m.RoutesTotal.WithLabelValues("care")); got != 2 {
		t.Errorf("routes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.DispatchErrorsTotal.WithLabelValues("care", "error")); got != 1 {
		t.Errorf("errors = %v, want 1", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	log := logger.NewWithWriter("error", &bytes.Buffer{})
	fn := Chain(invoke, RecoveryMiddleware(log, nil))

	msgs, err := fn(context.Background(), &stubHandler{name: "survey", panic: "boom"}, "CSAT_GOOD", user.User{})
	if msgs != nil {
		t.Errorf("msgs = %v, want nil", msgs)
	}
	var wrapped *domerrors.WrappedError
	if !errors.As(err, &wrapped) {
		t.Fatalf("err = %v, want a WrappedError", err)
	}
	if wrapped.Module != "survey" || wrapped.UserMessage != "boom" {
		t.Errorf("wrapped = %+v", wrapped)
	}
}
