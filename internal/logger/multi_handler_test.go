package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("sink down") }

// recordingHandler collects messages; safe for concurrent use.
type recordingHandler struct {
	mu   sync.Mutex
	msgs []string
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, r.Message)
	return nil
}
func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }
func (h *recordingHandler) messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.msgs...)
}

func TestNewMultiHandler_NilFiltering(t *testing.T) {
	t.Parallel()
	mh := NewMultiHandler(nil, slog.NewJSONHandler(&bytes.Buffer{}, nil), nil)
	if len(mh.handlers) != 1 {
		t.Errorf("len(handlers) = %d, want 1", len(mh.handlers))
	}
}

func TestMultiHandler_FanOut(t *testing.T) {
	t.Parallel()

	var debugBuf, errorBuf bytes.Buffer
	mh := NewMultiHandler(
		slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewJSONHandler(&errorBuf, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	log := slog.New(mh)

	if !mh.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Enabled(debug) = false, want true when any handler accepts it")
	}

	log.Info("info only")
	log.Error("both")

	if got := strings.Count(debugBuf.String(), "\n"); got != 2 {
		t.Errorf("debug handler got %d records, want 2", got)
	}
	if got := strings.Count(errorBuf.String(), "\n"); got != 1 {
		t.Errorf("error handler got %d records, want 1", got)
	}
	if !strings.Contains(errorBuf.String(), "both") {
		t.Errorf("error handler output %q missing %q", errorBuf.String(), "both")
	}
}

func TestMultiHandler_JoinsErrors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ok := slog.NewJSONHandler(&buf, nil)
	mh := NewMultiHandler(ok, failingHandler{ok})

	err := mh.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "x", 0))
	if err == nil || !strings.Contains(err.Error(), "sink down") {
		t.Fatalf("Handle() error = %v, want sink down", err)
	}
	if !strings.Contains(buf.String(), `"msg":"x"`) {
		t.Errorf("healthy handler did not receive the record: %q", buf.String())
	}
}

func TestAsyncHandler_FlushesOnShutdown(t *testing.T) {
	t.Parallel()

	rec := &recordingHandler{}
	h := NewAsyncHandler(rec, AsyncOptions{BufferSize: 16})
	log := slog.New(h.WithAttrs(nil))

	for range 5 {
		log.Info("queued")
	}
	if err := h.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if got := len(rec.messages()); got != 5 {
		t.Errorf("flushed %d records, want 5", got)
	}

	// Records after shutdown are ignored rather than panicking on a closed channel.
	log.Info("late")
	if got := len(rec.messages()); got != 5 {
		t.Errorf("after shutdown: %d records, want 5", got)
	}
	if err := h.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
}
