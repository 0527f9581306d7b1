// Package webhook serves the Instagram webhook: subscription verification
// and signed event delivery.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/originalcoast/igbot/internal/bot"
	"github.com/originalcoast/igbot/internal/config"
	"github.com/originalcoast/igbot/internal/ctxutil"
	domerrors "github.com/originalcoast/igbot/internal/errors"
	"github.com/originalcoast/igbot/internal/i18n"
	"github.com/originalcoast/igbot/internal/igapi"
	"github.com/originalcoast/igbot/internal/igutil"
	"github.com/originalcoast/igbot/internal/logger"
	"github.com/originalcoast/igbot/internal/metrics"
	"github.com/originalcoast/igbot/internal/user"
	"golang.org/x/sync/errgroup"
)

// EventReceived is the body acknowledging an instagram payload.
const EventReceived = "EVENT_RECEIVED"

// maxBodyBytes caps the webhook body read into memory.
const maxBodyBytes = 1 << 20

// Resolver returns the directory entry for a sender.
type Resolver interface {
	Resolve(ctx context.Context, id string) user.User
}

// Dispatcher turns one event into scheduled replies.
type Dispatcher interface {
	Dispatch(ctx context.Context, u user.User, ev bot.Event) []bot.Scheduled
}

// Scheduler queues replies for delivery.
type Scheduler interface {
	Schedule(recipientID string, batch []bot.Scheduled)
}

// PrivateReplier answers a comment with a direct message.
type PrivateReplier interface {
	SendPrivateReply(ctx context.Context, commentID string, msg igapi.Message) error
}

// Handler handles Instagram webhook requests.
type Handler struct {
	appSecret   string
	verifyToken string
	resolver    Resolver
	dispatcher  Dispatcher
	scheduler   Scheduler
	replier     PrivateReplier
	appURL      AppURLDiscoverer
	translator  i18n.Translator
	metrics     *metrics.Metrics
	logger      *logger.Logger
	wg          sync.WaitGroup

	processingTimeout    time.Duration
	maxConcurrentEntries int
}

// HandlerConfig holds configuration for creating a new Handler.
type HandlerConfig struct {
	AppSecret   string
	VerifyToken string
	Resolver    Resolver
	Dispatcher  Dispatcher
	Scheduler   Scheduler
	Replier     PrivateReplier
	AppURL      AppURLDiscoverer // Optional; learns the base URL from signed requests
	Translator  i18n.Translator
	Metrics     *metrics.Metrics
	Logger      *logger.Logger
}

// NewHandler creates a new webhook handler.
func NewHandler(cfg HandlerConfig, opts ...HandlerOption) *Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.New("info")
	}
	h := &Handler{
		appSecret:            cfg.AppSecret,
		verifyToken:          cfg.VerifyToken,
		resolver:             cfg.Resolver,
		dispatcher:           cfg.Dispatcher,
		scheduler:            cfg.Scheduler,
		replier:              cfg.Replier,
		appURL:               cfg.AppURL,
		translator:           cfg.Translator,
		metrics:              cfg.Metrics,
		logger:               log.WithModule("webhook"),
		processingTimeout:    config.WebhookProcessing,
		maxConcurrentEntries: config.MaxConcurrentEntries,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Verify answers the platform's subscription handshake.
func (h *Handler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "" || token == "" {
		h.logger.Warn("Got /webhook but without needed parameters")
		h.metrics.RecordWebhookRequest(http.MethodGet, "forbidden")
		c.Status(http.StatusForbidden)
		return
	}
	if mode != "subscribe" || token != h.verifyToken {
		h.logger.WithField("mode", mode).Warn("Webhook verification failed")
		h.metrics.RecordWebhookRequest(http.MethodGet, "forbidden")
		c.Status(http.StatusForbidden)
		return
	}

	h.logger.Info("Webhook verified")
	h.metrics.RecordWebhookRequest(http.MethodGet, "verified")
	c.String(http.StatusOK, challenge)
}

// Handle validates and acknowledges an event payload, then processes it asynchronously.
func (h *Handler) Handle(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		h.logger.WithError(err).Warn("Failed to read webhook body")
		h.metrics.RecordWebhookRequest(http.MethodPost, "bad_request")
		c.Status(http.StatusBadRequest)
		return
	}

	env, err := igapi.ParseEnvelope(h.appSecret, c.Request.Header, body)
	if err != nil {
		if errors.Is(err, domerrors.ErrInvalidSignature) {
			h.logger.WithError(err).Warn("Invalid webhook signature")
			h.metrics.RecordWebhookRequest(http.MethodPost, "invalid_signature")
		} else {
			h.logger.WithError(err).Warn("Failed to parse webhook body")
			h.metrics.RecordWebhookRequest(http.MethodPost, "bad_request")
		}
		c.Status(http.StatusBadRequest)
		return
	}

	if err := checkObject(env.Object); err != nil {
		if env.Object == igapi.ObjectPage {
			h.logger.WithError(err).Warn(`Received Messenger "page" object instead of "instagram" message webhook`)
		} else {
			h.logger.WithError(err).Warn("Unrecognized POST to webhook")
		}
		h.metrics.RecordWebhookRequest(http.MethodPost, "unsupported_object")
		c.Status(http.StatusNotFound)
		return
	}

	h.discoverAppURL(c.Request)
	h.metrics.RecordWebhookRequest(http.MethodPost, "accepted")
	c.String(http.StatusOK, EventReceived)

	ctx := ctxutil.PreserveTracing(c.Request.Context())
	h.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				h.logger.WithField("panic", r).Error("Panic in async event processing")
			}
		}()

		processCtx, cancel := context.WithTimeout(ctx, h.processingTimeout)
		defer cancel()
		h.Process(processCtx, env)
	})
}

// Process handles every entry of env. Entries run concurrently; events
// within an entry run in order.
func (h *Handler) Process(ctx context.Context, env *igapi.Envelope) {
	var g errgroup.Group
	g.SetLimit(h.maxConcurrentEntries)

	for _, entry := range env.Entry {
		g.Go(func() error {
			h.processEntry(ctx, entry)
			return nil
		})
	}
	_ = g.Wait()
}

func (h *Handler) processEntry(ctx context.Context, entry igapi.Entry) {
	ctx = ctxutil.WithEntryID(ctx, entry.ID)
	log := h.logger.WithField("entry_id", entry.ID)

	if len(entry.Changes) > 0 {
		handled := false
		for _, change := range entry.Changes {
			if change.Field != igapi.ChangeFieldComments {
				continue
			}
			handled = true
			h.replyToComment(ctx, change.Value)
		}
		if handled {
			return
		}
	}

	if len(entry.Messaging) == 0 {
		log.Warn("No messaging field in entry. Possibly a webhook test.")
		return
	}

	for _, m := range entry.Messaging {
		if ctx.Err() != nil {
			log.WithError(ctx.Err()).Warn("Processing deadline reached; skipping remaining events")
			return
		}
		h.processEvent(ctx, m)
	}
}

func (h *Handler) processEvent(ctx context.Context, m igapi.Messaging) {
	start := time.Now()
	ev := bot.Classify(m)
	if mid := messageID(m); mid != "" {
		ctx = ctxutil.WithEventID(ctx, mid)
	}

	if ev.Kind == bot.KindEcho {
		h.logger.Debug("Got an echo")
		h.metrics.RecordEvent(ev.Kind.String(), time.Since(start).Seconds())
		return
	}
	if ev.SenderID == "" {
		h.logger.WithField("event_type", ev.Kind.String()).Warn("Event without sender")
		return
	}

	ctx = ctxutil.WithUserID(ctx, ev.SenderID)
	u := h.resolver.Resolve(ctx, ev.SenderID)
	batch := h.dispatcher.Dispatch(ctx, u, ev)
	h.scheduler.Schedule(u.ID, batch)

	h.metrics.RecordEvent(ev.Kind.String(), time.Since(start).Seconds())
	h.logger.WithField("user_id", u.ID).
		WithField("event_type", ev.Kind.String()).
		WithField("replies", len(batch)).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("Event processed")
}

func (h *Handler) replyToComment(ctx context.Context, comment igapi.ChangeValue) {
	log := h.logger.WithField("comment_id", comment.ID)
	log.Info("Got a comments event")
	h.metrics.RecordEvent("comment", 0)

	msg := igutil.NewTextMessage(h.translator.T("private_reply.post"))
	if err := h.replier.SendPrivateReply(ctx, comment.ID, msg); err != nil {
		log.WithError(err).Error("Unable to send private reply")
	}
}

// checkObject accepts only instagram payloads.
func checkObject(object string) error {
	if object == igapi.ObjectInstagram {
		return nil
	}
	return fmt.Errorf("%w: %q", domerrors.ErrUnsupportedObject, object)
}

func messageID(m igapi.Messaging) string {
	switch {
	case m.Message != nil:
		return m.Message.MID
	case m.Postback != nil:
		return m.Postback.MID
	default:
		return ""
	}
}

// Shutdown waits for all async event processing to complete.
// It returns an error if the context is canceled before completion.
func (h *Handler) Shutdown(ctx context.Context) error {
	c := make(chan struct{})
	go func() {
		defer close(c)
		h.wg.Wait()
	}()

	select {
	case <-c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
