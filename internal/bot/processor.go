package bot

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/originalcoast/igbot/internal/config"
	"github.com/originalcoast/igbot/internal/ctxutil"
	domerrors "github.com/originalcoast/igbot/internal/errors"
	"github.com/originalcoast/igbot/internal/i18n"
	"github.com/originalcoast/igbot/internal/igapi"
	"github.com/originalcoast/igbot/internal/igutil"
	"github.com/originalcoast/igbot/internal/logger"
	"github.com/originalcoast/igbot/internal/metrics"
	"github.com/originalcoast/igbot/internal/sentry"
	"github.com/originalcoast/igbot/internal/stringutil"
	"github.com/originalcoast/igbot/internal/user"
)

// welcomePhrases trigger the welcome reply when contained in lowercased text.
var welcomePhrases = []string{"start over", "get started", "hi"}

// Processor turns classified events into scheduled replies.
// Dispatch never fails: handler errors and panics become an apology message.
type Processor struct {
	registry   *Registry
	translator i18n.Translator
	logger     *logger.Logger
	metrics    *metrics.Metrics
	delayStep  time.Duration
	handle     HandlerFunc
}

// ProcessorConfig holds configuration for creating a new Processor.
type ProcessorConfig struct {
	Registry   *Registry
	Translator i18n.Translator
	Logger     *logger.Logger
	Metrics    *metrics.Metrics

	// DelayStep spaces consecutive replies; zero uses config.DefaultSendDelayStep.
	DelayStep time.Duration
}

// NewProcessor creates a new event processor.
func NewProcessor(cfg ProcessorConfig) *Processor {
	log := cfg.Logger
	if log == nil {
		log = logger.New("error")
	}
	log = log.WithModule("bot")

	step := cfg.DelayStep
	if step <= 0 {
		step = config.DefaultSendDelayStep
	}

	return &Processor{
		registry:   cfg.Registry,
		translator: cfg.Translator,
		logger:     log,
		metrics:    cfg.Metrics,
		delayStep:  step,
		handle: Chain(invoke,
			RecoveryMiddleware(log, cfg.Metrics),
			MetricsMiddleware(cfg.Metrics),
			LoggingMiddleware(log),
		),
	}
}

// Dispatch answers ev on behalf of u. A nil result means no reply.
func (p *Processor) Dispatch(ctx context.Context, u user.User, ev Event) []Scheduled {
	ctx = ctxutil.WithUserID(ctx, u.ID)
	log := p.logger.WithField("user_id", u.ID).WithField("event_type", ev.Kind.String())

	var msgs []igapi.Message
	switch ev.Kind {
	case KindEcho:
		log.Debug("Ignoring echo")
		return nil

	case KindQuickReply, KindPostback, KindReferral:
		log.WithField("payload", ev.Token).Info("Received payload")
		msgs = p.route(ctx, u, ev.Token)

	case KindAttachment:
		log.WithField("attachments", len(ev.Attachments)).Info("Received attachment")
		p.metrics.RecordRoute("fallback")
		msgs = AttachmentFallback(p.translator)

	case KindText:
		log.WithField("text", stringutil.Truncate(ev.Text, 200)).Info("Received text")
		msgs = p.handleText(ctx, u, ev.Text)

	default:
		log.Debug("Ignoring unrecognized event")
		return nil
	}

	for i, msg := range msgs {
		if err := igutil.CheckLimits(msg); err != nil {
			log.WithError(err).WithField("index", i).Warn("Reply exceeds platform limits")
		}
	}
	return Schedule(msgs, p.delayStep)
}

func (p *Processor) handleText(ctx context.Context, u user.User, text string) []igapi.Message {
	message := strings.ToLower(strings.TrimSpace(text))

	switch {
	case stringutil.ContainsAny(message, welcomePhrases...):
		p.metrics.RecordRoute("welcome")
		return Welcome(p.translator, u)
	case stringutil.IsNumeric(message):
		return p.route(ctx, u, TokenOrderNumber)
	case strings.Contains(message, "#"):
		return p.route(ctx, u, TokenCSATSuggestion)
	case stringutil.ContainsAny(message, strings.ToLower(p.translator.T("care.help"))):
		return p.route(ctx, u, TokenCareHelp)
	default:
		p.metrics.RecordRoute("fallback")
		return TextFallback(p.translator, text)
	}
}

// route resolves token to a topic handler, the welcome aliases, or the default reply.
func (p *Processor) route(ctx context.Context, u user.User, token string) []igapi.Message {
	h := p.registry.Match(token)
	if h == nil {
		if slices.Contains(welcomeAliases, token) {
			p.metrics.RecordRoute("welcome")
			return Welcome(p.translator, u)
		}
		p.metrics.RecordRoute("default")
		return DefaultReply(token)
	}

	msgs, err := p.handle(ctx, h, token, u)
	if err != nil {
		p.logger.WithError(err).
			WithField("module", h.Name()).
			WithField("payload", token).
			Error("Handler failed")
		sentry.CaptureExceptionWithContext(ctx, err)
		return ErrorReply(domerrors.GetUserMessage(err))
	}
	if msgs == nil {
		p.logger.WithField("module", h.Name()).WithField("payload", token).Debug("Handler produced no reply")
	}
	return msgs
}
