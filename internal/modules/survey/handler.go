// Package survey implements the customer satisfaction (CSAT) topic.
package survey

import (
	"context"
	"time"

	"github.com/originalcoast/igbot/internal/i18n"
	"github.com/originalcoast/igbot/internal/igapi"
	"github.com/originalcoast/igbot/internal/igutil"
	"github.com/originalcoast/igbot/internal/user"
)

// ModuleName identifies this topic in logs and metrics.
const ModuleName = "survey"

// Payload tokens.
const (
	TokenGood       = "CSAT_GOOD"
	TokenAverage    = "CSAT_AVERAGE"
	TokenBad        = "CSAT_BAD"
	TokenSuggestion = "CSAT_SUGGESTION"
)

// RatingDelay holds the rating prompt back so it lands after the agent's messages.
const RatingDelay = 4000 * time.Millisecond

// feedbackKeys maps each rating token to its acknowledgement.
var feedbackKeys = map[string]string{
	TokenGood:    "survey.feedback.good",
	TokenAverage: "survey.feedback.average",
	TokenBad:     "survey.feedback.bad",
}

// Handler answers CSAT tokens.
type Handler struct {
	tr i18n.Translator
}

// NewHandler creates a survey handler.
func NewHandler(tr i18n.Translator) *Handler {
	return &Handler{tr: tr}
}

// Name returns the module name.
func (h *Handler) Name() string {
	return ModuleName
}

// HandlePayload answers a rating or a suggestion. Other CSAT tokens get no reply.
func (h *Handler) HandlePayload(_ context.Context, token string, _ user.User) ([]igapi.Message, error) {
	if key, ok := feedbackKeys[token]; ok {
		return []igapi.Message{
			igutil.NewTextMessage(h.tr.T(key)),
			igutil.NewTextMessage(h.tr.T("survey.suggestion")),
		}, nil
	}
	if token == TokenSuggestion {
		return []igapi.Message{igutil.NewTextMessage(h.tr.T("survey.thanks"))}, nil
	}
	return nil, nil
}

// AgentRating asks the user to rate their conversation with agent.
func AgentRating(tr i18n.Translator, agent string) igapi.Message {
	msg := igutil.NewQuickReply(tr.T("survey.prompt", i18n.Args{"agentFirstName": agent}), []igutil.QuickReplyOption{
		{Title: tr.T("survey.great"), Payload: TokenGood},
		{Title: tr.T("survey.average"), Payload: TokenAverage},
		{Title: tr.T("survey.poor"), Payload: TokenBad},
	})
	return igutil.WithDelay(msg, RatingDelay)
}
