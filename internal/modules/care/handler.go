// Package care implements the customer care topic: a help menu and
// hand-offs to a named human agent.
package care

import (
	"context"
	"math/rand/v2"

	"github.com/originalcoast/igbot/internal/i18n"
	"github.com/originalcoast/igbot/internal/igapi"
	"github.com/originalcoast/igbot/internal/igutil"
	"github.com/originalcoast/igbot/internal/modules/survey"
	"github.com/originalcoast/igbot/internal/user"
)

// ModuleName identifies this topic in logs and metrics.
const ModuleName = "care"

// Payload tokens.
const (
	TokenHelp    = "CARE_HELP"
	TokenOrder   = "CARE_ORDER"
	TokenBilling = "CARE_BILLING"
	TokenSales   = "CARE_SALES"
	TokenOther   = "CARE_OTHER"
)

// AgentNames is the pool agents are drawn from.
var AgentNames = []string{"Laura", "Stan", "Jorge", "Gary"}

// Picker returns an index in [0, n).
type Picker func(n int) int

// Handler answers CARE tokens.
type Handler struct {
	tr   i18n.Translator
	pick Picker
}

// NewHandler creates a care handler. A nil pick selects agents uniformly at random.
func NewHandler(tr i18n.Translator, pick Picker) *Handler {
	if pick == nil {
		pick = rand.IntN
	}
	return &Handler{tr: tr, pick: pick}
}

// Name returns the module name.
func (h *Handler) Name() string {
	return ModuleName
}

// HandlePayload answers one care token. The agent is chosen once per call.
func (h *Handler) HandlePayload(_ context.Context, token string, u user.User) ([]igapi.Message, error) {
	agent := AgentNames[h.pick(len(AgentNames))]
	who := i18n.Args{"userName": u.DisplayName, "agentFirstName": agent}

	switch token {
	case TokenHelp:
		return []igapi.Message{
			igutil.NewQuickReply(h.tr.T("care.prompt", i18n.Args{"userName": u.DisplayName}), []igutil.QuickReplyOption{
				{Title: h.tr.T("care.order"), Payload: TokenOrder},
				{Title: h.tr.T("care.billing"), Payload: TokenBilling},
				{Title: h.tr.T("care.other"), Payload: TokenOther},
			}),
		}, nil
	case TokenOrder:
		return h.handoff(agent, h.tr.T("care.issue", who, i18n.Args{"topic": h.tr.T("care.order")})), nil
	case TokenBilling:
		return h.handoff(agent, h.tr.T("care.issue", who, i18n.Args{"topic": h.tr.T("care.billing")})), nil
	case TokenSales:
		return h.handoff(agent, h.tr.T("care.style", who)), nil
	case TokenOther:
		return h.handoff(agent, h.tr.T("care.default", who)), nil
	}
	return nil, nil
}

// handoff is the agent introduction, the closing line, and the rating prompt.
func (h *Handler) handoff(agent, intro string) []igapi.Message {
	return []igapi.Message{
		igutil.NewTextMessage(intro),
		igutil.NewTextMessage(h.tr.T("care.end")),
		survey.AgentRating(h.tr, agent),
	}
}
