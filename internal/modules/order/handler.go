// Package order implements the order tracking topic. Lookups are canned.
package order

import (
	"context"

	domerrors "github.com/originalcoast/igbot/internal/errors"
	"github.com/originalcoast/igbot/internal/i18n"
	"github.com/originalcoast/igbot/internal/igapi"
	"github.com/originalcoast/igbot/internal/igutil"
	"github.com/originalcoast/igbot/internal/user"
)

// ModuleName identifies this topic in logs and metrics.
const ModuleName = "order"

// Payload tokens.
const (
	TokenSearch = "SEARCH_ORDER"
	TokenNumber = "ORDER_NUMBER"
)

// AppURLProvider returns the public base URL static assets are served under.
type AppURLProvider interface {
	AppURL() string
}

// Handler answers ORDER tokens.
type Handler struct {
	tr     i18n.Translator
	appURL AppURLProvider
	errs   *domerrors.ErrorWrapper
}

// NewHandler creates an order handler.
func NewHandler(tr i18n.Translator, appURL AppURLProvider) *Handler {
	return &Handler{
		tr:     tr,
		appURL: appURL,
		errs:   domerrors.NewWrapper(ModuleName, "status"),
	}
}

// Name returns the module name.
func (h *Handler) Name() string {
	return ModuleName
}

// HandlePayload answers one order token.
func (h *Handler) HandlePayload(_ context.Context, token string, _ user.User) ([]igapi.Message, error) {
	switch token {
	case TokenSearch:
		return []igapi.Message{igutil.NewTextMessage(h.tr.T("order.number"))}, nil
	case TokenNumber:
		base := h.appURL.AppURL()
		if base == "" {
			return nil, h.errs.Wrap(domerrors.ErrAppURLUnknown, "the order status image is not available yet")
		}
		return []igapi.Message{
			igutil.NewImageMessage(base + "/static/order.png"),
			igutil.NewTextMessage(h.tr.T("order.status")),
		}, nil
	}
	return nil, nil
}
