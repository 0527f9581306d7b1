// Package curation implements the outfit suggestion topic.
package curation

import (
	"context"
	"fmt"
	"strings"

	domerrors "github.com/originalcoast/igbot/internal/errors"
	"github.com/originalcoast/igbot/internal/i18n"
	"github.com/originalcoast/igbot/internal/igapi"
	"github.com/originalcoast/igbot/internal/igutil"
	"github.com/originalcoast/igbot/internal/user"
)

// ModuleName identifies this topic in logs and metrics.
const ModuleName = "curation"

// Payload tokens.
const (
	TokenCuration = "CURATION"
	TokenAbout    = "CURATION_ABOUT"
	TokenWork     = "CURATION_WORK"
	TokenDinner   = "CURATION_DINNER"
	TokenParty    = "CURATION_PARTY"

	tokenCareSales = "CARE_SALES"
)

// AppURLProvider returns the public base URL static assets are served under.
type AppURLProvider interface {
	AppURL() string
}

// Handler answers CURATION tokens. COUPON tokens route here and get no reply.
type Handler struct {
	tr      i18n.Translator
	appURL  AppURLProvider
	shopURL string
	errs    *domerrors.ErrorWrapper
}

// NewHandler creates a curation handler.
func NewHandler(tr i18n.Translator, appURL AppURLProvider, shopURL string) *Handler {
	return &Handler{
		tr:      tr,
		appURL:  appURL,
		shopURL: strings.TrimRight(shopURL, "/"),
		errs:    domerrors.NewWrapper(ModuleName, "outfit"),
	}
}

// Name returns the module name.
func (h *Handler) Name() string {
	return ModuleName
}

// HandlePayload answers one curation token.
func (h *Handler) HandlePayload(_ context.Context, token string, u user.User) ([]igapi.Message, error) {
	switch token {
	case TokenCuration:
		return []igapi.Message{
			igutil.NewQuickReply(h.tr.T("curation.prompt", i18n.Args{"userName": u.DisplayName}), []igutil.QuickReplyOption{
				{Title: h.tr.T("curation.work"), Payload: TokenWork},
				{Title: h.tr.T("curation.dinner"), Payload: TokenDinner},
				{Title: h.tr.T("curation.party"), Payload: TokenParty},
			}),
		}, nil
	case TokenAbout:
		return []igapi.Message{igutil.NewTextMessage(h.tr.T("curation.product_information"))}, nil
	case TokenWork, TokenDinner, TokenParty:
		msg, err := h.outfit(token)
		if err != nil {
			return nil, err
		}
		return []igapi.Message{msg}, nil
	}
	return nil, nil
}

// outfit builds the product card for an occasion token such as CURATION_WORK.
func (h *Handler) outfit(token string) (igapi.Message, error) {
	base := h.appURL.AppURL()
	if base == "" {
		return igapi.Message{}, h.errs.Wrap(domerrors.ErrAppURLUnknown, "the product image is not available yet")
	}

	occasion := strings.ToLower(strings.Split(token, "_")[1])
	outfit := "neutral-" + occasion

	return igutil.NewGenericTemplate(
		fmt.Sprintf("%s/static/styles/%s.jpg", base, outfit),
		h.tr.T("curation.title", i18n.Args{"occasion": h.tr.T("curation." + occasion)}),
		h.tr.T("curation.subtitle"),
		[]igapi.Button{
			igutil.NewURLButton(h.tr.T("curation.shop"), fmt.Sprintf("%s/products/%s", h.shopURL, outfit)),
			igutil.NewPostbackButton(h.tr.T("curation.sales"), tokenCareSales),
			igutil.NewPostbackButton(h.tr.T("curation.about"), TokenAbout),
		},
	), nil
}
