package app

import (
	"context"
	"errors"
	"time"

	"github.com/originalcoast/igbot/internal/bot"
	domerrors "github.com/originalcoast/igbot/internal/errors"
	"github.com/originalcoast/igbot/internal/i18n"
	"github.com/originalcoast/igbot/internal/igapi"
	"github.com/originalcoast/igbot/internal/igutil"
	"github.com/originalcoast/igbot/internal/logger"
	"github.com/originalcoast/igbot/internal/modules/care"
	"github.com/originalcoast/igbot/internal/modules/order"
)

// PlatformConfigurer pushes conversation settings to the platform.
type PlatformConfigurer interface {
	SetIcebreakers(ctx context.Context, iceBreakers []igapi.IceBreaker) error
	SetPersistentMenu(ctx context.Context, menus []igapi.PersistentMenu) error
	SetPageSubscriptions(ctx context.Context) error
}

// menuLocale is the persistent menu shown for every user locale.
const menuLocale = "default"

func iceBreakers(tr i18n.Translator) []igapi.IceBreaker {
	return []igapi.IceBreaker{
		{Question: tr.T("menu.support"), Payload: care.TokenSales},
		{Question: tr.T("menu.order"), Payload: order.TokenSearch},
		{Question: tr.T("menu.help"), Payload: bot.TokenCareHelp},
		{Question: tr.T("menu.suggestion"), Payload: bot.TokenCuration},
	}
}

func persistentMenu(tr i18n.Translator, shopURL string) []igapi.PersistentMenu {
	return []igapi.PersistentMenu{{
		Locale: menuLocale,
		CallToActions: []igapi.Button{
			igutil.NewPostbackButton(tr.T("menu.talk_to_agent"), bot.TokenCareHelp),
			igutil.NewPostbackButton(tr.T("menu.outfit_suggestions"), bot.TokenCuration),
			igutil.NewURLButton(tr.T("menu.shop_now"), shopURL),
		},
	}}
}

// setupPlatform runs each setup call once. Failures are logged and the
// remaining calls still run.
func setupPlatform(ctx context.Context, p PlatformConfigurer, tr i18n.Translator, shopURL string, log *logger.Logger) {
	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"icebreakers", func(ctx context.Context) error { return p.SetIcebreakers(ctx, iceBreakers(tr)) }},
		{"persistent_menu", func(ctx context.Context) error { return p.SetPersistentMenu(ctx, persistentMenu(tr, shopURL)) }},
		{"page_subscriptions", p.SetPageSubscriptions},
	}

	for _, step := range steps {
		start := time.Now()
		err := step.run(ctx)
		entry := log.WithField("step", step.name).WithField("duration_ms", time.Since(start).Milliseconds())

		var verr *domerrors.ValidationError
		switch {
		case err == nil:
			entry.Info("Platform setup step completed")
		case errors.As(err, &verr):
			entry.WithError(err).Warn("Platform setup step skipped")
		default:
			entry.WithError(err).Error("Platform setup step failed")
		}
	}
}
