package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	domerrors "github.com/originalcoast/igbot/internal/errors"
	"github.com/originalcoast/igbot/internal/i18n"
	"github.com/originalcoast/igbot/internal/igapi"
	"github.com/originalcoast/igbot/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPlatform struct {
	mu            sync.Mutex
	iceBreakers   []igapi.IceBreaker
	menus         []igapi.PersistentMenu
	subscribed    bool
	iceBreakerErr error
	subscribeErr  error
}

func (r *recordingPlatform) SetIcebreakers(_ context.Context, ib []igapi.IceBreaker) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.iceBreakers = ib
	return r.iceBreakerErr
}

func (r *recordingPlatform) SetPersistentMenu(_ context.Context, menus []igapi.PersistentMenu) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.menus = menus
	return nil
}

func (r *recordingPlatform) SetPageSubscriptions(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribed = r.subscribeErr == nil
	return r.subscribeErr
}

func testTranslator(t *testing.T) i18n.Translator {
	t.Helper()
	bundle, err := i18n.Load()
	require.NoError(t, err)
	return bundle.Localizer(i18n.DefaultLocale.String(), logger.New("error"))
}

func TestSetupPlatform(t *testing.T) {
	t.Parallel()
	p := &recordingPlatform{}
	tr := testTranslator(t)

	setupPlatform(context.Background(), p, tr, "https://shop.example.com", logger.New("error"))

	payloads := make([]string, 0, len(p.iceBreakers))
	for _, ib := range p.iceBreakers {
		assert.NotEmpty(t, ib.Question)
		payloads = append(payloads, ib.Payload)
	}
	assert.Equal(t, []string{"CARE_SALES", "SEARCH_ORDER", "CARE_HELP", "CURATION"}, payloads)

	require.Len(t, p.menus, 1)
	menu := p.menus[0]
	assert.Equal(t, "default", menu.Locale)
	require.Len(t, menu.CallToActions, 3)
	assert.Equal(t, igapi.ButtonPostback, menu.CallToActions[0].Type)
	assert.Equal(t, "CARE_HELP", menu.CallToActions[0].Payload)
	assert.Equal(t, "CURATION", menu.CallToActions[1].Payload)
	assert.Equal(t, igapi.ButtonWebURL, menu.CallToActions[2].Type)
	assert.Equal(t, "https://shop.example.com", menu.CallToActions[2].URL)

	assert.True(t, p.subscribed)
}

func TestSetupPlatform_FailuresDoNotStopLaterSteps(t *testing.T) {
	t.Parallel()
	p := &recordingPlatform{
		iceBreakerErr: errors.New("upstream returned 500"),
		subscribeErr:  domerrors.NewValidationError("page_id", "required for page subscriptions"),
	}

	setupPlatform(context.Background(), p, testTranslator(t), "https://shop.example.com", logger.New("error"))

	assert.NotEmpty(t, p.iceBreakers)
	assert.Len(t, p.menus, 1)
	assert.False(t, p.subscribed)
}
