package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/originalcoast/igbot/internal/bot"
	"github.com/originalcoast/igbot/internal/config"
	domerrors "github.com/originalcoast/igbot/internal/errors"
	"github.com/originalcoast/igbot/internal/i18n"
	"github.com/originalcoast/igbot/internal/igapi"
	"github.com/originalcoast/igbot/internal/metrics"
	"github.com/originalcoast/igbot/internal/modules/care"
	"github.com/originalcoast/igbot/internal/modules/curation"
	"github.com/originalcoast/igbot/internal/modules/order"
	"github.com/originalcoast/igbot/internal/modules/survey"
	"github.com/originalcoast/igbot/internal/user"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret      = "app-secret"
	testVerifyToken = "verify-me"
)

type staticURL string

func (s staticURL) AppURL() string { return string(s) }

type fakeProfiles struct{ name string }

func (f fakeProfiles) GetUserProfile(context.Context, string) (*igapi.Profile, error) {
	return &igapi.Profile{Name: f.name}, nil
}

type scheduled struct {
	recipient string
	batch     []bot.Scheduled
}

type fakeScheduler struct {
	mu    sync.Mutex
	calls []scheduled
}

func (f *fakeScheduler) Schedule(recipientID string, batch []bot.Scheduled) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, scheduled{recipient: recipientID, batch: batch})
}

func (f *fakeScheduler) snapshot() []scheduled {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]scheduled(nil), f.calls...)
}

type privateReply struct {
	commentID string
	msg       igapi.Message
}

type fakeReplier struct {
	mu      sync.Mutex
	replies []privateReply
}

func (f *fakeReplier) SendPrivateReply(_ context.Context, commentID string, msg igapi.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, privateReply{commentID: commentID, msg: msg})
	return nil
}

type fixture struct {
	handler   *Handler
	router    *gin.Engine
	scheduler *fakeScheduler
	replier   *fakeReplier
	directory *user.MemoryDirectory
	appURL    *config.AppURL
	metrics   *metrics.Metrics
	tr        i18n.Translator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	b, err := i18n.Load()
	require.NoError(t, err)
	tr := b.Localizer("en_US", nil)
	m := metrics.New(prometheus.NewRegistry())

	appURL := staticURL("https://bot.example.com")
	registry := bot.NewTopicRegistry(
		curation.NewHandler(tr, appURL, "https://shop.example.com"),
		care.NewHandler(tr, func(int) int { return 0 }),
		order.NewHandler(tr, appURL),
		survey.NewHandler(tr),
	)
	dir := user.NewMemoryDirectory()
	f := &fixture{
		scheduler: &fakeScheduler{},
		replier:   &fakeReplier{},
		directory: dir,
		appURL:    config.NewAppURL(""),
		metrics:   m,
		tr:        tr,
	}
	f.handler = NewHandler(HandlerConfig{
		AppSecret:   testSecret,
		VerifyToken: testVerifyToken,
		Resolver:    user.NewResolver(dir, fakeProfiles{name: "Ana"}, m, nil),
		Dispatcher:  bot.NewProcessor(bot.ProcessorConfig{Registry: registry, Translator: tr, Metrics: m}),
		Scheduler:   f.scheduler,
		Replier:     f.replier,
		AppURL:      f.appURL,
		Translator:  tr,
		Metrics:     m,
	}, WithMaxConcurrentEntries(2), WithProcessingTimeout(5*time.Second))

	f.router = gin.New()
	f.router.GET("/webhook", f.handler.Verify)
	f.router.POST("/webhook", f.handler.Handle)
	return f
}

func (f *fixture) post(t *testing.T, body string, sign bool) *httptest.ResponseRecorder {
	t.Helper()
	return f.postFrom(t, "example.com", body, sign)
}

func (f *fixture) postFrom(t *testing.T, host, body string, sign bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Host = host
	req.Header.Set("X-Forwarded-Proto", "https")
	req.Header.Set("Content-Type", "application/json")
	if sign {
		req.Header.Set(igapi.SignatureHeader, igapi.Sign(testSecret, []byte(body)))
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.handler.Shutdown(ctx))
}

func TestVerify(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantBody   string
	}{
		{"valid", "hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=42", http.StatusOK, "42"},
		{"wrong token", "hub.mode=subscribe&hub.verify_token=nope&hub.challenge=42", http.StatusForbidden, ""},
		{"wrong mode", "hub.mode=unsubscribe&hub.verify_token=verify-me&hub.challenge=42", http.StatusForbidden, ""},
		{"missing params", "", http.StatusForbidden, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/webhook?"+tt.query, nil))
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantBody, w.Body.String())
		})
	}
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.WebhookRequestsTotal.WithLabelValues("GET", "verified")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(f.metrics.WebhookRequestsTotal.WithLabelValues("GET", "forbidden")), 0)
}

func TestHandle_SignatureRequired(t *testing.T) {
	f := newFixture(t)
	body := `{"object":"instagram","entry":[{"id":"1","messaging":[{"sender":{"id":"u1"},"message":{"mid":"m1","text":"hi"}}]}]}`

	w := f.post(t, body, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set(igapi.SignatureHeader, "sha1=deadbeef")
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.wait(t)
	assert.Empty(t, f.scheduler.snapshot(), "nothing from an unsigned body is processed")
	assert.InDelta(t, 2, testutil.ToFloat64(f.metrics.WebhookRequestsTotal.WithLabelValues("POST", "invalid_signature")), 0)
}

func TestHandle_MalformedBody(t *testing.T) {
	f := newFixture(t)
	w := f.post(t, `{"object":`, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandle_Objects(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		object     string
		wantStatus int
		wantBody   string
	}{
		{"instagram", http.StatusOK, EventReceived},
		{"page", http.StatusNotFound, ""},
		{"user", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.object, func(t *testing.T) {
			w := f.post(t, `{"object":"`+tt.object+`","entry":[]}`, true)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantBody, w.Body.String())
		})
	}
	f.wait(t)
}

func TestCheckObject(t *testing.T) {
	require.NoError(t, checkObject(igapi.ObjectInstagram))
	for _, object := range []string{igapi.ObjectPage, "user", ""} {
		assert.ErrorIs(t, checkObject(object), domerrors.ErrUnsupportedObject, object)
	}
}

func TestHandle_DiscoversAppURLFromSignedRequests(t *testing.T) {
	f := newFixture(t)
	body := `{"object":"instagram","entry":[]}`

	f.postFrom(t, "evil.example", body, false)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=1", nil))
	assert.Empty(t, f.appURL.AppURL(), "unsigned or verification requests must not set the app url")

	w = f.postFrom(t, "shop-bot.example.com", body, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://shop-bot.example.com", f.appURL.AppURL())

	f.postFrom(t, "evil.example", `{"object":"page","entry":[]}`, true)
	assert.Equal(t, "https://shop-bot.example.com", f.appURL.AppURL(), "rejected objects do not move the app url")
	f.wait(t)
}

func TestHandle_ConfiguredAppURLIsNotReplaced(t *testing.T) {
	f := newFixture(t)
	f.handler.appURL = config.NewAppURL("https://shop-bot.example.com")

	f.postFrom(t, "evil.example", `{"object":"instagram","entry":[]}`, true)
	f.wait(t)

	assert.Equal(t, "https://shop-bot.example.com", f.handler.appURL.AppURL())
}

func TestHandle_TextFromNewUser(t *testing.T) {
	f := newFixture(t)
	body := `{"object":"instagram","entry":[{"id":"1","time":1,"messaging":[
		{"sender":{"id":"u1"},"recipient":{"id":"biz"},"timestamp":1,"message":{"mid":"m1","text":"hi"}}
	]}]}`

	w := f.post(t, body, true)
	require.Equal(t, http.StatusOK, w.Code)
	f.wait(t)

	calls := f.scheduler.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "u1", calls[0].recipient)
	require.Len(t, calls[0].batch, 1)
	assert.Contains(t, calls[0].batch[0].Message.Text, "Ana")

	u, ok := f.directory.Get("u1")
	require.True(t, ok)
	assert.Equal(t, "Ana", u.DisplayName)
}

func TestHandle_EchoIsSkipped(t *testing.T) {
	f := newFixture(t)
	body := `{"object":"instagram","entry":[{"id":"1","messaging":[
		{"sender":{"id":"biz"},"recipient":{"id":"u1"},"message":{"mid":"m1","text":"hello","is_echo":true}}
	]}]}`

	f.post(t, body, true)
	f.wait(t)

	assert.Empty(t, f.scheduler.snapshot())
	assert.Zero(t, f.directory.Len(), "echo senders are not added to the directory")
}

func TestHandle_EventsInEntryStayOrdered(t *testing.T) {
	f := newFixture(t)
	body := `{"object":"instagram","entry":[
		{"id":"1","messaging":[
			{"sender":{"id":"u1"},"postback":{"mid":"p1","payload":"SEARCH_ORDER"}},
			{"sender":{"id":"u1"},"message":{"mid":"m2","text":"12345"}},
			{"sender":{"id":"u1"},"message":{"mid":"m3","quick_reply":{"payload":"CSAT_GOOD"},"text":"Great"}}
		]},
		{"id":"2","messaging":[
			{"sender":{"id":"u2"},"referral":{"ref":"care_help","source":"SHORTLINK","type":"OPEN_THREAD"}}
		]}
	]}`

	f.post(t, body, true)
	f.wait(t)

	var u1 []scheduled
	var u2 []scheduled
	for _, c := range f.scheduler.snapshot() {
		switch c.recipient {
		case "u1":
			u1 = append(u1, c)
		case "u2":
			u2 = append(u2, c)
		}
	}

	require.Len(t, u1, 3)
	assert.Equal(t, f.tr.T("order.number"), u1[0].batch[0].Message.Text)
	assert.NotNil(t, u1[1].batch[0].Message.Attachment, "order number answers with the status image")
	assert.Equal(t, f.tr.T("survey.feedback.good"), u1[2].batch[0].Message.Text)

	require.Len(t, u2, 1)
	assert.Len(t, u2[0].batch[0].Message.QuickReplies, 3)
}

func TestHandle_CommentGetsPrivateReply(t *testing.T) {
	f := newFixture(t)
	body := `{"object":"instagram","entry":[{"id":"1","time":1,"changes":[
		{"field":"comments","value":{"id":"c-17","text":"love it","from":{"id":"u9"}}}
	]}]}`

	f.post(t, body, true)
	f.wait(t)

	f.replier.mu.Lock()
	defer f.replier.mu.Unlock()
	require.Len(t, f.replier.replies, 1)
	assert.Equal(t, "c-17", f.replier.replies[0].commentID)
	assert.Equal(t, f.tr.T("private_reply.post"), f.replier.replies[0].msg.Text)
	assert.Empty(t, f.scheduler.snapshot())
}

func TestHandle_EntryWithoutMessaging(t *testing.T) {
	f := newFixture(t)
	f.post(t, `{"object":"instagram","entry":[{"id":"1","time":1}]}`, true)
	f.wait(t)
	assert.Empty(t, f.scheduler.snapshot())
}

func TestProcess_ManyEntriesConcurrently(t *testing.T) {
	f := newFixture(t)

	env := &igapi.Envelope{Object: igapi.ObjectInstagram}
	for i := range 20 {
		id := "u" + string(rune('a'+i))
		env.Entry = append(env.Entry, igapi.Entry{ID: id, Messaging: []igapi.Messaging{
			{Sender: igapi.Account{ID: id}, Postback: &igapi.Postback{Payload: "GET_STARTED"}},
		}})
	}

	f.handler.Process(context.Background(), env)

	assert.Len(t, f.scheduler.snapshot(), 20)
	assert.Equal(t, 20, f.directory.Len())
}

func TestShutdown_ContextCanceled(t *testing.T) {
	f := newFixture(t)
	f.handler.wg.Add(1)
	defer f.handler.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, f.handler.Shutdown(ctx), context.Canceled)
}
