package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/originalcoast/igbot/internal/config"
	"github.com/originalcoast/igbot/internal/delivery"
	"github.com/originalcoast/igbot/internal/igapi"
	"github.com/originalcoast/igbot/internal/logger"
	"github.com/originalcoast/igbot/internal/metrics"
	"github.com/originalcoast/igbot/internal/user"
	"github.com/originalcoast/igbot/internal/webhook"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeBreaker struct{ state gobreaker.State }

func (f fakeBreaker) BreakerState() gobreaker.State { return f.state }

// setupTestApp creates an Application with in-memory dependencies and no network.
func setupTestApp(t *testing.T, mutate ...func(*config.Config)) *Application {
	t.Helper()

	staticDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "order.png"), []byte("png"), 0o600))

	cfg := &config.Config{
		ShopURL:         config.DefaultShopURL,
		VerifyToken:     "verify-me",
		AppSecret:       "secret",
		StaticDir:       staticDir,
		MetricsUsername: "prometheus",
	}
	for _, fn := range mutate {
		fn(cfg)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	log := logger.New("error")

	appURL := config.NewAppURL(cfg.AppURL)
	return &Application{
		cfg:       cfg,
		logger:    log,
		metrics:   m,
		registry:  registry,
		graph:     fakeBreaker{state: gobreaker.StateClosed},
		directory: user.NewMemoryDirectory(),
		scheduler: delivery.New(delivery.Config{Logger: log, Metrics: m}),
		webhookHandler: webhook.NewHandler(webhook.HandlerConfig{
			AppSecret:   cfg.AppSecret,
			VerifyToken: cfg.VerifyToken,
			AppURL:      appURL,
			Metrics:     m,
			Logger:      log,
		}),
		appURL: appURL,
	}
}

func serve(t *testing.T, a *Application, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	a.router().ServeHTTP(w, req)
	return w
}

func TestLivenessCheck(t *testing.T) {
	t.Parallel()
	a := setupTestApp(t)

	w := serve(t, a, httptest.NewRequest(http.MethodGet, "/livez", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "alive", body["status"])
}

func TestReadinessCheck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		state      gobreaker.State
		wantStatus int
		wantBody   string
	}{
		{"breaker closed", gobreaker.StateClosed, http.StatusOK, "ready"},
		{"breaker half open", gobreaker.StateHalfOpen, http.StatusOK, "ready"},
		{"breaker open", gobreaker.StateOpen, http.StatusServiceUnavailable, "not ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := setupTestApp(t)
			a.graph = fakeBreaker{state: tt.state}
			a.directory.Create("17841400000000001")

			w := serve(t, a, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantBody, body["status"])
			assert.Equal(t, tt.state.String(), body["graph_api"])
			assert.InDelta(t, 1, body["known_users"], 0)
			assert.InDelta(t, 0, body["queued_messages"], 0)
		})
	}
}

func TestRootRedirectsToShop(t *testing.T) {
	t.Parallel()
	a := setupTestApp(t)

	w := serve(t, a, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, config.DefaultShopURL, w.Header().Get("Location"))
}

func TestStaticAssets(t *testing.T) {
	t.Parallel()
	a := setupTestApp(t)

	w := serve(t, a, httptest.NewRequest(http.MethodGet, "/static/order.png", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "png", w.Body.String())

	w = serve(t, a, httptest.NewRequest(http.MethodGet, "/static/missing.png", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("open when auth disabled", func(t *testing.T) {
		t.Parallel()
		a := setupTestApp(t)
		a.metrics.RecordRoute("welcome")

		w := serve(t, a, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "igbot_")
	})

	t.Run("guarded when auth enabled", func(t *testing.T) {
		t.Parallel()
		a := setupTestApp(t, func(c *config.Config) {
			c.MetricsAuthEnabled = true
			c.MetricsPassword = "s3cret"
		})

		w := serve(t, a, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		req.SetBasicAuth("prometheus", "s3cret")
		w = serve(t, a, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func signedPost(t *testing.T, host, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Host = host
	req.Header.Set("X-Forwarded-Proto", "https")
	req.Header.Set(igapi.SignatureHeader, igapi.Sign("secret", []byte(body)))
	return req
}

func TestSignedWebhookDiscoversAppURL(t *testing.T) {
	t.Parallel()
	a := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=1158201444", nil)
	req.Host = "evil.example"
	w := serve(t, a, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1158201444", w.Body.String())
	assert.Empty(t, a.appURL.AppURL(), "verification requests are unsigned")

	w = serve(t, a, signedPost(t, "shop-bot.example.com", `{"object":"instagram","entry":[]}`))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://shop-bot.example.com", a.appURL.AppURL())
	require.NoError(t, a.webhookHandler.Shutdown(t.Context()))
}

func TestConfiguredAppURLIgnoresRequestHost(t *testing.T) {
	t.Parallel()
	a := setupTestApp(t, func(c *config.Config) { c.AppURL = "https://shop-bot.example.com" })

	req := httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=x", nil)
	req.Host = "evil.example"
	serve(t, a, req)
	serve(t, a, signedPost(t, "evil.example", `{"object":"instagram","entry":[]}`))
	require.NoError(t, a.webhookHandler.Shutdown(t.Context()))

	assert.Equal(t, "https://shop-bot.example.com", a.appURL.AppURL())
}

func TestHealthChecksDoNotChangeAppURL(t *testing.T) {
	t.Parallel()
	a := setupTestApp(t, func(c *config.Config) { c.AppURL = "https://shop-bot.example.com" })

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	req.Host = "localhost:3000"
	serve(t, a, req)

	assert.Equal(t, "https://shop-bot.example.com", a.appURL.AppURL())
}

func TestRequestIDAndSecurityHeaders(t *testing.T) {
	t.Parallel()
	a := setupTestApp(t)

	w := serve(t, a, httptest.NewRequest(http.MethodGet, "/livez", nil))
	_, err := uuid.Parse(w.Header().Get(RequestIDHeader))
	require.NoError(t, err, "generated request id should be a uuid")
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	req.Header.Set("X-Correlation-Id", "req-42")
	w = serve(t, a, req)
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
}
