// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/originalcoast/igbot/internal/bot"
	"github.com/originalcoast/igbot/internal/buildinfo"
	"github.com/originalcoast/igbot/internal/config"
	"github.com/originalcoast/igbot/internal/delivery"
	"github.com/originalcoast/igbot/internal/i18n"
	"github.com/originalcoast/igbot/internal/igapi"
	"github.com/originalcoast/igbot/internal/logger"
	"github.com/originalcoast/igbot/internal/metrics"
	"github.com/originalcoast/igbot/internal/modules/care"
	"github.com/originalcoast/igbot/internal/modules/curation"
	"github.com/originalcoast/igbot/internal/modules/order"
	"github.com/originalcoast/igbot/internal/modules/survey"
	"github.com/originalcoast/igbot/internal/sentry"
	"github.com/originalcoast/igbot/internal/user"
	"github.com/originalcoast/igbot/internal/webhook"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker/v2"
)

// serviceName tags every log record.
const serviceName = "igbot"

// breakerStater reports the Graph API circuit breaker state.
type breakerStater interface {
	BreakerState() gobreaker.State
}

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg            *config.Config
	logger         *logger.Logger
	metrics        *metrics.Metrics
	registry       *prometheus.Registry
	translator     i18n.Translator
	graph          breakerStater
	platform       PlatformConfigurer
	directory      *user.MemoryDirectory
	scheduler      *delivery.Scheduler
	webhookHandler *webhook.Handler
	appURL         *config.AppURL
	server         *http.Server
	wg             sync.WaitGroup // Tracks background jobs for graceful shutdown
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(_ context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, logger.Options{
		BetterStackToken:    cfg.BetterStackToken,
		BetterStackEndpoint: cfg.BetterStackEndpoint,
	})

	log = log.WithField("service", serviceName)
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}

	// Package-level slog calls pick up user_id and request_id from context.
	slog.SetDefault(log.Logger)

	log.WithField("release", buildinfo.Release()).Info("Initializing application...")
	if cfg.BetterStackToken != "" {
		log.WithField("endpoint", cfg.BetterStackEndpoint).Info("Better Stack logging enabled")
	}
	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}

	if err := sentry.Initialize(sentry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     buildinfo.Release(),
		SampleRate:  cfg.SentrySampleRate,
		Debug:       cfg.LogLevel == "debug",
	}); err != nil {
		log.WithError(err).Warn("Sentry initialization failed")
	} else if sentry.IsEnabled() {
		log.WithField("environment", cfg.SentryEnvironment).Info("Sentry error reporting enabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	bundle, err := i18n.Load()
	if err != nil {
		return nil, fmt.Errorf("locales: %w", err)
	}
	tr := bundle.Localizer(cfg.Locale, log)
	log.WithField("locale", tr.Tag().String()).Info("Locale selected")

	graph := igapi.NewClient(igapi.ClientConfig{
		BaseURL:     cfg.GraphAPIURL(),
		AccessToken: cfg.PageAccessToken,
		PageID:      cfg.PageID,
		Timeout:     cfg.GraphTimeout,
		Metrics:     m,
		Logger:      log,
	})

	appURL := config.NewAppURL(cfg.AppURL)
	directory := user.NewMemoryDirectory()
	resolver := user.NewResolver(directory, graph, m, log)

	scheduler := delivery.New(delivery.Config{
		Sender:  graph,
		Logger:  log,
		Metrics: m,
	})

	topics := bot.NewTopicRegistry(
		curation.NewHandler(tr, appURL, cfg.ShopURL),
		care.NewHandler(tr, nil),
		order.NewHandler(tr, appURL),
		survey.NewHandler(tr),
	)
	processor := bot.NewProcessor(bot.ProcessorConfig{
		Registry:   topics,
		Translator: tr,
		Logger:     log,
		Metrics:    m,
		DelayStep:  cfg.SendDelayStep,
	})

	webhookHandler := webhook.NewHandler(webhook.HandlerConfig{
		AppSecret:   cfg.AppSecret,
		VerifyToken: cfg.VerifyToken,
		Resolver:    resolver,
		Dispatcher:  processor,
		Scheduler:   scheduler,
		Replier:     graph,
		AppURL:      appURL,
		Translator:  tr,
		Metrics:     m,
		Logger:      log,
	})

	app := &Application{
		cfg:            cfg,
		logger:         log,
		metrics:        m,
		registry:       registry,
		translator:     tr,
		graph:          graph,
		platform:       graph,
		directory:      directory,
		scheduler:      scheduler,
		webhookHandler: webhookHandler,
		appURL:         appURL,
	}

	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.router(),
		ReadHeaderTimeout: config.WebhookHTTPRead,
		ReadTimeout:       config.WebhookHTTPRead,
		WriteTimeout:      config.WebhookHTTPWrite,
		IdleTimeout:       config.WebhookHTTPIdle,
	}

	log.Info("Initialization complete")
	return app, nil
}

// router builds the HTTP routes.
func (a *Application) router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if sentry.IsEnabled() {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(securityHeadersMiddleware())
	router.Use(loggingMiddleware(a.logger))

	router.GET("/", a.redirectToShop)
	router.GET("/livez", a.livenessCheck)
	router.HEAD("/livez", a.livenessCheck)
	router.GET("/readyz", a.readinessCheck)
	router.HEAD("/readyz", a.readinessCheck)
	router.GET("/metrics",
		basicAuthMiddleware(metricsCredentials(a.cfg.MetricsAuthEnabled, a.cfg.MetricsUsername, a.cfg.MetricsPassword)),
		gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))
	router.Static("/static", a.cfg.StaticDir)

	router.GET("/webhook", a.webhookHandler.Verify)
	router.POST("/webhook", a.webhookHandler.Handle)

	return router
}

func (a *Application) redirectToShop(c *gin.Context) {
	c.Redirect(http.StatusTemporaryRedirect, a.cfg.ShopURL)
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

// readinessCheck reports not ready while the Graph API breaker is open.
func (a *Application) readinessCheck(c *gin.Context) {
	state := a.graph.BreakerState()
	body := gin.H{
		"graph_api":       state.String(),
		"queued_messages": a.scheduler.Len(),
		"known_users":     a.directory.Len(),
		"app_url_known":   a.appURL.AppURL() != "",
	}

	if state == gobreaker.StateOpen {
		a.logger.Warn("Readiness check failed: graph api circuit open")
		body["status"] = "not ready"
		body["reason"] = "graph api unavailable"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}

	body["status"] = "ready"
	c.JSON(http.StatusOK, body)
}

// Run starts the HTTP server and background jobs and blocks until a
// shutdown signal arrives.
//
// Shutdown sequence:
//  1. Cancel context so background jobs stop
//  2. Wait for background jobs
//  3. Stop the HTTP server, wait for webhook processing, drain the scheduler
//  4. Flush Sentry and the logger
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.startBackgroundJobs(ctx)
	a.startHTTPServer()

	sig := a.waitForShutdownSignal()
	a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")

	cancel()

	a.logger.Info("Waiting for background jobs to finish...")
	start := time.Now()
	a.wg.Wait()
	a.logger.WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("All background jobs completed")

	return a.shutdown()
}

// startBackgroundJobs starts all background goroutines tracked by WaitGroup.
func (a *Application) startBackgroundJobs(ctx context.Context) {
	a.wg.Go(func() {
		a.scheduler.Run(ctx)
	})
	a.wg.Go(func() {
		a.configurePlatform(ctx)
	})
}

// configurePlatform pushes icebreakers, the persistent menu and page
// subscriptions once at startup.
func (a *Application) configurePlatform(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, config.PlatformSetup)
	defer cancel()

	log := a.logger.WithModule("platform")
	log.Info("Configuring platform...")
	setupPlatform(ctx, a.platform, a.translator, a.cfg.ShopURL, log)
}

// startHTTPServer starts the HTTP server in a goroutine.
func (a *Application) startHTTPServer() {
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.WithError(err).Error("HTTP server error")
		}
	}()
}

// waitForShutdownSignal blocks until SIGINT/SIGTERM is received.
func (a *Application) waitForShutdownSignal() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return <-quit
}

// shutdown stops the server and releases resources. It must run after
// background jobs have completed.
func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	a.logger.Info("Waiting for webhook events to complete...")
	if err := a.webhookHandler.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Webhook handler shutdown timeout")
	}

	a.logger.WithField("queued", a.scheduler.Len()).Info("Draining scheduled replies...")
	if err := a.scheduler.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Scheduler drain incomplete")
	}

	if sentry.IsEnabled() && !sentry.Flush(config.SentryFlush) {
		a.logger.Warn("Sentry flush timed out")
	}

	a.logger.Info("Shutdown complete")
	if err := a.logger.Shutdown(shutdownCtx); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "logger shutdown: %v\n", err)
	}
	return nil
}
