package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Core (Required)
	EnvPageAccessToken = "PAGE_ACCESS_TOKEN"
	EnvAppSecret       = "APP_SECRET"
	EnvVerifyToken     = "VERIFY_TOKEN"

	// Meta app
	EnvPageID = "PAGE_ID"
	EnvAppID  = "APP_ID"

	// Shop
	EnvShopURL = "SHOP_URL"
	EnvAppURL  = "APP_URL"
	EnvLocale  = "LOCALE"

	// Graph API
	EnvGraphAPIDomain  = "GRAPH_API_DOMAIN"
	EnvGraphAPIVersion = "GRAPH_API_VERSION"
	EnvGraphTimeout    = "GRAPH_TIMEOUT"

	// Delivery
	EnvSendDelayStep = "SEND_DELAY_STEP"

	// Server
	EnvPort            = "PORT"
	EnvLogLevel        = "LOG_LEVEL"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
	EnvStaticDir       = "STATIC_DIR"

	// Sentry Feature
	EnvSentryDSN         = "SENTRY_DSN"
	EnvSentryEnvironment = "SENTRY_ENVIRONMENT"
	EnvSentrySampleRate  = "SENTRY_SAMPLE_RATE"

	// Better Stack Feature
	EnvBetterStackToken    = "BETTERSTACK_TOKEN"
	EnvBetterStackEndpoint = "BETTERSTACK_ENDPOINT"

	// Metrics Auth Feature
	EnvMetricsAuthEnabled = "METRICS_AUTH_ENABLED"
	EnvMetricsUsername    = "METRICS_USERNAME"
	EnvMetricsPassword    = "METRICS_PASSWORD"
)

// Defaults
const (
	DefaultShopURL         = "https://www.originalcoastclothing.com"
	DefaultLocale          = "en_US"
	DefaultGraphAPIDomain  = "graph.facebook.com"
	DefaultGraphAPIVersion = "v13.0"
)
