// Package config provides application configuration management.
// It loads settings from environment variables (optionally seeded from a
// .env file) and provides defaults for the server, the Graph API client,
// delivery pacing, and observability integrations.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Instagram / Meta app credentials
	PageID          string
	AppID           string
	PageAccessToken string
	AppSecret       string
	VerifyToken     string

	// Shop
	ShopURL string
	AppURL  string // Public base URL; discovered from incoming requests when empty
	Locale  string

	// Graph API
	GraphAPIDomain  string
	GraphAPIVersion string
	GraphTimeout    time.Duration

	// Delivery
	SendDelayStep time.Duration // Spacing between consecutive messages of one reply batch

	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration
	StaticDir       string

	// Metrics Authentication
	MetricsAuthEnabled bool
	MetricsUsername    string
	MetricsPassword    string

	// Sentry
	SentryDSN         string
	SentryEnvironment string
	SentrySampleRate  float64

	// Better Stack log shipping
	BetterStackToken    string
	BetterStackEndpoint string
}

// Load reads configuration from environment variables
// It attempts to load .env file first, then reads from env vars
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		PageID:          getEnv(EnvPageID, ""),
		AppID:           getEnv(EnvAppID, ""),
		PageAccessToken: getEnv(EnvPageAccessToken, ""),
		AppSecret:       getEnv(EnvAppSecret, ""),
		VerifyToken:     getEnv(EnvVerifyToken, ""),

		ShopURL: strings.TrimSuffix(getEnv(EnvShopURL, DefaultShopURL), "/"),
		AppURL:  strings.TrimSuffix(getEnv(EnvAppURL, ""), "/"),
		Locale:  getEnv(EnvLocale, DefaultLocale),

		GraphAPIDomain:  getEnv(EnvGraphAPIDomain, DefaultGraphAPIDomain),
		GraphAPIVersion: getEnv(EnvGraphAPIVersion, DefaultGraphAPIVersion),
		GraphTimeout:    getDurationEnv(EnvGraphTimeout, GraphRequest),

		SendDelayStep: getDurationEnv(EnvSendDelayStep, DefaultSendDelayStep),

		Port:            getEnv(EnvPort, "3000"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, GracefulShutdown),
		StaticDir:       getEnv(EnvStaticDir, "./public"),

		MetricsAuthEnabled: getBoolEnv(EnvMetricsAuthEnabled, false),
		MetricsUsername:    getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword:    getEnv(EnvMetricsPassword, ""),

		SentryDSN:         getEnv(EnvSentryDSN, ""),
		SentryEnvironment: getEnv(EnvSentryEnvironment, "production"),
		SentrySampleRate:  getFloatEnv(EnvSentrySampleRate, 1.0),

		BetterStackToken:    getEnv(EnvBetterStackToken, ""),
		BetterStackEndpoint: getEnv(EnvBetterStackEndpoint, ""),
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	var errs []error

	if c.PageAccessToken == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvPageAccessToken))
	}
	if c.AppSecret == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvAppSecret))
	}
	if c.VerifyToken == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvVerifyToken))
	}
	if c.Port == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvPort))
	}
	if _, err := url.ParseRequestURI(c.ShopURL); err != nil {
		errs = append(errs, fmt.Errorf("%s must be an absolute URL: %w", EnvShopURL, err))
	}
	if c.AppURL != "" {
		if _, err := url.ParseRequestURI(c.AppURL); err != nil {
			errs = append(errs, fmt.Errorf("%s must be an absolute URL: %w", EnvAppURL, err))
		}
	}
	if c.GraphAPIVersion == "" || !strings.HasPrefix(c.GraphAPIVersion, "v") {
		errs = append(errs, fmt.Errorf("%s must look like v13.0, got %q", EnvGraphAPIVersion, c.GraphAPIVersion))
	}
	if c.GraphTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvGraphTimeout, c.GraphTimeout))
	}
	if c.SendDelayStep < 0 {
		errs = append(errs, fmt.Errorf("%s cannot be negative, got %v", EnvSendDelayStep, c.SendDelayStep))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvShutdownTimeout, c.ShutdownTimeout))
	}
	if c.MetricsAuthEnabled && c.MetricsPassword == "" {
		errs = append(errs, fmt.Errorf("%s is required when %s is true", EnvMetricsPassword, EnvMetricsAuthEnabled))
	}
	if c.SentrySampleRate < 0 || c.SentrySampleRate > 1 {
		errs = append(errs, fmt.Errorf("%s must be within [0, 1], got %v", EnvSentrySampleRate, c.SentrySampleRate))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Warnings lists optional settings whose absence disables a feature.
// Startup continues without them.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.PageID == "" {
		warnings = append(warnings, EnvPageID+" is not set; page subscriptions will be skipped")
	}
	if c.AppID == "" {
		warnings = append(warnings, EnvAppID+" is not set")
	}
	if c.AppURL == "" {
		warnings = append(warnings, EnvAppURL+" is not set; it will be discovered from the first request")
	}
	return warnings
}

// GraphAPIURL returns the versioned Graph API base URL.
func (c *Config) GraphAPIURL() string {
	return fmt.Sprintf("https://%s/%s", c.GraphAPIDomain, c.GraphAPIVersion)
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv retrieves boolean environment variable with fallback to default value
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
