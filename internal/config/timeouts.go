// Package config provides centralized timeout constants for the application.
//
// # Platform Constraints
//
// The Instagram webhook expects a quick acknowledgment; replies are sent
// afterwards through the Graph API send endpoint, so processing time is not
// bounded by the HTTP response.
package config

import "time"

// Webhook timeouts
const (
	// WebhookProcessing bounds the asynchronous work for one webhook payload:
	// profile lookups and dispatch. Sends are scheduled separately.
	WebhookProcessing = 30 * time.Second

	// WebhookHTTPRead is the HTTP server read timeout for webhook requests.
	WebhookHTTPRead = 10 * time.Second

	// WebhookHTTPWrite is the HTTP server write timeout.
	WebhookHTTPWrite = 15 * time.Second

	// WebhookHTTPIdle is the HTTP server idle timeout for keep-alive connections.
	WebhookHTTPIdle = 120 * time.Second

	// MaxConcurrentEntries caps how many entries of one payload run at once.
	MaxConcurrentEntries = 8

	// DeliveryWorkers caps concurrent outbound sends across recipients.
	DeliveryWorkers = 16
)

// Graph API timeouts
const (
	// GraphRequest is the timeout for a single Graph API call.
	GraphRequest = 10 * time.Second

	// PlatformSetup bounds the startup job that pushes icebreakers,
	// the persistent menu, and page subscriptions.
	PlatformSetup = 30 * time.Second
)

// Delivery pacing
const (
	// DefaultSendDelayStep spaces the messages of one reply batch so they
	// arrive in order and read like typing.
	DefaultSendDelayStep = 2 * time.Second
)

// Health checks
const (
	// ReadinessCheckTimeout bounds the /readyz handler.
	ReadinessCheckTimeout = 2 * time.Second
)

// Graceful shutdown
const (
	// GracefulShutdown is the timeout for graceful server shutdown.
	// Covers in-flight webhook processing and draining scheduled sends.
	GracefulShutdown = 30 * time.Second

	// SentryFlush bounds the final flush of buffered error reports.
	SentryFlush = 2 * time.Second
)
