// Package bot classifies inbound Instagram events and routes their payload
// tokens to topic handlers (care, curation, order, survey).
package bot

import (
	"context"

	"github.com/originalcoast/igbot/internal/igapi"
	"github.com/originalcoast/igbot/internal/user"
)

// Handler is implemented by every topic module.
type Handler interface {
	// Name is the topic label used in logs and metrics.
	Name() string

	// HandlePayload maps a payload token to reply messages.
	// A nil slice with a nil error means the token is not one the handler
	// knows, and no reply is sent.
	HandlePayload(ctx context.Context, token string, u user.User) ([]igapi.Message, error)
}
