package bot

import (
	"time"

	"github.com/originalcoast/igbot/internal/igapi"
)

// Scheduled is a reply paired with its send delay relative to dispatch.
type Scheduled struct {
	Message igapi.Message
	Delay   time.Duration
}

// Schedule assigns element i the delay i*step unless it carries its own.
func Schedule(msgs []igapi.Message, step time.Duration) []Scheduled {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]Scheduled, len(msgs))
	for i, msg := range msgs {
		delay := time.Duration(i) * step
		if msg.Delay != nil {
			delay = *msg.Delay
		}
		out[i] = Scheduled{Message: msg, Delay: delay}
	}
	return out
}
