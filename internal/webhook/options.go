package webhook

import "time"

// HandlerOption is a functional option for configuring Handler.
type HandlerOption func(*Handler)

// WithProcessingTimeout bounds the asynchronous work for one webhook payload.
func WithProcessingTimeout(timeout time.Duration) HandlerOption {
	return func(h *Handler) {
		if timeout > 0 {
			h.processingTimeout = timeout
		}
	}
}

// WithMaxConcurrentEntries caps how many entries of one payload run at once.
func WithMaxConcurrentEntries(n int) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxConcurrentEntries = n
		}
	}
}
