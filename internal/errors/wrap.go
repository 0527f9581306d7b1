package errors

import (
	"errors"
	"fmt"
)

// ErrorWrapper tags errors raised by one topic handler step. The user
// message ends up quoted in the chat apology, so it must not carry
// internal details.
type ErrorWrapper struct {
	module string
	step   string
}

// NewWrapper creates a wrapper for errors raised by module during step.
func NewWrapper(module, step string) *ErrorWrapper {
	return &ErrorWrapper{module: module, step: step}
}

// Wrap attaches userMessage to err. A nil err stays nil.
func (w *ErrorWrapper) Wrap(err error, userMessage string) error {
	if err == nil {
		return nil
	}
	return &WrappedError{
		Module:      w.module,
		Operation:   w.step,
		Cause:       err,
		UserMessage: userMessage,
	}
}

// WrappedError pairs the internal cause with a chat-safe message.
type WrappedError struct {
	Module      string // topic handler, e.g. "curation"
	Operation   string // step within it, e.g. "outfit"
	Cause       error
	UserMessage string
}

func (e *WrappedError) Error() string {
	return fmt.Sprintf("%s/%s: %s: %v", e.Module, e.Operation, e.UserMessage, e.Cause)
}

func (e *WrappedError) Unwrap() error { return e.Cause }

// GetUserMessage returns the text quoted in the chat apology: the message
// of the outermost WrappedError in err's chain, else err.Error().
func GetUserMessage(err error) string {
	if err == nil {
		return ""
	}
	var wrapped *WrappedError
	if errors.As(err, &wrapped) {
		return wrapped.UserMessage
	}
	return err.Error()
}
