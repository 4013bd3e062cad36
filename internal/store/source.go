package store

import (
	"errors"
	"fmt"

	"seizowatch/internal/models"
)

// Source is a push-capable remote store. Each call opens one remote
// subscription; the returned cancel func releases it. Implementations may
// invoke callbacks from any goroutine, including synchronously from within the
// subscribe call itself.
type Source interface {
	SubscribeCollection(path string, onSnapshot func(models.CollectionSnapshot), onError func(error)) (cancel func(), err error)
	SubscribeRecord(path string, onSnapshot func(models.RecordSnapshot), onError func(error)) (cancel func(), err error)
}

// SubscriptionError reports that a remote stream failed or was refused.
// Message is always a plain description suitable for display.
type SubscriptionError struct {
	Path    string
	Message string
	cause   error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("subscription to %q failed: %s", e.Path, e.Message)
}

func (e *SubscriptionError) Unwrap() error {
	return e.cause
}

// Describer is implemented by source errors that carry a display text of
// their own. The transport detail stays in the wrapped error.
type Describer interface {
	Description() string
}

// NewSubscriptionError wraps a transport failure. Callers that already hold a
// *SubscriptionError get it back unchanged. The message is the error's
// description when it has one and its text otherwise.
func NewSubscriptionError(path string, err error) *SubscriptionError {
	if se, ok := err.(*SubscriptionError); ok {
		return se
	}
	msg := "unknown error"
	var d Describer
	switch {
	case errors.As(err, &d):
		msg = d.Description()
	case err != nil:
		msg = err.Error()
	}
	return &SubscriptionError{Path: path, Message: msg, cause: err}
}
