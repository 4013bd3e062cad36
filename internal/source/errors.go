package source

import (
	"errors"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/nats-io/nats.go"
)

const (
	descMalformed    = "received a malformed snapshot"
	descDisconnected = "lost connection to the remote store"
	descUnreachable  = "remote store unreachable"
	descNoSuchPath   = "remote path does not exist"
	descDenied       = "permission denied"
	descTimeout      = "remote store did not respond in time"
	descOverloaded   = "updates arrive faster than they can be processed"
	descRefused      = "remote store refused the subscription"
	descFailed       = "remote store error"
)

// Error is a source failure with a fixed display description. The transport
// error is kept as the cause and only shows up in Error.
type Error struct {
	description string
	err         error
}

func (e *Error) Error() string {
	return e.description + ": " + e.err.Error()
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) Description() string { return e.description }

// describe classifies a failure raised by a transport. Errors that already
// carry a description are returned unchanged.
func describe(err error) error {
	if err == nil {
		return nil
	}
	var described *Error
	if errors.As(err, &described) {
		return err
	}
	return &Error{description: description(err), err: err}
}

func description(err error) string {
	switch {
	case errors.Is(err, ErrMalformedSnapshot):
		return descMalformed
	case errors.Is(err, ErrConnectionLost):
		return descDisconnected
	case errors.Is(err, nats.ErrSlowConsumer):
		return descOverloaded
	case errors.Is(err, nats.ErrPermissionViolation), errors.Is(err, nats.ErrAuthorization):
		return descDenied
	case errors.Is(err, nats.ErrTimeout):
		return descTimeout
	case errors.Is(err, nats.ErrConnectionClosed), errors.Is(err, nats.ErrNoServers):
		return descUnreachable
	}

	var kerr kafka.Error
	if errors.As(err, &kerr) {
		switch kerr.Code() {
		case kafka.ErrTransport, kafka.ErrAllBrokersDown, kafka.ErrResolve:
			return descUnreachable
		case kafka.ErrUnknownTopic, kafka.ErrUnknownTopicOrPart:
			return descNoSuchPath
		case kafka.ErrTopicAuthorizationFailed, kafka.ErrGroupAuthorizationFailed,
			kafka.ErrClusterAuthorizationFailed, kafka.ErrAuthentication:
			return descDenied
		case kafka.ErrTimedOut, kafka.ErrRequestTimedOut:
			return descTimeout
		}
	}
	return descFailed
}

// refused describes a failed subscribe call. Unclassified causes read as a
// refusal rather than a generic failure.
func refused(err error) error {
	var described *Error
	if errors.As(err, &described) {
		return err
	}
	desc := description(err)
	if desc == descFailed {
		desc = descRefused
	}
	return &Error{description: desc, err: err}
}
