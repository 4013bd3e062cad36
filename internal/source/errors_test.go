package source

import (
	"errors"
	"fmt"
	"testing"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"

	"seizowatch/internal/store"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"malformed", fmt.Errorf("%w: collection is a string, not an object", ErrMalformedSnapshot), descMalformed},
		{"connection lost", fmt.Errorf("%w: EOF", ErrConnectionLost), descDisconnected},
		{"brokers down", kafka.NewError(kafka.ErrAllBrokersDown, "1/1 brokers are down", false), descUnreachable},
		{"kafka transport", kafka.NewError(kafka.ErrTransport, "broker:9092/1: Disconnected (after 3ms in state UP)", false), descUnreachable},
		{"unknown topic", kafka.NewError(kafka.ErrUnknownTopicOrPart, "Subscribed topic not available", false), descNoSuchPath},
		{"topic denied", kafka.NewError(kafka.ErrTopicAuthorizationFailed, "Topic authorization failed", false), descDenied},
		{"slow consumer", nats.ErrSlowConsumer, descOverloaded},
		{"nats permissions", nats.ErrPermissionViolation, descDenied},
		{"other", errors.New("socket: too many open files"), descFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := describe(tt.err)
			var described *Error
			if assert.ErrorAs(t, err, &described) {
				assert.Equal(t, tt.want, described.Description())
			}
			assert.ErrorIs(t, err, tt.err)
			assert.Contains(t, err.Error(), tt.err.Error())
		})
	}
	assert.NoError(t, describe(nil))
}

func TestDescribe_KeepsExistingDescription(t *testing.T) {
	first := describe(ErrConnectionLost)
	assert.Same(t, first, describe(first))
	assert.Same(t, first, refused(first))
}

func TestRefused(t *testing.T) {
	err := refused(errors.New("subscribe to p/seizure_events: not authorized"))
	var described *Error
	assert.ErrorAs(t, err, &described)
	assert.Equal(t, descRefused, described.Description())
}

func TestSubscriptionErrorHidesTransportText(t *testing.T) {
	raw := kafka.NewError(kafka.ErrAllBrokersDown, "1/1 brokers are down", false)
	serr := store.NewSubscriptionError("seizure_events", describe(raw))
	assert.Equal(t, "remote store unreachable", serr.Message)
	assert.NotContains(t, serr.Message, "brokers are down")

	var kerr kafka.Error
	assert.ErrorAs(t, serr, &kerr)
	assert.Equal(t, kafka.ErrAllBrokersDown, kerr.Code())
}
