// Package source holds the transports that feed the live stores: MQTT and NATS
// subjects carrying full JSON snapshots, a Kafka compacted topic materialized
// into snapshots, and an in-process Memory store.
package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"seizowatch/internal/models"
)

var ErrMalformedSnapshot = errors.New("malformed snapshot payload")

// DecodeCollection reads a full collection snapshot. Empty bytes, null and an
// empty object all mean the collection does not exist. Members that are not
// JSON objects become empty records.
func DecodeCollection(payload []byte) (models.CollectionSnapshot, error) {
	v, err := decodeValue(payload)
	if err != nil {
		return models.CollectionSnapshot{}, err
	}
	if v == nil {
		return models.CollectionSnapshot{}, nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return models.CollectionSnapshot{}, fmt.Errorf("%w: collection is a %T, not an object", ErrMalformedSnapshot, v)
	}
	if len(obj) == 0 {
		return models.CollectionSnapshot{}, nil
	}

	members := make(map[string]models.RawRecord, len(obj))
	for key, member := range obj {
		rec, _ := member.(map[string]any)
		members[key] = rec
	}
	return models.CollectionSnapshot{Exists: true, Value: members}, nil
}

// DecodeRecord reads a single-record snapshot.
func DecodeRecord(payload []byte) (models.RecordSnapshot, error) {
	v, err := decodeValue(payload)
	if err != nil {
		return models.RecordSnapshot{}, err
	}
	if v == nil {
		return models.RecordSnapshot{}, nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return models.RecordSnapshot{}, fmt.Errorf("%w: record is a %T, not an object", ErrMalformedSnapshot, v)
	}
	return models.RecordSnapshot{Exists: true, Value: obj}, nil
}

// DecodeMember reads one collection member as published on a keyed topic.
// A nil payload is a deletion.
func DecodeMember(payload []byte) (rec models.RawRecord, deleted bool, err error) {
	v, err := decodeValue(payload)
	if err != nil {
		return nil, false, err
	}
	if v == nil {
		return nil, true, nil
	}
	obj, _ := v.(map[string]any)
	return obj, false, nil
}

func decodeValue(payload []byte) (any, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	return v, nil
}
