package store

import (
	"slices"
	"sort"
	"strings"

	"seizowatch/internal/models"
	"seizowatch/internal/normalizer"
)

// EventStore keeps the ordered, canonical view of the seizure event collection.
type EventStore struct {
	path string
	feed *feed[[]models.SeizureEvent]
}

func NewEventStore(src Source, path string, norm *normalizer.Normalizer) *EventStore {
	if norm == nil {
		norm = normalizer.New(false)
	}
	attach := func(onValue func([]models.SeizureEvent), onError func(error)) (func(), error) {
		return src.SubscribeCollection(path,
			func(snap models.CollectionSnapshot) { onValue(EventsFromSnapshot(snap, norm)) },
			onError,
		)
	}
	return &EventStore{
		path: path,
		feed: newFeed(path, attach, slices.Clone[[]models.SeizureEvent]),
	}
}

func (s *EventStore) Path() string { return s.path }

// Subscribe registers a consumer. onData receives a private copy of the full
// ordered sequence on every change; onError receives *SubscriptionError values
// and never implies the previously delivered events are gone.
func (s *EventStore) Subscribe(onData func([]models.SeizureEvent), onError func(error)) (unsubscribe func()) {
	return s.feed.subscribe(onData, onError)
}

// Subscribers returns the number of registered local subscribers.
func (s *EventStore) Subscribers() int {
	return s.feed.subscriberCount()
}

// EventsFromSnapshot normalizes every member and orders the result most recent
// first. Events sharing an instant, including unparseable timestamps, are
// ordered by key.
func EventsFromSnapshot(snap models.CollectionSnapshot, norm *normalizer.Normalizer) []models.SeizureEvent {
	if !snap.Exists || len(snap.Value) == 0 {
		return []models.SeizureEvent{}
	}

	keys := make([]string, 0, len(snap.Value))
	for k := range snap.Value {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	events := make([]models.SeizureEvent, 0, len(keys))
	for _, k := range keys {
		events = append(events, norm.Event(k, snap.Value[k]))
	}

	slices.SortStableFunc(events, func(a, b models.SeizureEvent) int {
		if c := b.Time.Compare(a.Time); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return events
}
