// Package view holds the process-wide latest state of both live stores for
// request handlers, the websocket stream and housekeeping.
package view

import (
	"errors"
	"log"
	"slices"
	"sync"
	"time"

	"seizowatch/internal/models"
	"seizowatch/internal/store"
)

type Live struct {
	events     *store.EventStore
	monitoring *store.MonitoringStore

	mu          sync.RWMutex
	evs         []models.SeizureEvent
	eventsReady bool
	sample      *models.MonitoringSample
	sampleReady bool
	errs        map[string]subscriptionState
	unsubs      []func()

	// Hooks run on the store callback goroutine and must not block.
	OnEvents func(events []models.SeizureEvent)
	OnSample func(sample *models.MonitoringSample)
	OnError  func(err *store.SubscriptionError)
	Now      func() time.Time
}

// subscriptionState is the outstanding failure of one path.
type subscriptionState struct {
	message string
	at      time.Time
}

func NewLive(events *store.EventStore, monitoring *store.MonitoringStore) *Live {
	return &Live{
		events:     events,
		monitoring: monitoring,
		errs:       make(map[string]subscriptionState),
		Now:        time.Now,
	}
}

// Start subscribes to both stores. Hooks must be set before calling it.
func (l *Live) Start() {
	unsubEvents := l.events.Subscribe(l.handleEvents, l.handleError)
	unsubSample := l.monitoring.Subscribe(l.handleSample, l.handleError)
	l.mu.Lock()
	l.unsubs = append(l.unsubs, unsubEvents, unsubSample)
	l.mu.Unlock()
}

func (l *Live) Stop() {
	l.mu.Lock()
	unsubs := l.unsubs
	l.unsubs = nil
	l.mu.Unlock()
	for _, unsub := range unsubs {
		unsub()
	}
}

func (l *Live) handleEvents(events []models.SeizureEvent) {
	l.mu.Lock()
	l.evs = events
	l.eventsReady = true
	delete(l.errs, l.events.Path())
	l.mu.Unlock()

	if l.OnEvents != nil {
		l.OnEvents(events)
	}
}

func (l *Live) handleSample(sample *models.MonitoringSample) {
	l.mu.Lock()
	l.sample = sample
	l.sampleReady = true
	delete(l.errs, l.monitoring.Path())
	l.mu.Unlock()

	if l.OnSample != nil {
		l.OnSample(sample)
	}
}

func (l *Live) handleError(err error) {
	var se *store.SubscriptionError
	if !errors.As(err, &se) {
		se = store.NewSubscriptionError("", err)
	}
	log.Printf("Live view: %v", se)

	l.mu.Lock()
	l.errs[se.Path] = subscriptionState{message: se.Message, at: l.Now()}
	l.mu.Unlock()

	if l.OnError != nil {
		l.OnError(se)
	}
}

// Events returns a copy of the latest ordered events; ready is false until the
// first snapshot arrived.
func (l *Live) Events() (events []models.SeizureEvent, ready bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.evs), l.eventsReady
}

// Sample returns the latest live reading, nil when the channel is empty.
func (l *Live) Sample() (sample *models.MonitoringSample, ready bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.sample == nil {
		return nil, l.sampleReady
	}
	s := *l.sample
	return &s, l.sampleReady
}

// LastError returns the most recent failure of the subscription on path that
// has not been superseded by fresh data on that path.
func (l *Live) LastError(path string) (message string, at time.Time) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	st := l.errs[path]
	return st.message, st.at
}

func (l *Live) EventsPath() string     { return l.events.Path() }
func (l *Live) MonitoringPath() string { return l.monitoring.Path() }

// SubscribeEvents exposes the underlying stores to per-connection consumers such as
// websocket clients.
func (l *Live) SubscribeEvents(onData func([]models.SeizureEvent), onError func(error)) func() {
	return l.events.Subscribe(onData, onError)
}

func (l *Live) SubscribeMonitoring(onData func(*models.MonitoringSample), onError func(error)) func() {
	return l.monitoring.Subscribe(onData, onError)
}
