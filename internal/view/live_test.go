package view

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seizowatch/internal/models"
	"seizowatch/internal/source"
	"seizowatch/internal/store"
)

const (
	eventsPath     = "seizure_events"
	monitoringPath = "realtime_monitoring"
)

func newLive(mem *source.Memory) *Live {
	return NewLive(
		store.NewEventStore(mem, eventsPath, nil),
		store.NewMonitoringStore(mem, monitoringPath, nil),
	)
}

func TestLive_TracksBothStores(t *testing.T) {
	mem := source.NewMemory()
	l := newLive(mem)

	var hooked [][]models.SeizureEvent
	l.OnEvents = func(events []models.SeizureEvent) { hooked = append(hooked, events) }
	l.Start()
	defer l.Stop()

	_, ready := l.Events()
	assert.False(t, ready)
	_, ready = l.Sample()
	assert.False(t, ready)

	mem.Put(eventsPath, "a", models.RawRecord{"timestamp": "2024-01-01T10:00:00Z"})
	mem.Put(eventsPath, "b", models.RawRecord{"timestamp": "2024-01-02T10:00:00Z"})
	mem.SetRecord(monitoringPath, models.RawRecord{"motion_value": 0.25})

	events, ready := l.Events()
	assert.True(t, ready)
	require.Len(t, events, 2)
	assert.Equal(t, "b", events[0].ID)
	assert.Len(t, hooked, 2)

	sample, ready := l.Sample()
	assert.True(t, ready)
	require.NotNil(t, sample)
	assert.Equal(t, 0.25, sample.MotionValue)
}

func TestLive_ErrorClearedByFreshData(t *testing.T) {
	mem := source.NewMemory()
	l := newLive(mem)
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.Now = func() time.Time { return at }

	var reported []*store.SubscriptionError
	l.OnError = func(err *store.SubscriptionError) { reported = append(reported, err) }
	l.Start()
	defer l.Stop()

	mem.Put(eventsPath, "a", models.RawRecord{})
	mem.Fail(eventsPath, errors.New("permission denied"))

	msg, when := l.LastError(eventsPath)
	assert.Equal(t, "permission denied", msg)
	assert.Equal(t, at, when)
	require.Len(t, reported, 1)
	assert.Equal(t, eventsPath, reported[0].Path)

	events, _ := l.Events()
	assert.Len(t, events, 1, "error keeps cached events")

	mem.SetRecord(monitoringPath, models.RawRecord{})
	msg, _ = l.LastError(eventsPath)
	assert.NotEmpty(t, msg, "data on another path keeps the error")

	mem.Put(eventsPath, "b", models.RawRecord{})
	msg, _ = l.LastError(eventsPath)
	assert.Empty(t, msg)
}

func TestLive_ErrorsArePerPath(t *testing.T) {
	mem := source.NewMemory()
	l := newLive(mem)
	l.Start()
	defer l.Stop()

	mem.Put(eventsPath, "a", models.RawRecord{})
	mem.Fail(eventsPath, errors.New("events down"))
	mem.Fail(monitoringPath, errors.New("monitoring down"))

	msg, _ := l.LastError(eventsPath)
	assert.Equal(t, "events down", msg, "a later failure on another path does not replace it")
	msg, _ = l.LastError(monitoringPath)
	assert.Equal(t, "monitoring down", msg)

	mem.SetRecord(monitoringPath, models.RawRecord{"motion_value": 0.1})
	msg, _ = l.LastError(monitoringPath)
	assert.Empty(t, msg)
	msg, _ = l.LastError(eventsPath)
	assert.Equal(t, "events down", msg, "recovery of the monitoring channel keeps the events failure")
}

func TestLive_StopReleasesSubscriptions(t *testing.T) {
	mem := source.NewMemory()
	l := newLive(mem)
	l.Start()
	assert.Equal(t, 1, mem.Active(eventsPath))
	assert.Equal(t, 1, mem.Active(monitoringPath))

	unsub := l.SubscribeEvents(func([]models.SeizureEvent) {}, func(error) {})
	assert.Equal(t, 1, mem.Active(eventsPath))

	l.Stop()
	assert.Equal(t, 1, mem.Active(eventsPath))
	unsub()
	assert.Zero(t, mem.Active(eventsPath))
	assert.Zero(t, mem.Active(monitoringPath))
}

func TestLive_EventsAreCopies(t *testing.T) {
	mem := source.NewMemory()
	mem.Put(eventsPath, "a", models.RawRecord{})
	l := newLive(mem)
	l.Start()
	defer l.Stop()

	events, _ := l.Events()
	events[0].ID = "changed"
	again, _ := l.Events()
	assert.Equal(t, "a", again[0].ID)
}
