package report

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seizowatch/internal/analytics"
	"seizowatch/internal/models"
	"seizowatch/internal/normalizer"
)

var now = time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)

func sampleEvents() []models.SeizureEvent {
	return []models.SeizureEvent{
		normalizer.NormalizeEvent("b", models.RawRecord{
			"timestamp": "2024-01-02T11:58:00Z", "duration_seconds": 12.0, "dominant_frequency": 4.5,
			"avg_motion": 0.31, "max_motion": 0.88, "dl_verified": true, "onnx_score": 0.93,
		}),
		normalizer.NormalizeEvent("a", models.RawRecord{
			"timestamp": "2024-01-01T10:00:00Z", "duration_seconds": 8.0, "dominant_frequency": 3.5,
		}),
		normalizer.NormalizeEvent("c", models.RawRecord{"timestamp": "yesterday-ish"}),
	}
}

func TestAnalyticsReport(t *testing.T) {
	out := AnalyticsReport(analytics.Summarize(sampleEvents(), now), now)
	assert.Contains(t, out, "Generated: 2024-01-02 12:00:00")
	assert.Contains(t, out, "Total Events:            3")
	assert.Contains(t, out, "DL Verified:             1")
	assert.Contains(t, out, "2024-01-01   | Mon   |      1")
	assert.Contains(t, out, "2024-01-02   | Tue   |      1")
	assert.Equal(t, analytics.BreakdownDays, strings.Count(out, " | ")/2-1)
}

func TestAnalyticsReport_NoData(t *testing.T) {
	out := AnalyticsReport(nil, now)
	assert.Contains(t, out, "No seizure events recorded.")
	assert.NotContains(t, out, "Key Metrics")
}

func TestEventsReport(t *testing.T) {
	out := EventsReport(sampleEvents(), now)
	assert.Contains(t, out, "Total Events: 3")
	assert.Contains(t, out, "2024-01-02 11:58:00 | 12.0s    | 4.5 Hz    |       0.31 |       0.88 | yes 93%")
	assert.Contains(t, out, "yesterday-ish")
	assert.Contains(t, out, "DL Verified Events: 1 (33.3%)")
	assert.Contains(t, out, "Average Duration: 6.7s")
	assert.Contains(t, out, "Average Frequency: 2.7 Hz")

	empty := EventsReport(nil, now)
	assert.Contains(t, empty, "Total Events: 0")
	assert.NotContains(t, empty, "Summary Statistics")
}

type fakeLive struct {
	events      []models.SeizureEvent
	eventsReady bool
	sample      *models.MonitoringSample
	sampleReady bool
	errs        map[string]string
}

func (f fakeLive) Events() ([]models.SeizureEvent, bool)     { return f.events, f.eventsReady }
func (f fakeLive) Sample() (*models.MonitoringSample, bool)  { return f.sample, f.sampleReady }
func (f fakeLive) LastError(path string) (string, time.Time) { return f.errs[path], now }
func (f fakeLive) EventsPath() string                        { return "seizure_events" }
func (f fakeLive) MonitoringPath() string                    { return "realtime_monitoring" }

type fakeCamera struct {
	status models.CameraStatus
	known  bool
	err    error
}

func (f fakeCamera) Current() (models.CameraStatus, bool, error) { return f.status, f.known, f.err }

func TestHousekeeper_Cycle(t *testing.T) {
	live := fakeLive{
		events: sampleEvents(), eventsReady: true,
		sample: &models.MonitoringSample{MotionValue: 0.42, RhythmicMotion: true}, sampleReady: true,
		errs:   map[string]string{"realtime_monitoring": "permission denied"},
	}
	h := NewHousekeeper(live, fakeCamera{status: models.CameraStatus{Status: "running", Running: true}, known: true}, time.Minute)
	h.Now = func() time.Time { return now }

	var gotSummary *models.AnalyticsSummary
	var gotCount int
	h.OnCycle = func(s *models.AnalyticsSummary, n int) { gotSummary, gotCount = s, n }

	out := h.Cycle()
	require.NotNil(t, gotSummary)
	assert.Equal(t, 3, gotCount)
	assert.Contains(t, out, "System active          | true")
	assert.Contains(t, out, "motion 0.42, rhythmic true")
	assert.Contains(t, out, "Camera                 | running")
	assert.Contains(t, out, "Subscription error on realtime_monitoring since")
	assert.Contains(t, out, "permission denied")
	assert.NotContains(t, out, "error on seizure_events")
}

func TestHousekeeper_Waiting(t *testing.T) {
	h := NewHousekeeper(fakeLive{}, fakeCamera{err: errors.New("connection refused")}, time.Minute)
	h.Now = func() time.Time { return now }
	called := false
	h.OnCycle = func(*models.AnalyticsSummary, int) { called = true }

	out := h.Cycle()
	assert.False(t, called)
	assert.Contains(t, out, "Events                 | waiting for first snapshot")
	assert.Contains(t, out, "unknown (last poll failed: connection refused)")
	assert.NotContains(t, out, "Subscription error")
}

func TestHousekeeper_RunStops(t *testing.T) {
	h := NewHousekeeper(fakeLive{}, nil, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.RunHousekeepingCycle(ctx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("housekeeping did not stop")
	}
}
