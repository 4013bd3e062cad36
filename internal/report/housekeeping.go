package report

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"seizowatch/internal/analytics"
	"seizowatch/internal/models"
)

type LiveState interface {
	Events() ([]models.SeizureEvent, bool)
	Sample() (*models.MonitoringSample, bool)
	LastError(path string) (string, time.Time)
	EventsPath() string
	MonitoringPath() string
}

type CameraState interface {
	Current() (models.CameraStatus, bool, error)
}

// Housekeeper periodically recomputes the time-dependent summary and logs a
// status report.
type Housekeeper struct {
	live     LiveState
	camera   CameraState
	interval time.Duration

	// OnCycle receives the freshly computed summary (nil when there are no events).
	OnCycle func(summary *models.AnalyticsSummary, eventCount int)
	Now     func() time.Time
}

func NewHousekeeper(live LiveState, camera CameraState, interval time.Duration) *Housekeeper {
	return &Housekeeper{live: live, camera: camera, interval: interval, Now: time.Now}
}

func (h *Housekeeper) RunHousekeepingCycle(ctx context.Context) {
	log.Printf("Housekeeping cycle started. Will report every %s.", h.interval)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Housekeeping cycle stopping.")
			return
		case <-ticker.C:
			log.Println(h.Cycle())
		}
	}
}

// Cycle runs one housekeeping pass and returns the status report.
func (h *Housekeeper) Cycle() string {
	now := h.Now()
	events, eventsReady := h.live.Events()
	summary := analytics.Summarize(events, now)
	if h.OnCycle != nil && eventsReady {
		h.OnCycle(summary, len(events))
	}

	var report strings.Builder
	report.WriteString("\n--- Housekeeping Report ---\n")
	report.WriteString(fmt.Sprintf("%-22s | %s\n", "Item", "State"))
	report.WriteString(strings.Repeat("-", 66) + "\n")

	if !eventsReady {
		report.WriteString(fmt.Sprintf("%-22s | %s\n", "Events", "waiting for first snapshot"))
	} else {
		report.WriteString(fmt.Sprintf("%-22s | %d\n", "Events", len(events)))
		if summary != nil {
			report.WriteString(fmt.Sprintf("%-22s | %d\n", fmt.Sprintf("Recent (%d days)", analytics.RecentWindowDays), summary.RecentCount))
			report.WriteString(fmt.Sprintf("%-22s | %.1f%%\n", "Verification rate", summary.VerificationRatePercent))
		}
		overview := analytics.Overview(events, now)
		report.WriteString(fmt.Sprintf("%-22s | %t\n", "System active", overview.SystemActive))
	}

	sample, sampleReady := h.live.Sample()
	switch {
	case !sampleReady:
		report.WriteString(fmt.Sprintf("%-22s | %s\n", "Live monitoring", "waiting for first snapshot"))
	case sample == nil:
		report.WriteString(fmt.Sprintf("%-22s | %s\n", "Live monitoring", "no data"))
	default:
		report.WriteString(fmt.Sprintf("%-22s | motion %.2f, rhythmic %t\n", "Live monitoring", sample.MotionValue, sample.RhythmicMotion))
	}

	if h.camera != nil {
		status, known, err := h.camera.Current()
		cameraState := "unknown"
		if known {
			cameraState = status.Status
		}
		if err != nil {
			cameraState += fmt.Sprintf(" (last poll failed: %v)", err)
		}
		report.WriteString(fmt.Sprintf("%-22s | %s\n", "Camera", cameraState))
	}

	for _, path := range []string{h.live.EventsPath(), h.live.MonitoringPath()} {
		if msg, at := h.live.LastError(path); msg != "" {
			report.WriteString(fmt.Sprintf("Subscription error on %s since %s: %s\n", path, at.Format(generatedLayout), msg))
		}
	}
	report.WriteString(strings.Repeat("-", 66))
	return report.String()
}
