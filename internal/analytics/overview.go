package analytics

import (
	"time"

	"seizowatch/internal/models"
)

// Overview computes the headline numbers of the live dashboard. events must be
// in store order (most recent first); the first element is the last event.
func Overview(events []models.SeizureEvent, now time.Time) models.DashboardOverview {
	out := models.DashboardOverview{
		TotalEvents: len(events),
		Chart:       activityChart(events, now),
	}
	if len(events) == 0 {
		return out
	}

	last := events[0]
	out.LastEvent = &last
	out.SystemActive = last.HasTime() && now.Sub(last.Time) < ActiveWindow

	var sumDuration float64
	for _, e := range events {
		sumDuration += e.DurationSeconds
		if e.DLVerified {
			out.VerifiedEvents++
		}
	}
	out.VerificationRate = float64(out.VerifiedEvents) / float64(len(events)) * 100
	out.AvgDuration = sumDuration / float64(len(events))
	return out
}

func activityChart(events []models.SeizureEvent, now time.Time) []models.DayActivity {
	loc := now.Location()
	type counts struct{ events, verified int }
	perDay := make(map[string]counts)
	for _, e := range events {
		if !e.HasTime() {
			continue
		}
		key := e.Time.In(loc).Format(dateKeyLayout)
		c := perDay[key]
		c.events++
		if e.DLVerified {
			c.verified++
		}
		perDay[key] = c
	}

	chart := make([]models.DayActivity, 0, BreakdownDays)
	for _, day := range lastDays(now, BreakdownDays) {
		c := perDay[day.Format(dateKeyLayout)]
		chart = append(chart, models.DayActivity{
			Label:    day.Format(chartLabelLayout),
			Events:   c.events,
			Verified: c.verified,
		})
	}
	return chart
}

// Selection summarizes an already filtered list, e.g. for an export. It
// returns nil for an empty list.
func Selection(events []models.SeizureEvent) *models.SelectionStats {
	if len(events) == 0 {
		return nil
	}
	n := float64(len(events))
	stats := &models.SelectionStats{Count: len(events)}
	var sumDuration, sumFrequency float64
	for _, e := range events {
		sumDuration += e.DurationSeconds
		sumFrequency += e.DominantFrequency
		if e.DLVerified {
			stats.VerifiedCount++
		}
	}
	stats.VerifiedPercent = float64(stats.VerifiedCount) / n * 100
	stats.AvgDuration = sumDuration / n
	stats.AvgFrequency = sumFrequency / n
	return stats
}
