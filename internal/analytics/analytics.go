// Package analytics derives summaries from an ordered event sequence. All
// functions are pure and recompute from scratch; rolling windows are measured
// back from the supplied now and calendar days are taken in now's location.
package analytics

import (
	"time"

	"seizowatch/internal/models"
)

const (
	RecentWindowDays = 7
	BreakdownDays    = 7
	ActiveWindow     = 5 * time.Minute

	dateKeyLayout    = "2006-01-02"
	weekdayLayout    = "Mon"
	chartLabelLayout = "Jan 2"
)

// Summarize returns nil for an empty sequence so callers can tell "no data"
// apart from a summary of zeros.
func Summarize(events []models.SeizureEvent, now time.Time) *models.AnalyticsSummary {
	if len(events) == 0 {
		return nil
	}
	loc := now.Location()
	total := float64(len(events))

	byDate := EventsByDate(events, loc)

	var sumDuration, sumMotion, sumMaxMotion float64
	peak := events[0].DominantFrequency
	verified, ruleBased, recent := 0, 0, 0
	recentCutoff := now.AddDate(0, 0, -RecentWindowDays)

	for _, e := range events {
		sumDuration += e.DurationSeconds
		sumMotion += e.AvgMotion
		sumMaxMotion += e.MaxMotion
		if e.DominantFrequency > peak {
			peak = e.DominantFrequency
		}
		if e.DLVerified {
			verified++
		}
		if e.RuleBased {
			ruleBased++
		}
		if e.HasTime() && !e.Time.Before(recentCutoff) {
			recent++
		}
	}

	return &models.AnalyticsSummary{
		TotalEvents:             len(events),
		EventsPerDay:            total / float64(max(len(byDate), 1)),
		AvgDurationSeconds:      sumDuration / total,
		PeakDominantFrequency:   peak,
		AvgMotion:               sumMotion / total,
		AvgMaxMotion:            sumMaxMotion / total,
		DLVerifiedCount:         verified,
		RuleBasedCount:          ruleBased,
		VerificationRatePercent: float64(verified) / total * 100,
		RecentCount:             recent,
		DailyBreakdown:          dailyBreakdown(byDate, now),
		EventsByDate:            byDate,
	}
}

// EventsByDate counts events per calendar day in loc. Events without a
// parseable timestamp belong to no day.
func EventsByDate(events []models.SeizureEvent, loc *time.Location) map[string]int {
	byDate := make(map[string]int)
	for _, e := range events {
		if !e.HasTime() {
			continue
		}
		byDate[e.Time.In(loc).Format(dateKeyLayout)]++
	}
	return byDate
}

// dailyBreakdown covers today and the six days before it, oldest first,
// including days without events.
func dailyBreakdown(byDate map[string]int, now time.Time) []models.DayCount {
	days := make([]models.DayCount, 0, BreakdownDays)
	for _, day := range lastDays(now, BreakdownDays) {
		key := day.Format(dateKeyLayout)
		days = append(days, models.DayCount{
			CalendarDate: key,
			WeekdayLabel: day.Format(weekdayLayout),
			Count:        byDate[key],
		})
	}
	return days
}

// lastDays returns local midnights for the n days ending today, oldest first.
func lastDays(now time.Time, n int) []time.Time {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	days := make([]time.Time, 0, n)
	for i := n - 1; i >= 0; i-- {
		days = append(days, today.AddDate(0, 0, -i))
	}
	return days
}
