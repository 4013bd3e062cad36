// Package report renders plain-text exports of the live data and runs the
// periodic housekeeping log.
package report

import (
	"fmt"
	"strings"
	"time"

	"seizowatch/internal/analytics"
	"seizowatch/internal/models"
)

const (
	generatedLayout = "2006-01-02 15:04:05"
	eventLayout     = "2006-01-02 15:04:05"
	ruleWidth       = 78
)

// AnalyticsReport renders the key metrics and the 7-day breakdown. A nil
// summary produces a short "no data" report.
func AnalyticsReport(summary *models.AnalyticsSummary, now time.Time) string {
	var report strings.Builder
	report.WriteString("SeizoWatch - Analytics Report\n")
	report.WriteString(fmt.Sprintf("Generated: %s\n\n", now.Format(generatedLayout)))

	if summary == nil {
		report.WriteString("No seizure events recorded.\n")
		return report.String()
	}

	report.WriteString("Key Metrics\n")
	report.WriteString(fmt.Sprintf("  Events Per Day:          %.1f\n", summary.EventsPerDay))
	report.WriteString(fmt.Sprintf("  Average Duration:        %.1fs\n", summary.AvgDurationSeconds))
	report.WriteString(fmt.Sprintf("  Peak Frequency:          %.1f Hz\n", summary.PeakDominantFrequency))
	report.WriteString(fmt.Sprintf("  Verification Rate:       %.1f%%\n", summary.VerificationRatePercent))
	report.WriteString(fmt.Sprintf("  Total Events:            %d\n", summary.TotalEvents))
	report.WriteString(fmt.Sprintf("  DL Verified:             %d\n", summary.DLVerifiedCount))
	report.WriteString(fmt.Sprintf("  Rule Based:              %d\n", summary.RuleBasedCount))
	report.WriteString(fmt.Sprintf("  Recent Events (%d days):  %d\n\n", analytics.RecentWindowDays, summary.RecentCount))

	report.WriteString(fmt.Sprintf("%d-Day Activity Breakdown\n", analytics.BreakdownDays))
	report.WriteString(fmt.Sprintf("%-12s | %-5s | %-6s\n", "Date", "Day", "Events"))
	report.WriteString(strings.Repeat("-", 29) + "\n")
	for _, day := range summary.DailyBreakdown {
		report.WriteString(fmt.Sprintf("%-12s | %-5s | %6d\n", day.CalendarDate, day.WeekdayLabel, day.Count))
	}
	return report.String()
}

// EventsReport renders the given (already filtered) events and their summary
// statistics. Times are shown in now's location.
func EventsReport(events []models.SeizureEvent, now time.Time) string {
	var report strings.Builder
	report.WriteString("SeizoWatch - Seizure Events Report\n")
	report.WriteString(fmt.Sprintf("Generated: %s\n", now.Format(generatedLayout)))
	report.WriteString(fmt.Sprintf("Total Events: %d\n\n", len(events)))

	report.WriteString(fmt.Sprintf("%-19s | %-8s | %-9s | %-10s | %-10s | %-11s\n",
		"Timestamp", "Duration", "Frequency", "Avg Motion", "Max Motion", "DL Verified"))
	report.WriteString(strings.Repeat("-", ruleWidth) + "\n")
	for _, e := range events {
		report.WriteString(fmt.Sprintf("%-19s | %-8s | %-9s | %10.2f | %10.2f | %-11s\n",
			eventTime(e, now.Location()),
			fmt.Sprintf("%.1fs", e.DurationSeconds),
			fmt.Sprintf("%.1f Hz", e.DominantFrequency),
			e.AvgMotion,
			e.MaxMotion,
			verifiedCell(e),
		))
	}

	stats := analytics.Selection(events)
	if stats == nil {
		return report.String()
	}
	report.WriteString("\nSummary Statistics:\n")
	report.WriteString(fmt.Sprintf("  DL Verified Events: %d (%.1f%%)\n", stats.VerifiedCount, stats.VerifiedPercent))
	report.WriteString(fmt.Sprintf("  Average Duration: %.1fs\n", stats.AvgDuration))
	report.WriteString(fmt.Sprintf("  Average Frequency: %.1f Hz\n", stats.AvgFrequency))
	return report.String()
}

func eventTime(e models.SeizureEvent, loc *time.Location) string {
	if !e.HasTime() {
		if e.Timestamp == "" {
			return "unknown"
		}
		return e.Timestamp
	}
	return e.Time.In(loc).Format(eventLayout)
}

func verifiedCell(e models.SeizureEvent) string {
	if !e.DLVerified {
		return "no"
	}
	return fmt.Sprintf("yes %.0f%%", e.ONNXScore*100)
}
