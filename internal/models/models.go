package models

import "time"

// RawRecord is a single loosely-typed record as it arrives from the remote store.
type RawRecord = map[string]any

// CollectionSnapshot is the full point-in-time view of a keyed collection.
type CollectionSnapshot struct {
	Exists bool
	Value  map[string]RawRecord
}

// RecordSnapshot is the full point-in-time view of a single-record channel.
type RecordSnapshot struct {
	Exists bool
	Value  RawRecord
}

// SeizureEvent is one detected episode after normalization.
type SeizureEvent struct {
	ID                string  `json:"id"`
	Timestamp         string  `json:"timestamp"`
	DurationSeconds   float64 `json:"duration_seconds"`
	AvgMotion         float64 `json:"avg_motion"`
	MaxMotion         float64 `json:"max_motion"`
	DominantFrequency float64 `json:"dominant_frequency"`
	RuleBased         bool    `json:"rule_based"`
	DLVerified        bool    `json:"dl_verified"`
	ONNXScore         float64 `json:"onnx_score"`

	// Time is the parsed Timestamp; zero when the string could not be parsed.
	Time time.Time `json:"-"`
}

// HasTime reports whether the event timestamp was parseable.
func (e SeizureEvent) HasTime() bool {
	return !e.Time.IsZero()
}

// MonitoringSample is the current live reading of the capture device.
type MonitoringSample struct {
	MotionValue       float64 `json:"motion_value"`
	AvgMotion         float64 `json:"avg_motion"`
	MaxMotion         float64 `json:"max_motion"`
	DominantFrequency float64 `json:"dominant_frequency"`
	RhythmicMotion    bool    `json:"rhythmic_motion"`
	Timestamp         string  `json:"timestamp"`
}

// --- Derived analytics ---

type DayCount struct {
	CalendarDate string `json:"date"`
	WeekdayLabel string `json:"day_name"`
	Count        int    `json:"count"`
}

type AnalyticsSummary struct {
	TotalEvents             int            `json:"total_events"`
	EventsPerDay            float64        `json:"events_per_day"`
	AvgDurationSeconds      float64        `json:"avg_duration_seconds"`
	PeakDominantFrequency   float64        `json:"peak_dominant_frequency"`
	AvgMotion               float64        `json:"avg_motion"`
	AvgMaxMotion            float64        `json:"avg_max_motion"`
	DLVerifiedCount         int            `json:"dl_verified_count"`
	RuleBasedCount          int            `json:"rule_based_count"`
	VerificationRatePercent float64        `json:"verification_rate_percent"`
	RecentCount             int            `json:"recent_count"`
	DailyBreakdown          []DayCount     `json:"daily_breakdown"`
	EventsByDate            map[string]int `json:"events_by_date"`
}

type DayActivity struct {
	Label    string `json:"label"`
	Events   int    `json:"events"`
	Verified int    `json:"verified"`
}

// DashboardOverview backs the landing view: headline counts and a 7-day chart.
type DashboardOverview struct {
	TotalEvents      int           `json:"total_events"`
	LastEvent        *SeizureEvent `json:"last_event"`
	VerifiedEvents   int           `json:"verified_events"`
	VerificationRate float64       `json:"verification_rate"`
	AvgDuration      float64       `json:"avg_duration"`
	SystemActive     bool          `json:"system_active"`
	Chart            []DayActivity `json:"chart"`
}

// SelectionStats summarizes an already filtered list of events for export.
type SelectionStats struct {
	Count           int     `json:"count"`
	VerifiedCount   int     `json:"verified_count"`
	VerifiedPercent float64 `json:"verified_percent"`
	AvgDuration     float64 `json:"avg_duration"`
	AvgFrequency    float64 `json:"avg_frequency"`
}

// --- Camera control endpoint payloads ---

type CameraStatus struct {
	Status  string `json:"status"`
	Running bool   `json:"running"`
}

type CameraActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	PID     int    `json:"pid,omitempty"`
}

// AlertRecord is one row of the alert ledger.
type AlertRecord struct {
	EventID        string `json:"event_id"`
	EventTimestamp string `json:"event_timestamp"`
	AlertedAt      int64  `json:"alerted_at"`
	Delivered      bool   `json:"delivered"`
}
