// Package normalizer turns loosely-typed records pushed by the detector into
// canonical models. Every function here is total: missing, null or malformed
// fields degrade to the field default and nothing is ever reported.
package normalizer

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"seizowatch/internal/models"
)

// Field names accepted per concept, in precedence order. A later name is only
// consulted when every earlier one is absent.
var (
	TimestampFields         = []string{"timestamp"}
	DurationFields          = []string{"duration_seconds", "duration"}
	AvgMotionFields         = []string{"avg_motion"}
	MaxMotionFields         = []string{"max_motion"}
	DominantFrequencyFields = []string{"dominant_frequency", "dominant_freq"}
	RuleBasedFields         = []string{"rule_based"}
	DLVerifiedFields        = []string{"dl_verified", "final_decision"}
	ONNXScoreFields         = []string{"onnx_score"}

	MotionValueFields    = []string{"motion_value"}
	RhythmicMotionFields = []string{"rhythmic_motion"}
)

// timestampLayouts are tried in order. Layouts without a zone are read in the
// local zone, which is how the detector writes them.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

type Normalizer struct {
	dlVerifiedFields []string
}

// New returns a Normalizer. With strictVerification set only the canonical
// dl_verified field counts; the final_decision alias is ignored.
func New(strictVerification bool) *Normalizer {
	fields := DLVerifiedFields
	if strictVerification {
		fields = DLVerifiedFields[:1]
	}
	return &Normalizer{dlVerifiedFields: fields}
}

var defaultNormalizer = New(false)

// NormalizeEvent uses the default alias policy.
func NormalizeEvent(key string, raw models.RawRecord) models.SeizureEvent {
	return defaultNormalizer.Event(key, raw)
}

// NormalizeSample uses the default alias policy.
func NormalizeSample(raw models.RawRecord) models.MonitoringSample {
	return defaultNormalizer.Sample(raw)
}

func (n *Normalizer) Event(key string, raw models.RawRecord) models.SeizureEvent {
	ts := stringField(raw, TimestampFields)
	return models.SeizureEvent{
		ID:                key,
		Timestamp:         ts,
		Time:              ParseTimestamp(ts),
		DurationSeconds:   magnitudeField(raw, DurationFields),
		AvgMotion:         magnitudeField(raw, AvgMotionFields),
		MaxMotion:         magnitudeField(raw, MaxMotionFields),
		DominantFrequency: floatField(raw, DominantFrequencyFields),
		RuleBased:         boolField(raw, RuleBasedFields),
		DLVerified:        boolField(raw, n.dlVerifiedFields),
		ONNXScore:         math.Min(magnitudeField(raw, ONNXScoreFields), 1),
	}
}

func (n *Normalizer) Sample(raw models.RawRecord) models.MonitoringSample {
	return models.MonitoringSample{
		MotionValue:       magnitudeField(raw, MotionValueFields),
		AvgMotion:         magnitudeField(raw, AvgMotionFields),
		MaxMotion:         magnitudeField(raw, MaxMotionFields),
		DominantFrequency: floatField(raw, DominantFrequencyFields),
		RhythmicMotion:    boolField(raw, RhythmicMotionFields),
		Timestamp:         stringField(raw, TimestampFields),
	}
}

// ParseTimestamp returns the zero time for empty or unrecognised input.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

// lookup returns the value of the first present field name.
func lookup(raw models.RawRecord, names []string) (any, bool) {
	for _, name := range names {
		if v, ok := raw[name]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func stringField(raw models.RawRecord, names []string) string {
	v, ok := lookup(raw, names)
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// floatField reads a finite float of either sign, 0 otherwise.
func floatField(raw models.RawRecord, names []string) float64 {
	v, ok := lookup(raw, names)
	if !ok {
		return 0
	}
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// magnitudeField reads a non-negative finite float, 0 otherwise.
func magnitudeField(raw models.RawRecord, names []string) float64 {
	return math.Max(floatField(raw, names), 0)
}

func boolField(raw models.RawRecord, names []string) bool {
	v, ok := lookup(raw, names)
	if !ok {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return err == nil && parsed
	default:
		f, ok := toFloat(v)
		return ok && f != 0 && !math.IsNaN(f)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
