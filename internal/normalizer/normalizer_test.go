package normalizer

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seizowatch/internal/models"
)

func TestNormalizeEvent_PrimaryFields(t *testing.T) {
	raw := models.RawRecord{
		"timestamp":          "2024-01-01T10:00:00Z",
		"duration_seconds":   4.8,
		"avg_motion":         2500000.5,
		"max_motion":         3200000.8,
		"dominant_frequency": 5.2,
		"rule_based":         true,
		"dl_verified":        true,
		"onnx_score":         0.92,
	}

	ev := NormalizeEvent("-Nabc", raw)

	assert.Equal(t, "-Nabc", ev.ID)
	assert.Equal(t, "2024-01-01T10:00:00Z", ev.Timestamp)
	assert.True(t, ev.Time.Equal(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, 4.8, ev.DurationSeconds)
	assert.Equal(t, 2500000.5, ev.AvgMotion)
	assert.Equal(t, 3200000.8, ev.MaxMotion)
	assert.Equal(t, 5.2, ev.DominantFrequency)
	assert.True(t, ev.RuleBased)
	assert.True(t, ev.DLVerified)
	assert.Equal(t, 0.92, ev.ONNXScore)
}

func TestNormalizeEvent_AliasesMatchPrimaryShape(t *testing.T) {
	primary := models.RawRecord{
		"timestamp":          "2024-03-05 08:30:00",
		"duration_seconds":   3.6,
		"dominant_frequency": 4.8,
		"dl_verified":        true,
	}
	aliased := models.RawRecord{
		"timestamp":      "2024-03-05 08:30:00",
		"duration":       3.6,
		"dominant_freq":  4.8,
		"final_decision": true,
	}

	assert.Equal(t, NormalizeEvent("k", primary), NormalizeEvent("k", aliased))
}

func TestNormalizeEvent_CanonicalWinsOverAlias(t *testing.T) {
	raw := models.RawRecord{
		"duration_seconds": 2.0,
		"duration":         9.0,
		"dl_verified":      false,
		"final_decision":   true,
	}
	ev := NormalizeEvent("k", raw)
	assert.Equal(t, 2.0, ev.DurationSeconds)
	assert.False(t, ev.DLVerified)
}

func TestNormalizeEvent_NullCanonicalFallsBackToAlias(t *testing.T) {
	raw := models.RawRecord{"duration_seconds": nil, "duration": 7.5}
	assert.Equal(t, 7.5, NormalizeEvent("k", raw).DurationSeconds)
}

func TestNormalizeEvent_MissingFieldsDefault(t *testing.T) {
	fields := []string{"timestamp", "duration_seconds", "avg_motion", "max_motion",
		"dominant_frequency", "rule_based", "dl_verified", "onnx_score"}
	full := models.RawRecord{
		"timestamp": "2024-01-01T10:00:00Z", "duration_seconds": 1.0, "avg_motion": 1.0,
		"max_motion": 1.0, "dominant_frequency": 1.0, "rule_based": true,
		"dl_verified": true, "onnx_score": 0.5,
	}

	// Every subset of the fields must produce a fully populated event that
	// survives a JSON round trip without nulls.
	for mask := 0; mask < 1<<len(fields); mask++ {
		raw := models.RawRecord{}
		for i, f := range fields {
			if mask&(1<<i) != 0 {
				raw[f] = full[f]
			}
		}
		ev := NormalizeEvent("id", raw)

		data, err := json.Marshal(ev)
		require.NoError(t, err)
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(data, &decoded))
		for _, f := range append([]string{"id"}, fields...) {
			v, ok := decoded[f]
			assert.True(t, ok, "field %s missing for mask %b", f, mask)
			assert.NotNil(t, v, "field %s null for mask %b", f, mask)
		}
	}
}

func TestNormalizeEvent_EmptyRecord(t *testing.T) {
	ev := NormalizeEvent("x", nil)
	assert.Equal(t, models.SeizureEvent{ID: "x"}, ev)
	assert.False(t, ev.HasTime())
}

func TestNormalizeEvent_MalformedValuesDegrade(t *testing.T) {
	tests := []struct {
		name  string
		raw   models.RawRecord
		check func(t *testing.T, ev models.SeizureEvent)
	}{
		{"non numeric duration", models.RawRecord{"duration_seconds": "long"}, func(t *testing.T, ev models.SeizureEvent) {
			assert.Zero(t, ev.DurationSeconds)
		}},
		{"malformed canonical does not use alias", models.RawRecord{"duration_seconds": []any{1}, "duration": 3.0}, func(t *testing.T, ev models.SeizureEvent) {
			assert.Zero(t, ev.DurationSeconds)
		}},
		{"numeric string accepted", models.RawRecord{"avg_motion": "12.5"}, func(t *testing.T, ev models.SeizureEvent) {
			assert.Equal(t, 12.5, ev.AvgMotion)
		}},
		{"negative magnitude", models.RawRecord{"max_motion": -4.0}, func(t *testing.T, ev models.SeizureEvent) {
			assert.Zero(t, ev.MaxMotion)
		}},
		{"nan frequency", models.RawRecord{"dominant_frequency": math.NaN()}, func(t *testing.T, ev models.SeizureEvent) {
			assert.Zero(t, ev.DominantFrequency)
		}},
		{"negative frequency kept", models.RawRecord{"dominant_freq": -2.5}, func(t *testing.T, ev models.SeizureEvent) {
			assert.Equal(t, -2.5, ev.DominantFrequency)
		}},
		{"infinite frequency", models.RawRecord{"dominant_frequency": math.Inf(-1)}, func(t *testing.T, ev models.SeizureEvent) {
			assert.Zero(t, ev.DominantFrequency)
		}},
		{"score clamped", models.RawRecord{"onnx_score": 1.7}, func(t *testing.T, ev models.SeizureEvent) {
			assert.Equal(t, 1.0, ev.ONNXScore)
		}},
		{"timestamp of wrong type", models.RawRecord{"timestamp": 12345}, func(t *testing.T, ev models.SeizureEvent) {
			assert.Empty(t, ev.Timestamp)
			assert.True(t, ev.Time.IsZero())
		}},
		{"unparseable timestamp keeps raw string", models.RawRecord{"timestamp": "yesterday"}, func(t *testing.T, ev models.SeizureEvent) {
			assert.Equal(t, "yesterday", ev.Timestamp)
			assert.True(t, ev.Time.IsZero())
		}},
		{"bool from string", models.RawRecord{"rule_based": "true"}, func(t *testing.T, ev models.SeizureEvent) {
			assert.True(t, ev.RuleBased)
		}},
		{"bool from number", models.RawRecord{"dl_verified": 1.0}, func(t *testing.T, ev models.SeizureEvent) {
			assert.True(t, ev.DLVerified)
		}},
		{"bool garbage", models.RawRecord{"dl_verified": "maybe"}, func(t *testing.T, ev models.SeizureEvent) {
			assert.False(t, ev.DLVerified)
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.check(t, NormalizeEvent("k", tc.raw))
		})
	}
}

func TestStrictVerificationIgnoresFinalDecision(t *testing.T) {
	raw := models.RawRecord{"final_decision": true}
	assert.True(t, New(false).Event("k", raw).DLVerified)
	assert.False(t, New(true).Event("k", raw).DLVerified)
	assert.True(t, New(true).Event("k", models.RawRecord{"dl_verified": true}).DLVerified)
}

func TestNormalizeSample(t *testing.T) {
	s := NormalizeSample(models.RawRecord{
		"motion_value":    120.5,
		"dominant_freq":   3.1,
		"rhythmic_motion": true,
		"timestamp":       "2024-01-01 10:00:00",
	})
	assert.Equal(t, 120.5, s.MotionValue)
	assert.Equal(t, 3.1, s.DominantFrequency)
	assert.True(t, s.RhythmicMotion)
	assert.Equal(t, "2024-01-01 10:00:00", s.Timestamp)
	assert.Zero(t, s.AvgMotion)
	assert.Zero(t, s.MaxMotion)

	assert.Equal(t, models.MonitoringSample{}, NormalizeSample(nil))

	neg := NormalizeSample(models.RawRecord{"dominant_frequency": "-1.5", "motion_value": -3.0})
	assert.Equal(t, -1.5, neg.DominantFrequency)
	assert.Zero(t, neg.MotionValue)
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-02T10:00:00Z", time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)},
		{"2024-01-02T10:00:00.250+02:00", time.Date(2024, 1, 2, 8, 0, 0, 250_000_000, time.UTC)},
		{"2024-01-02 10:00:00", time.Date(2024, 1, 2, 10, 0, 0, 0, time.Local)},
		{"2024-01-02T10:00:00", time.Date(2024, 1, 2, 10, 0, 0, 0, time.Local)},
		{"2024-01-02", time.Date(2024, 1, 2, 0, 0, 0, 0, time.Local)},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.True(t, ParseTimestamp(tc.in).Equal(tc.want))
		})
	}
	assert.True(t, ParseTimestamp("").IsZero())
	assert.True(t, ParseTimestamp("not a date").IsZero())
}
