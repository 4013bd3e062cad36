// Package query filters an ordered event sequence for listing and export.
package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"seizowatch/internal/models"
)

type VerificationFilter string

const (
	VerificationAll VerificationFilter = "all"
	VerifiedOnly    VerificationFilter = "verifiedOnly"
	RuleBasedOnly   VerificationFilter = "ruleBasedOnly"
)

type DateRange string

const (
	RangeAll        DateRange = "all"
	RangeToday      DateRange = "today"
	RangeLast7Days  DateRange = "last7Days"
	RangeLast30Days DateRange = "last30Days"
)

// Filter is the zero-value-friendly set of predicates; empty fields mean "all".
type Filter struct {
	Verification VerificationFilter
	Range        DateRange
	Search       string
}

// Query applies the verification, date-range and search predicates in that
// order. The result keeps the input order and is always a new slice.
func Query(events []models.SeizureEvent, f Filter, now time.Time) []models.SeizureEvent {
	search := strings.ToLower(f.Search)
	out := make([]models.SeizureEvent, 0, len(events))
	for _, e := range events {
		if !matchesVerification(e, f.Verification) {
			continue
		}
		if !withinRange(e, f.Range, now) {
			continue
		}
		if !matchesSearch(e, search) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func matchesVerification(e models.SeizureEvent, v VerificationFilter) bool {
	switch v {
	case VerifiedOnly:
		return e.DLVerified
	case RuleBasedOnly:
		return e.RuleBased
	default:
		return true
	}
}

// withinRange compares elapsed days against a strict upper bound. Events
// without a parseable timestamp fall outside every bounded range.
func withinRange(e models.SeizureEvent, r DateRange, now time.Time) bool {
	var limit float64
	switch r {
	case RangeToday:
		limit = 1
	case RangeLast7Days:
		limit = 7
	case RangeLast30Days:
		limit = 30
	default:
		return true
	}
	if !e.HasTime() {
		return false
	}
	elapsedDays := now.Sub(e.Time).Hours() / 24
	return elapsedDays < limit
}

// matchesSearch expects an already lower-cased term.
func matchesSearch(e models.SeizureEvent, term string) bool {
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(e.Timestamp), term) ||
		strings.Contains(FormatNumber(e.DurationSeconds), term) ||
		strings.Contains(FormatNumber(e.DominantFrequency), term)
}

// FormatNumber renders a value with the fewest digits that round-trip, which
// is what a user sees and types when searching.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ParseVerification accepts the canonical names and the short forms used by
// the dashboard ("verified", "rule-based").
func ParseVerification(s string) (VerificationFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return VerificationAll, nil
	case "verifiedonly", "verified", "verified_only":
		return VerifiedOnly, nil
	case "rulebasedonly", "rule-based", "rule_based", "rulebased":
		return RuleBasedOnly, nil
	default:
		return "", fmt.Errorf("unknown verification filter %q", s)
	}
}

// ParseDateRange accepts the canonical names and "week"/"month".
func ParseDateRange(s string) (DateRange, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return RangeAll, nil
	case "today":
		return RangeToday, nil
	case "last7days", "week", "7d":
		return RangeLast7Days, nil
	case "last30days", "month", "30d":
		return RangeLast30Days, nil
	default:
		return "", fmt.Errorf("unknown date range %q", s)
	}
}
