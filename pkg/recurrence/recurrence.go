// Package recurrence answers two questions about a recurring schedule: when its next
// occurrence is, and whether an instant is inside its active months. It holds no state.
package recurrence

import (
	"fmt"
	"strings"
	"time"
)

// maxActiveSearch bounds how many occurrences NextActiveOccurrence inspects. Two years of
// daily occurrences covers every interval and month window
const maxActiveSearch = 2 * 366

// Period is an inclusive range of months. Start after End spans the new year
type Period struct {
	Start time.Month
	End   time.Month
}

// ParsePeriod reads month names, either three-letter abbreviations ("Nov") or full names ("November"), ignoring case
func ParsePeriod(start, end string) (*Period, error) {
	startMonth, err := ParseMonth(start)
	if err != nil {
		return nil, fmt.Errorf("invalid start_month: %w", err)
	}
	endMonth, err := ParseMonth(end)
	if err != nil {
		return nil, fmt.Errorf("invalid end_month: %w", err)
	}
	return &Period{Start: startMonth, End: endMonth}, nil
}

// ParseMonth converts a month name into a time.Month
func ParseMonth(input string) (time.Month, error) {
	input = strings.TrimSpace(input)
	for m := time.January; m <= time.December; m++ {
		long := m.String()
		if strings.EqualFold(input, long) || strings.EqualFold(input, long[:3]) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown month %q", input)
}

// Contains reports whether month m is inside the Period
func (p *Period) Contains(m time.Month) bool {
	if p.Start <= p.End {
		return m >= p.Start && m <= p.End
	}
	return m >= p.Start || m <= p.End
}

// IsActiveTime is true if there is no Period or the month of t, in t's location, falls inside it
func IsActiveTime(p *Period, t time.Time) bool {
	if p == nil {
		return true
	}
	return p.Contains(t.Month())
}

// NextOccurrence returns the first instant strictly after now that is base plus a whole multiple
// of intervalDays calendar days. Days are added in base's location so the time-of-day is preserved.
// An interval below one day is treated as daily
func NextOccurrence(base time.Time, intervalDays int, now time.Time) time.Time {
	if intervalDays < 1 {
		intervalDays = 1
	}
	if now.Before(base) {
		return base
	}

	period := time.Duration(intervalDays) * 24 * time.Hour
	k := int(now.Sub(base)/period) + 1

	next := base.AddDate(0, 0, k*intervalDays)
	// A DST transition in base's location can make the estimate off by one in either direction
	for !next.After(now) {
		k++
		next = base.AddDate(0, 0, k*intervalDays)
	}
	for k > 1 {
		prev := base.AddDate(0, 0, (k-1)*intervalDays)
		if !prev.After(now) {
			break
		}
		k--
		next = prev
	}

	return next
}

// NextActiveOccurrence is NextOccurrence constrained to the Period. The second return value is false
// if no occurrence lands in the Period within the search bound
func NextActiveOccurrence(base time.Time, intervalDays int, p *Period, now time.Time) (time.Time, bool) {
	next := NextOccurrence(base, intervalDays, now)
	for i := 0; i < maxActiveSearch; i++ {
		if IsActiveTime(p, next) {
			return next, true
		}
		next = NextOccurrence(base, intervalDays, next)
	}
	return time.Time{}, false
}

// Upcoming returns the next n occurrences after now
func Upcoming(base time.Time, intervalDays int, now time.Time, n int) []time.Time {
	result := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		now = NextOccurrence(base, intervalDays, now)
		result = append(result, now)
	}
	return result
}
