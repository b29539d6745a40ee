// Package timeutil provides the timezone-aware time primitives shared by
// the intent extractor, slot generator and availability grid: interval
// overlap tests, ISO-8601 parsing, and weekday/week-of-month arithmetic
// performed in local wall-clock time rather than UTC offsets.
package timeutil

import (
	"fmt"
	"time"

	_ "time/tzdata"
)

// Interval is a UTC time range, half-open on the right: [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether i and o share any instant, using the
// half-open convention (touching endpoints do not overlap).
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Contains reports whether o is fully inside i.
func (i Interval) Contains(o Interval) bool {
	return !o.Start.Before(i.Start) && !o.End.After(i.End)
}

// Valid reports whether End is strictly after Start.
func (i Interval) Valid() bool {
	return i.End.After(i.Start)
}

// ParseISO parses an ISO-8601 datetime with an explicit offset (Z or
// ±HH:MM). It never returns a zero time on success; both RFC3339 and
// RFC3339Nano layouts are tried since client-supplied text is not
// guaranteed to omit fractional seconds.
func ParseISO(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("timeutil: %q is not a valid ISO-8601 datetime with offset", s)
}

// FormatISO renders t in RFC3339 with a Z suffix when t is UTC.
func FormatISO(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

// LoadLocationOrUTC resolves name to a *time.Location, falling back to
// UTC for empty or unknown IANA names rather than erroring — callers in
// this module treat an invalid timezone as "no timezone asserted", not
// as a hard failure.
func LoadLocationOrUTC(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ValidIANA reports whether name resolves to a real IANA timezone.
func ValidIANA(name string) bool {
	if name == "" {
		return false
	}
	_, err := time.LoadLocation(name)
	return err == nil
}

// StartOfDay truncates t to local midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// NextWeekday returns the next STRICTLY FUTURE date (at local midnight)
// whose weekday is wd — if ref already sits on wd, it rolls forward a
// full 7 days rather than returning ref itself. package intent's "next
// <weekday>" qualifier adds a further 7 days on top of this result,
// which yields a 14-day jump when ref is already on wd; that is
// documented observed behavior (see spec Open Question on the "next"
// qualifier), not a bug, and is preserved rather than special-cased.
func NextWeekday(ref time.Time, wd time.Weekday) time.Time {
	start := StartOfDay(ref)
	delta := (int(wd) - int(start.Weekday()) + 7) % 7
	if delta == 0 {
		delta = 7
	}
	return start.AddDate(0, 0, delta)
}

// AddMonthsClampToFirst returns the first day of the month that is n
// months after ref's month, in ref's location.
func AddMonthsClampToFirst(ref time.Time, n int) time.Time {
	y, m, _ := ref.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, ref.Location())
	return first.AddDate(0, n, 0)
}

// LastDayOfMonth returns the last calendar day of the month containing t.
func LastDayOfMonth(t time.Time) time.Time {
	firstNext := time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
	return firstNext.AddDate(0, 0, -1)
}

// DaysInRange returns the local-midnight instants of every calendar day
// from start through end inclusive (by date, not by 24h stride, so DST
// transitions don't skip or duplicate a day).
func DaysInRange(start, end time.Time, loc *time.Location) []time.Time {
	if end.Before(start) {
		return nil
	}
	cur := StartOfDay(start.In(loc))
	last := StartOfDay(end.In(loc))
	var days []time.Time
	for !cur.After(last) {
		days = append(days, cur)
		cur = cur.AddDate(0, 0, 1)
	}
	return days
}

// WeekdayAbbrev returns the 3-letter abbreviation used throughout this
// module for advising-weekday sets ("Mon", "Tue", ...).
func WeekdayAbbrev(wd time.Weekday) string {
	return wd.String()[:3]
}
