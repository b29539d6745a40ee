package intent

import (
	"regexp"
	"strconv"
	"time"

	"github.com/advisorflow/scheduling-agent/internal/timeutil"
)

const ordinalWeekAlt = `first|1st|second|2nd|third|3rd|fourth|4th|last`

var weekOfMonthRe = regexp.MustCompile(`(?i)\b(` + ordinalWeekAlt + `)\s+week\s+of\s+(` + monthNameAlt + `)\.?(?:\s+(\d{4}))?\b`)
var weekOfMonthReverseRe = regexp.MustCompile(`(?i)\b(` + monthNameAlt + `)\.?(?:\s+(\d{4}))?\s+(` + ordinalWeekAlt + `)\s+week\b`)

// monthOnlyRe requires a leading "in"/"during" to disambiguate a bare
// month reference ("in March", "during March 2026") from a month-day
// point descriptor ("March 3"), which the NL point layer already
// handles; RE2 has no lookahead, so the day-number case is excluded by
// post-match inspection of the captured trailing group instead.
var monthOnlyRe = regexp.MustCompile(`(?i)\b(?:in|during)\s+(` + monthNameAlt + `)\.?(?:\s+(\d{1,4}))?\b`)

func weekOfMonthRange(ref time.Time, loc *time.Location, month time.Month, year int, ordinal string) (time.Time, time.Time, bool) {
	yearSpecified := year != 0
	if !yearSpecified {
		year = ref.Year()
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	last := timeutil.LastDayOfMonth(first)
	if !yearSpecified && last.Before(dayOnly(ref)) {
		year++
		first = time.Date(year, month, 1, 0, 0, 0, 0, loc)
		last = timeutil.LastDayOfMonth(first)
	}

	switch lowerASCII(ordinal) {
	case "first", "1st":
		return first, clampDay(first, 7, last), true
	case "second", "2nd":
		return clampDay(first, 8, last), clampDay(first, 14, last), true
	case "third", "3rd":
		return clampDay(first, 15, last), clampDay(first, 21, last), true
	case "fourth", "4th":
		return clampDay(first, 22, last), clampDay(first, 28, last), true
	case "last":
		return last.AddDate(0, 0, -6), last, true
	default:
		return time.Time{}, time.Time{}, false
	}
}

func clampDay(first time.Time, dayOfMonth int, last time.Time) time.Time {
	d := first.AddDate(0, 0, dayOfMonth-1)
	if d.After(last) {
		return last
	}
	return d
}

func findWeekOfMonthSpan(body string, ref time.Time, loc *time.Location) (time.Time, time.Time, bool) {
	if m := weekOfMonthRe.FindStringSubmatch(body); m != nil {
		month := monthNames[lowerASCII(m[2])]
		year := 0
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}
		if start, end, ok := weekOfMonthRange(ref, loc, month, year, m[1]); ok {
			return start, end, true
		}
	}
	if m := weekOfMonthReverseRe.FindStringSubmatch(body); m != nil {
		month := monthNames[lowerASCII(m[1])]
		year := 0
		if m[2] != "" {
			year, _ = strconv.Atoi(m[2])
		}
		if start, end, ok := weekOfMonthRange(ref, loc, month, year, m[3]); ok {
			return start, end, true
		}
	}
	return time.Time{}, time.Time{}, false
}

// findMonthOnlySpan matches a bare "in <month> [year]" reference,
// rejecting candidates whose trailing numeral is 1-2 digits: those are
// a day number belonging to the month-day point descriptor, not a
// year, and this layer only runs after the point layer already found
// nothing.
func findMonthOnlySpan(body string, ref time.Time, loc *time.Location) (time.Time, time.Time, bool) {
	m := monthOnlyRe.FindStringSubmatch(body)
	if m == nil {
		return time.Time{}, time.Time{}, false
	}
	month := monthNames[lowerASCII(m[1])]
	yearSpecified := false
	year := ref.Year()
	if m[2] != "" {
		if len(m[2]) <= 2 {
			return time.Time{}, time.Time{}, false
		}
		year, _ = strconv.Atoi(m[2])
		yearSpecified = true
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	last := timeutil.LastDayOfMonth(first)
	if !yearSpecified && last.Before(dayOnly(ref)) {
		year++
		first = time.Date(year, month, 1, 0, 0, 0, 0, loc)
		last = timeutil.LastDayOfMonth(first)
	}
	return first, last, true
}

// extractBroadSpanWindows is the lowest-priority layer of the fallback
// ladder: a week-of-month or bare month reference expands into one
// window per calendar day in that span, each day bounded by whatever
// time range or daypart appears anywhere in the body, or the full day
// (00:00-24:00) if neither is present.
func extractBroadSpanWindows(body string, ref time.Time, loc *time.Location) []Window {
	start, end, ok := findWeekOfMonthSpan(body, ref, loc)
	if !ok {
		start, end, ok = findMonthOnlySpan(body, ref, loc)
	}
	if !ok {
		return nil
	}

	dayStart, dayEnd, hasBound := dailyBoundsFromBody(body)

	var windows []Window
	for _, day := range timeutil.DaysInRange(start, end, loc) {
		if hasBound {
			windows = append(windows, windowFromLocalRange(day, dayStart, dayEnd, loc))
			continue
		}
		windows = append(windows, windowFromLocalRange(day, timeOfDay{0, 0}, timeOfDay{0, 0}, loc))
	}
	return windows
}

func dailyBoundsFromBody(body string) (timeOfDay, timeOfDay, bool) {
	if start, end, hasMeridiem, found := matchTimeRange(body); found && hasMeridiem {
		return start, end, true
	}
	if dp, found := matchDaypart(body); found {
		return timeOfDay{dp.startHour, dp.startMin}, timeOfDay{dp.endHour, dp.endMin}, true
	}
	return timeOfDay{}, timeOfDay{}, false
}
