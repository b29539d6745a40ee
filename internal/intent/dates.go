package intent

import (
	"regexp"
	"strconv"
	"time"
)

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"sun":       time.Sunday,
	"monday":    time.Monday,
	"mon":       time.Monday,
	"tuesday":   time.Tuesday,
	"tue":       time.Tuesday,
	"tues":      time.Tuesday,
	"wednesday": time.Wednesday,
	"wed":       time.Wednesday,
	"thursday":  time.Thursday,
	"thu":       time.Thursday,
	"thurs":     time.Thursday,
	"friday":    time.Friday,
	"fri":       time.Friday,
	"saturday":  time.Saturday,
	"sat":       time.Saturday,
}

var weekdayRe = regexp.MustCompile(`(?i)\b(next|this)?\s*(?:week\s+)?(sunday|sun|monday|mon|tuesday|tue|tues|wednesday|wed|thursday|thu|thurs|friday|fri|saturday|sat)\b`)

// matchWeekdayDescriptor finds a bare or qualified weekday name such as
// "Wednesday", "next Wednesday" or "next week Wednesday" (the optional
// "week" token lets the qualifier attach to the word "week" rather than
// directly to the weekday name). qualifier is "" when absent; "this"
// and "" resolve identically (see resolveWeekday).
func matchWeekdayDescriptor(clause string) (wd time.Weekday, qualifier string, ok bool) {
	m := weekdayRe.FindStringSubmatch(clause)
	if m == nil {
		return 0, "", false
	}
	wd, ok = weekdayNames[lowerASCII(m[2])]
	if !ok {
		return 0, "", false
	}
	qualifier = lowerASCII(m[1])
	return wd, qualifier, true
}

var relativeDayRe = regexp.MustCompile(`(?i)\b(today|tomorrow)\b`)

func matchRelativeDay(clause string) (offsetDays int, ok bool) {
	m := relativeDayRe.FindStringSubmatch(clause)
	if m == nil {
		return 0, false
	}
	if lowerASCII(m[1]) == "tomorrow" {
		return 1, true
	}
	return 0, true
}

var ymdRe = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)

func matchYMD(clause string) (year, month, day int, ok bool) {
	m := ymdRe.FindStringSubmatch(clause)
	if m == nil {
		return 0, 0, 0, false
	}
	year, _ = strconv.Atoi(m[1])
	month, _ = strconv.Atoi(m[2])
	day, _ = strconv.Atoi(m[3])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return 0, 0, 0, false
	}
	return year, month, day, true
}

var slashDateRe = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`)

// matchSlashDate matches M/D or M/D/YY or M/D/YYYY. year is -1 when
// omitted, in which case the caller fills in the reference year.
func matchSlashDate(clause string) (month, day, year int, ok bool) {
	m := slashDateRe.FindStringSubmatch(clause)
	if m == nil {
		return 0, 0, -1, false
	}
	month, _ = strconv.Atoi(m[1])
	day, _ = strconv.Atoi(m[2])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return 0, 0, -1, false
	}
	year = -1
	if m[3] != "" {
		y, _ := strconv.Atoi(m[3])
		if len(m[3]) == 2 {
			y += 2000
		}
		year = y
	}
	return month, day, year, true
}

var monthNames = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

const monthNameAlt = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:t|tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`

var monthDayRe = regexp.MustCompile(`(?i)\b(` + monthNameAlt + `)\.?\s+(\d{1,2})(?:,?\s*(\d{4}))?\b`)

// matchMonthDayDescriptor matches "Mar 3", "March 3rd" style text (the
// ordinal suffix, if any, must already have been stripped by the
// caller's clause normalization) plus an optional ", YYYY".
func matchMonthDayDescriptor(clause string) (month time.Month, day, year int, ok bool) {
	m := monthDayRe.FindStringSubmatch(clause)
	if m == nil {
		return 0, 0, -1, false
	}
	month, ok = monthNames[lowerASCII(m[1])]
	if !ok {
		return 0, 0, -1, false
	}
	day, _ = strconv.Atoi(m[2])
	if day < 1 || day > 31 {
		return 0, 0, -1, false
	}
	year = -1
	if m[3] != "" {
		year, _ = strconv.Atoi(m[3])
	}
	return month, day, year, true
}

func resolveWeekday(ref time.Time, wd time.Weekday, qualifier string) time.Time {
	base := nextWeekdayStrict(ref, wd)
	if qualifier == "next" {
		base = base.AddDate(0, 0, 7)
	}
	return base
}

func nextWeekdayStrict(ref time.Time, wd time.Weekday) time.Time {
	start := dayOnly(ref)
	delta := (int(wd) - int(start.Weekday()) + 7) % 7
	if delta == 0 {
		delta = 7
	}
	return start.AddDate(0, 0, delta)
}

func dayOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// resolveDayDescriptor tries each descriptor kind in priority order and
// returns the local-midnight date of the first match, or ok=false if
// the clause names no day at all.
func resolveDayDescriptor(clause string, ref time.Time, loc *time.Location) (time.Time, bool) {
	if wd, qualifier, found := matchWeekdayDescriptor(clause); found {
		return resolveWeekday(ref, wd, qualifier), true
	}
	if offset, found := matchRelativeDay(clause); found {
		return dayOnly(ref).AddDate(0, 0, offset), true
	}
	if y, m, d, found := matchYMD(clause); found {
		return time.Date(y, time.Month(m), d, 0, 0, 0, 0, loc), true
	}
	if m, d, y, found := matchSlashDate(clause); found {
		noYear := y == -1
		if noYear {
			y = ref.Year()
		}
		date := time.Date(y, time.Month(m), d, 0, 0, 0, 0, loc)
		if noYear {
			date = rollForwardIfPast(date, dayOnly(ref))
		}
		return date, true
	}
	if m, d, y, found := matchMonthDayDescriptor(clause); found {
		noYear := y == -1
		if noYear {
			y = ref.Year()
		}
		date := time.Date(y, m, d, 0, 0, 0, 0, loc)
		if noYear {
			date = rollForwardIfPast(date, dayOnly(ref))
		}
		return date, true
	}
	return time.Time{}, false
}

// rollForwardIfPast implements the §4.1 year-inference rule for
// descriptors that omit an explicit year: a date resolved against the
// current year that falls before the reference's start-of-day is
// assumed to mean next year instead.
func rollForwardIfPast(date, refStartOfDay time.Time) time.Time {
	if date.Before(refStartOfDay) {
		return date.AddDate(1, 0, 0)
	}
	return date
}
