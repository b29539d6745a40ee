package intent

import "regexp"

// dayparts maps a named time-of-day window to its default local hour
// range [start, end). Multi-word dayparts are matched longest-first so
// "late morning" doesn't get swallowed by "morning".
type daypartRange struct {
	name       string
	startHour  int
	startMin   int
	endHour    int
	endMin     int
	morningLed bool // true => default meridiem is AM, else PM
}

var dayparts = []daypartRange{
	{"early morning", 5, 0, 8, 0, true},
	{"late morning", 10, 0, 12, 0, true},
	{"morning", 8, 0, 12, 0, true},
	{"late afternoon", 15, 0, 17, 0, false},
	{"afternoon", 12, 0, 17, 0, false},
	{"lunch", 12, 0, 13, 0, false},
	{"noon", 12, 0, 13, 0, false},
	{"evening", 17, 0, 21, 0, false},
	{"night", 19, 0, 23, 0, false},
}

var daypartRe *regexp.Regexp

func init() {
	// Built from the table above so the longest names are tried first.
	pattern := ""
	for i, d := range dayparts {
		if i > 0 {
			pattern += "|"
		}
		pattern += regexp.QuoteMeta(d.name)
	}
	daypartRe = regexp.MustCompile(`(?i)\b(` + pattern + `)\b`)
}

func matchDaypart(clause string) (daypartRange, bool) {
	m := daypartRe.FindStringSubmatch(clause)
	if m == nil {
		return daypartRange{}, false
	}
	lower := lowerASCII(m[1])
	for _, d := range dayparts {
		if d.name == lower {
			return d, true
		}
	}
	return daypartRange{}, false
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}
