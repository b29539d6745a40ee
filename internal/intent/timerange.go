package intent

import (
	"regexp"
	"strconv"
)

var timeRangeRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*([ap]\.?m\.?)?\s*(?:-|to|and)\s*(\d{1,2})(?::(\d{2}))?\s*([ap]\.?m\.?)?\b`)

// timeOfDay is an hour/minute pair in [0,24)x[0,60) local wall-clock.
type timeOfDay struct {
	hour int
	min  int
}

func (t timeOfDay) minutes() int { return t.hour*60 + t.min }

// matchTimeRange finds a "<t1> (-|to|and) <t2>" clause, such as "2pm to
// 4pm", "2:30-4", or "between 9 and noon" (the daypart form is handled
// separately by matchDaypart). hasMeridiem reports whether at least one
// side carried an explicit am/pm marker; callers reject clauses where
// neither a meridiem nor a daypart was present, since "2 and 4" alone
// is too ambiguous to resolve.
func matchTimeRange(clause string) (start, end timeOfDay, hasMeridiem bool, ok bool) {
	m := timeRangeRe.FindStringSubmatch(clause)
	if m == nil {
		return timeOfDay{}, timeOfDay{}, false, false
	}

	startHour, _ := strconv.Atoi(m[1])
	startMin := parseMinuteGroup(m[2])
	startMer := normalizeMeridiem(m[3])

	endHour, _ := strconv.Atoi(m[4])
	endMin := parseMinuteGroup(m[5])
	endMer := normalizeMeridiem(m[6])

	if startHour > 23 || endHour > 23 || startMin > 59 || endMin > 59 {
		return timeOfDay{}, timeOfDay{}, false, false
	}

	hasMeridiem = startMer != "" || endMer != ""

	startHour = apply12Hour(startHour, startMer)
	endHour = apply12Hour(endHour, endMer)

	start = timeOfDay{hour: startHour, min: startMin}
	end = timeOfDay{hour: endHour, min: endMin}

	// Roll the end forward past the start: first try +12h (covers the
	// common "9 to 5" case written without meridiem on either side),
	// then +24h if that still doesn't clear it.
	if end.minutes() <= start.minutes() {
		rolled := end.minutes() + 12*60
		if rolled > start.minutes() {
			end = timeOfDay{hour: (rolled / 60) % 24, min: rolled % 60}
		} else {
			rolled += 12 * 60
			end = timeOfDay{hour: (rolled / 60) % 24, min: rolled % 60}
		}
	}

	return start, end, hasMeridiem, true
}

func parseMinuteGroup(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func normalizeMeridiem(s string) string {
	if s == "" {
		return ""
	}
	switch lowerASCII(stripDots(s)) {
	case "am":
		return "am"
	case "pm":
		return "pm"
	default:
		return ""
	}
}

func stripDots(s string) string {
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '.' {
			b = append(b, s[i])
		}
	}
	return string(b)
}

func apply12Hour(hour int, meridiem string) int {
	switch meridiem {
	case "am":
		if hour == 12 {
			return 0
		}
		return hour
	case "pm":
		if hour != 12 {
			return hour + 12
		}
		return hour
	default:
		return hour
	}
}
