package intent

import (
	"regexp"
	"strconv"
)

var inPersonRe = regexp.MustCompile(`(?i)in-person|in person|onsite`)

func extractMeetingType(text string) MeetingType {
	if inPersonRe.MatchString(text) {
		return MeetingInPerson
	}
	return MeetingOnline
}

var durationRe = regexp.MustCompile(`(?i)\b(\d{1,3})\s*(minutes?|mins?|hours?|hrs?)\b`)

// extractDuration implements step 4: the first "<N> <unit>" match in
// combined subject+body text, hours/hrs scaled to minutes. N is bounded
// to 1-999 by the regex's digit-count cap.
func extractDuration(text string, defaultMinutes int) int {
	m := durationRe.FindStringSubmatch(text)
	if m == nil {
		return defaultMinutes
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 || n > 999 {
		return defaultMinutes
	}
	unit := m[2]
	if len(unit) > 0 && (unit[0] == 'h' || unit[0] == 'H') {
		n *= 60
	}
	if n > MaxDurationMinutes {
		return defaultMinutes
	}
	return n
}
