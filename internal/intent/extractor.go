package intent

import (
	"strings"

	"github.com/advisorflow/scheduling-agent/internal/timeutil"
)

// Extract implements the §4.1 pipeline: client timezone, meeting type
// and duration are each extracted independently from the combined
// subject+body text; requested windows run through a three-layer
// fallback ladder (ISO datetimes, then NL clause-level day+time, then
// week-of-month/month-only spans) and the first layer to produce any
// window wins outright — later layers are never consulted once an
// earlier one succeeds, even partially.
//
// referenceNowISO anchors "today"/"tomorrow"/"next <weekday>" and must
// itself be a valid ISO-8601 datetime with offset; if it isn't, Extract
// falls back to treating the email as having no resolvable date
// context and returns no requested windows from the NL or span layers
// (the ISO layer is unaffected, since it never depends on referenceNow).
func Extract(subject, body, fromEmail, referenceNowISO, fallbackTimezone string, defaultDurationMinutes int) Record {
	combined := subject + "\n" + body

	clientTz := extractClientTimezone(combined)
	tzName := workingTimezone(clientTz, fallbackTimezone)
	loc := timeutil.LoadLocationOrUTC(tzName)

	meetingType := extractMeetingType(combined)
	duration := extractDuration(combined, defaultDurationMinutes)

	windows := extractISOWindows(combined)

	if len(windows) == 0 {
		if ref, err := timeutil.ParseISO(referenceNowISO); err == nil {
			refLocal := ref.In(loc)
			windows = extractNLPointWindows(body, refLocal, loc)
			if len(windows) == 0 {
				windows = extractBroadSpanWindows(body, refLocal, loc)
			}
		}
	}

	return Record{
		ClientEmail:      strings.ToLower(strings.TrimSpace(fromEmail)),
		MeetingType:      meetingType,
		DurationMinutes:  duration,
		RequestedWindows: dedupeAndSortWindows(windows),
		ClientTimezone:   clientTz,
	}
}
