package intent

import (
	"regexp"

	"github.com/advisorflow/scheduling-agent/internal/timeutil"
)

var isoDatetimeRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}(?::\d{2})?(?:\.\d+)?(?:Z|[+-]\d{2}:\d{2})`)

// extractISOWindows implements the highest-priority layer of the
// fallback ladder: explicit ISO-8601 datetimes with an offset, taken
// pairwise in the order they appear (start, end, start, end, ...). A
// pair where end does not strictly follow start is dropped rather than
// aborting the whole extraction — a single malformed pair shouldn't
// sink windows stated correctly elsewhere in the email.
func extractISOWindows(text string) []Window {
	matches := isoDatetimeRe.FindAllString(text, -1)
	var windows []Window
	for i := 0; i+1 < len(matches); i += 2 {
		startStr, endStr := matches[i], matches[i+1]
		start, err := timeutil.ParseISO(startStr)
		if err != nil {
			continue
		}
		end, err := timeutil.ParseISO(endStr)
		if err != nil {
			continue
		}
		if !end.After(start) {
			continue
		}
		windows = append(windows, Window{
			StartISO: timeutil.FormatISO(start),
			EndISO:   timeutil.FormatISO(end),
		})
	}
	return windows
}
