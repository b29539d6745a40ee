package intent

import (
	"regexp"
	"time"

	"github.com/advisorflow/scheduling-agent/internal/timeutil"
)

var clauseSplitRe = regexp.MustCompile(`[\n.;]+`)

// extractNLPointWindows implements the natural-language "point" layer:
// split the body into clauses, and for each clause that names both a
// day and a time (an explicit range with a meridiem, or a named
// daypart), emit one window. A clause naming a day but no resolvable
// time is silently dropped — a bare "Wednesday" with no time-of-day
// qualifier carries no window information.
func extractNLPointWindows(body string, ref time.Time, loc *time.Location) []Window {
	clauses := clauseSplitRe.Split(body, -1)
	var windows []Window
	for _, clause := range clauses {
		day, ok := resolveDayDescriptor(clause, ref, loc)
		if !ok {
			continue
		}

		if start, end, hasMeridiem, found := matchTimeRange(clause); found && hasMeridiem {
			windows = append(windows, windowFromLocalRange(day, start, end, loc))
			continue
		}

		if dp, found := matchDaypart(clause); found {
			start := timeOfDay{hour: dp.startHour, min: dp.startMin}
			end := timeOfDay{hour: dp.endHour, min: dp.endMin}
			windows = append(windows, windowFromLocalRange(day, start, end, loc))
			continue
		}
	}
	return windows
}

func windowFromLocalRange(day time.Time, start, end timeOfDay, loc *time.Location) Window {
	y, m, d := day.Date()
	startLocal := time.Date(y, m, d, start.hour, start.min, 0, 0, loc)
	endLocal := time.Date(y, m, d, end.hour, end.min, 0, 0, loc)
	if !endLocal.After(startLocal) {
		endLocal = endLocal.AddDate(0, 0, 1)
	}
	return Window{
		StartISO: timeutil.FormatISO(startLocal),
		EndISO:   timeutil.FormatISO(endLocal),
	}
}
