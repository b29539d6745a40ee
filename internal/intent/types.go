// Package intent turns the unstructured subject and body of an inbound
// client email into a structured scheduling intent: duration, meeting
// type, requested time windows and client timezone. Extract is a pure,
// deterministic function with no I/O — it never errors and never
// panics on malformed input, returning whatever it could parse.
package intent

import "sort"

// MeetingType is the channel the client asked for.
type MeetingType string

const (
	MeetingOnline   MeetingType = "online"
	MeetingInPerson MeetingType = "in_person"
)

// Window is a client-stated candidate time range, in ISO-8601 with
// offset, eligible for slot placement by package slots.
type Window struct {
	StartISO string
	EndISO   string
}

// Record is the immutable result of Extract.
type Record struct {
	ClientEmail      string
	MeetingType      MeetingType
	DurationMinutes  int
	RequestedWindows []Window
	ClientTimezone   *string
}

// MaxDurationMinutes bounds the duration the parser will ever emit;
// the orchestrator separately enforces its own configured ceiling.
const MaxDurationMinutes = 999

const defaultWorkingTimezone = "UTC"

func dedupeAndSortWindows(windows []Window) []Window {
	seen := make(map[Window]bool, len(windows))
	out := make([]Window, 0, len(windows))
	for _, w := range windows {
		if seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartISO < out[j].StartISO })
	return out
}
