// Package slots enumerates candidate meeting slots deterministically
// from a host's busy time, advising weekdays, workday bounds, and the
// client's requested windows. Given the same inputs it always returns
// the same ordered output — no randomness, no wall-clock reads.
package slots

import (
	"sort"
	"time"

	"github.com/advisorflow/scheduling-agent/internal/timeutil"
)

// Slot is a single candidate meeting time, in UTC.
type Slot struct {
	Start time.Time
	End   time.Time
}

// Input bundles every constraint the generator needs. All times are
// UTC; HostTimezone governs which local calendar day a given instant
// belongs to and where the workday boundary falls.
type Input struct {
	BusyUTC             []timeutil.Interval
	RequestedWindowsUTC []timeutil.Interval
	HostTimezone        string
	AdvisingWeekdays    map[time.Weekday]bool
	SearchStart         time.Time
	SearchEnd           time.Time
	WorkdayStartMinutes int
	WorkdayEndMinutes   int
	DurationMinutes     int
	MaxSuggestions      int
}

// Generate enumerates slots in chronological order, stopping once
// MaxSuggestions have been found (MaxSuggestions <= 0 means unbounded).
func Generate(in Input) []Slot {
	if in.DurationMinutes <= 0 || !in.SearchEnd.After(in.SearchStart) {
		return nil
	}

	loc := timeutil.LoadLocationOrUTC(in.HostTimezone)
	duration := time.Duration(in.DurationMinutes) * time.Minute
	// Candidate starts stride by the requested duration itself, so
	// back-to-back suggestions never overlap.
	increment := duration

	busy := mergeIntervals(in.BusyUTC)
	days := timeutil.DaysInRange(in.SearchStart.In(loc), in.SearchEnd.In(loc), loc)

	var slots []Slot
	for _, day := range days {
		if in.AdvisingWeekdays != nil && !in.AdvisingWeekdays[day.Weekday()] {
			continue
		}

		workStart := day.Add(time.Duration(in.WorkdayStartMinutes) * time.Minute)
		workEnd := day.Add(time.Duration(in.WorkdayEndMinutes) * time.Minute)
		if !workEnd.After(workStart) {
			continue
		}

		for slotStart := workStart; !slotStart.Add(duration).After(workEnd); slotStart = slotStart.Add(increment) {
			slotEnd := slotStart.Add(duration)
			candidate := timeutil.Interval{Start: slotStart.UTC(), End: slotEnd.UTC()}

			if candidate.Start.Before(in.SearchStart) || candidate.End.After(in.SearchEnd) {
				continue
			}
			if overlapsAny(candidate, busy) {
				continue
			}
			if len(in.RequestedWindowsUTC) > 0 && !containedInAny(candidate, in.RequestedWindowsUTC) {
				continue
			}

			slots = append(slots, Slot{Start: candidate.Start, End: candidate.End})
			if in.MaxSuggestions > 0 && len(slots) >= in.MaxSuggestions {
				return slots
			}
		}
	}

	return slots
}

func overlapsAny(candidate timeutil.Interval, busy []timeutil.Interval) bool {
	for _, b := range busy {
		if candidate.Overlaps(b) {
			return true
		}
	}
	return false
}

func containedInAny(candidate timeutil.Interval, windows []timeutil.Interval) bool {
	for _, w := range windows {
		if w.Contains(candidate) {
			return true
		}
	}
	return false
}

// mergeIntervals sorts and coalesces overlapping or touching intervals,
// mirroring the teacher's mergeTimeSlots.
func mergeIntervals(intervals []timeutil.Interval) []timeutil.Interval {
	if len(intervals) == 0 {
		return nil
	}

	sorted := make([]timeutil.Interval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	merged := []timeutil.Interval{sorted[0]}
	for _, cur := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !cur.Start.After(last.End) {
			if cur.End.After(last.End) {
				last.End = cur.End
			}
			continue
		}
		merged = append(merged, cur)
	}
	return merged
}
