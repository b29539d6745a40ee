// Package availability renders an advisor's busy/open/client-meeting
// state into the 2D day-by-row grid the booking portal's calendar view
// renders, with vertically adjacent cells sharing the same rendered
// state collapsed into a single merged cell.
package availability

import (
	"sort"
	"time"

	"github.com/advisorflow/scheduling-agent/internal/timeutil"
)

// ClientMeetingState mirrors the spec's clientMeetingState enum; the
// zero value represents "null" (no client meeting in the cell).
type ClientMeetingState string

const (
	StateAccepted ClientMeetingState = "accepted"
	StatePending  ClientMeetingState = "pending"
	StateNone     ClientMeetingState = ""
)

// CellStatus is open or busy, never anything else.
type CellStatus string

const (
	StatusOpen CellStatus = "open"
	StatusBusy CellStatus = "busy"
)

// ClientMeeting is a calendar item where the requesting client is an
// attendee; Title is display-only and never persisted in any trace.
type ClientMeeting struct {
	Start                 time.Time          `json:"start"`
	End                   time.Time          `json:"end"`
	Title                 string             `json:"title"`
	AdvisorResponseStatus ClientMeetingState `json:"advisorResponseStatus"` // accepted or pending
}

func (m ClientMeeting) overlaps(start, end time.Time) bool {
	return m.Start.Before(end) && start.Before(m.End)
}

// Cell is a single day/row intersection of the grid.
type Cell struct {
	Status                CellStatus         `json:"status"`
	SlotStartUTC          time.Time          `json:"slotStartUtc"`
	SlotEndUTC            time.Time          `json:"slotEndUtc"`
	HasClientMeeting      bool               `json:"hasClientMeeting"`
	ClientMeetingState    ClientMeetingState `json:"clientMeetingState"`
	HasOverlap            bool               `json:"hasOverlap"`
	FitsRequestedDuration bool               `json:"fitsRequestedDuration"`
	Meetings              []ClientMeeting    `json:"meetings"`
}

// Row is one horizontal band of the grid, shared by every day column,
// expressed in minutes-since-midnight local to the host timezone.
type Row struct {
	StartMinute int `json:"startMinute"`
	EndMinute   int `json:"endMinute"`
}

// Grid is the full rendered calendar: Cells[dayIndex][rowIndex].
type Grid struct {
	Days                     []time.Time `json:"days"`
	Rows                     []Row       `json:"rows"`
	Cells                    [][]Cell    `json:"cells"`
	SlotMinutes              int         `json:"slotMinutes"`
	RequestedDurationMinutes int         `json:"requestedDurationMinutes"`
}

// BuildInput is the C4 contract's input bundle.
type BuildInput struct {
	BusyUTC                  []timeutil.Interval
	ClientMeetingsUTC        []ClientMeeting
	NonClientBusyUTC         []timeutil.Interval
	HostTimezone             string
	AdvisingWeekdays         map[time.Weekday]bool
	SearchStart              time.Time
	SearchEnd                time.Time
	WorkdayStartMinutes      int
	WorkdayEndMinutes        int
	SlotMinutes              int
	RequestedDurationMinutes int
	MaxCells                 int
}

// Build projects busy intervals, client meetings and non-client-busy
// intervals into the 2D grid. Rows are fixed-size slots of SlotMinutes
// spanning the workday window; days are every advising weekday between
// SearchStart and SearchEnd in HostTimezone, clamped so days×rows never
// exceeds MaxCells.
func Build(in BuildInput) Grid {
	loc := timeutil.LoadLocationOrUTC(in.HostTimezone)
	slotMinutes := in.SlotMinutes
	if slotMinutes <= 0 {
		slotMinutes = 30
	}

	rowCount := (in.WorkdayEndMinutes - in.WorkdayStartMinutes) / slotMinutes
	if rowCount <= 0 {
		return Grid{SlotMinutes: slotMinutes, RequestedDurationMinutes: in.RequestedDurationMinutes}
	}

	days := advisingDays(in.SearchStart, in.SearchEnd, loc, in.AdvisingWeekdays)
	if in.MaxCells > 0 && rowCount > 0 {
		maxDays := in.MaxCells / rowCount
		if maxDays < len(days) {
			days = days[:maxDays]
		}
	}

	rows := make([]Row, rowCount)
	for i := range rows {
		rows[i] = Row{StartMinute: in.WorkdayStartMinutes + i*slotMinutes, EndMinute: in.WorkdayStartMinutes + (i+1)*slotMinutes}
	}

	cells := make([][]Cell, len(days))
	for di, day := range days {
		cells[di] = make([]Cell, rowCount)
		for ri, row := range rows {
			slotStartLocal := time.Date(day.Year(), day.Month(), day.Day(), 0, row.StartMinute, 0, 0, loc)
			slotEndLocal := time.Date(day.Year(), day.Month(), day.Day(), 0, row.EndMinute, 0, 0, loc)
			slotStartUTC := slotStartLocal.UTC()
			slotEndUTC := slotEndLocal.UTC()

			busyInSlot := overlappingIntervals(in.BusyUTC, slotStartUTC, slotEndUTC)
			meetingsInSlot := overlappingMeetings(in.ClientMeetingsUTC, slotStartUTC, slotEndUTC)
			nonClientBusyInSlot := overlappingIntervals(in.NonClientBusyUTC, slotStartUTC, slotEndUTC)

			hasClientMeeting := len(meetingsInSlot) > 0
			status := StatusOpen
			if len(busyInSlot) > 0 || hasClientMeeting {
				status = StatusBusy
			}

			state := StateNone
			if hasClientMeeting {
				state = StatePending
				for _, m := range meetingsInSlot {
					if m.AdvisorResponseStatus == StateAccepted {
						state = StateAccepted
						break
					}
				}
			}

			hasOverlap := len(nonClientBusyInSlot) > 0 || busyWithoutClientMeeting(busyInSlot, meetingsInSlot, slotStartUTC, slotEndUTC)

			cells[di][ri] = Cell{
				Status:             status,
				SlotStartUTC:       slotStartUTC,
				SlotEndUTC:         slotEndUTC,
				HasClientMeeting:   hasClientMeeting,
				ClientMeetingState: state,
				HasOverlap:         hasOverlap,
				Meetings:           meetingsInSlot,
			}
		}
		markFittingRuns(cells[di], slotMinutes, in.RequestedDurationMinutes)
	}

	return Grid{Days: days, Rows: rows, Cells: cells, SlotMinutes: slotMinutes, RequestedDurationMinutes: in.RequestedDurationMinutes}
}

func advisingDays(start, end time.Time, loc *time.Location, advising map[time.Weekday]bool) []time.Time {
	var days []time.Time
	for _, d := range timeutil.DaysInRange(start, end, loc) {
		if len(advising) == 0 || advising[d.Weekday()] {
			days = append(days, d)
		}
	}
	return days
}

func overlappingIntervals(intervals []timeutil.Interval, start, end time.Time) []timeutil.Interval {
	var out []timeutil.Interval
	for _, iv := range intervals {
		if iv.Overlaps(timeutil.Interval{Start: start, End: end}) {
			out = append(out, iv)
		}
	}
	return out
}

func overlappingMeetings(meetings []ClientMeeting, start, end time.Time) []ClientMeeting {
	var out []ClientMeeting
	for _, m := range meetings {
		if m.overlaps(start, end) {
			out = append(out, m)
		}
	}
	return out
}

// busyWithoutClientMeeting implements the spec's sub-range test:
// build sorted breakpoints of cell+busy+meeting boundaries, then at
// the midpoint of every adjacent breakpoint pair check whether that
// instant is busy but not covered by any client meeting.
func busyWithoutClientMeeting(busy []timeutil.Interval, meetings []ClientMeeting, cellStart, cellEnd time.Time) bool {
	if len(busy) == 0 {
		return false
	}

	breakpointSet := map[int64]bool{cellStart.UnixNano(): true, cellEnd.UnixNano(): true}
	clip := func(t time.Time) int64 {
		if t.Before(cellStart) {
			t = cellStart
		}
		if t.After(cellEnd) {
			t = cellEnd
		}
		return t.UnixNano()
	}
	for _, b := range busy {
		breakpointSet[clip(b.Start)] = true
		breakpointSet[clip(b.End)] = true
	}
	for _, m := range meetings {
		breakpointSet[clip(m.Start)] = true
		breakpointSet[clip(m.End)] = true
	}

	breakpoints := make([]int64, 0, len(breakpointSet))
	for bp := range breakpointSet {
		breakpoints = append(breakpoints, bp)
	}
	sort.Slice(breakpoints, func(i, j int) bool { return breakpoints[i] < breakpoints[j] })

	for i := 0; i+1 < len(breakpoints); i++ {
		mid := time.Unix(0, (breakpoints[i]+breakpoints[i+1])/2)
		busyHere := false
		for _, b := range busy {
			if !mid.Before(b.Start) && mid.Before(b.End) {
				busyHere = true
				break
			}
		}
		if !busyHere {
			continue
		}
		coveredByMeeting := false
		for _, m := range meetings {
			if !mid.Before(m.Start) && mid.Before(m.End) {
				coveredByMeeting = true
				break
			}
		}
		if !coveredByMeeting {
			return true
		}
	}
	return false
}

// markFittingRuns sets FitsRequestedDuration on the first cell of
// every open run at least requestedDurationMinutes long. When the
// requested duration fits within a single slot, every open cell
// trivially qualifies.
func markFittingRuns(dayCells []Cell, slotMinutes, requestedDurationMinutes int) {
	if requestedDurationMinutes <= 0 {
		return
	}
	if requestedDurationMinutes <= slotMinutes {
		for i := range dayCells {
			if dayCells[i].Status == StatusOpen {
				dayCells[i].FitsRequestedDuration = true
			}
		}
		return
	}

	requiredRows := (requestedDurationMinutes + slotMinutes - 1) / slotMinutes
	for start := 0; start+requiredRows <= len(dayCells); start++ {
		allOpen := true
		for i := start; i < start+requiredRows; i++ {
			if dayCells[i].Status != StatusOpen {
				allOpen = false
				break
			}
		}
		if allOpen {
			dayCells[start].FitsRequestedDuration = true
		}
	}
}
