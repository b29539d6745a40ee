package availability

// MergeSpan is one rendered <td rowspan=...> cell: a run of vertically
// adjacent cells in a single day column that share identical rendered
// state.
type MergeSpan struct {
	DayIndex              int                `json:"dayIndex"`
	StartRow              int                `json:"startRow"`
	RowSpan               int                `json:"rowSpan"`
	Status                CellStatus         `json:"status"`
	ClientMeetingState    ClientMeetingState `json:"clientMeetingState"`
	HasOverlap            bool               `json:"hasOverlap"`
	FitsRequestedDuration bool               `json:"fitsRequestedDuration"`
	Meeting               *ClientMeeting     `json:"meeting,omitempty"` // set only when exactly one meeting occupies the span
}

// mergeKey is the composite identity two adjacent cells must share to
// collapse into one rendered span. Only cells with zero or exactly one
// client meeting can merge at all; a cell with two or more meetings is
// always its own span.
type mergeKey struct {
	status        CellStatus
	meetingState  ClientMeetingState
	hasOverlap    bool
	meetingTitle  string
	meetingStatus ClientMeetingState
	mergeable     bool
}

func keyFor(c Cell) mergeKey {
	k := mergeKey{status: c.Status, meetingState: c.ClientMeetingState, hasOverlap: c.HasOverlap, mergeable: len(c.Meetings) <= 1}
	if len(c.Meetings) == 1 {
		k.meetingTitle = c.Meetings[0].Title
		k.meetingStatus = c.Meetings[0].AdvisorResponseStatus
	}
	return k
}

// MergeSpans collapses each day column's cells into the minimal set of
// vertically-merged spans, in row order. The sum of RowSpan across the
// spans of a single day always equals len(grid.Rows).
func MergeSpans(grid Grid) []MergeSpan {
	var spans []MergeSpan
	for di, dayCells := range grid.Cells {
		row := 0
		for row < len(dayCells) {
			cur := dayCells[row]
			curKey := keyFor(cur)

			span := MergeSpan{
				DayIndex:              di,
				StartRow:              row,
				RowSpan:               1,
				Status:                cur.Status,
				ClientMeetingState:    cur.ClientMeetingState,
				HasOverlap:            cur.HasOverlap,
				FitsRequestedDuration: cur.FitsRequestedDuration,
			}
			if len(cur.Meetings) == 1 {
				m := cur.Meetings[0]
				span.Meeting = &m
			}

			next := row + 1
			if curKey.mergeable {
				for next < len(dayCells) {
					nextKey := keyFor(dayCells[next])
					if !nextKey.mergeable || nextKey != curKey {
						break
					}
					span.RowSpan++
					next++
				}
			}

			spans = append(spans, span)
			row = next
		}
	}
	return spans
}
