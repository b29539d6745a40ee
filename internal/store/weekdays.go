package store

import "time"

// weekdaysToInts/intsToWeekdays convert between time.Weekday and the
// plain int array lib/pq's Array adapter knows how to bind to a
// Postgres smallint[] column.
func weekdaysToInts(days []time.Weekday) []int64 {
	out := make([]int64, len(days))
	for i, d := range days {
		out[i] = int64(d)
	}
	return out
}

func intsToWeekdays(ints []int64) []time.Weekday {
	out := make([]time.Weekday, len(ints))
	for i, n := range ints {
		out[i] = time.Weekday(n)
	}
	return out
}
