package utils

import "time"

// Clock returns the current time. Stores and services take one so tests can
// pin timestamps.
type Clock func() time.Time

// UTCNow is the default Clock.
func UTCNow() time.Time {
	return time.Now().UTC()
}

// LatestOf returns the latest of the given times.
func LatestOf(t time.Time, others ...time.Time) time.Time {
	for _, o := range others {
		if o.After(t) {
			t = o
		}
	}
	return t
}

// sortableLayout is RFC3339 with a fixed nine digit fraction, so formatted
// UTC times order the same as strings and as instants.
const sortableLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatSortable formats t in UTC using a fixed-width layout
func FormatSortable(t time.Time) string {
	return t.UTC().Format(sortableLayout)
}
