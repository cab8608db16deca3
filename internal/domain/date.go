package domain

import "time"

// DateLayout is the wire format for calendar dates in requests.
const DateLayout = "2006-01-02"

// dateStampLayout matches JavaScript's Date#toDateString output, which the
// original API clients expect in responses.
const dateStampLayout = "Mon Jan 02 2006"

// ParseDate interprets an ISO-8601 calendar date string.
func ParseDate(value string) (time.Time, error) {
	return time.Parse(DateLayout, value)
}

// FormatDate renders a calendar date as a human-readable stamp such as
// "Sun Jan 01 2023".
func FormatDate(date time.Time) string {
	return date.UTC().Format(dateStampLayout)
}

// Today returns the current calendar date in UTC with the time component
// stripped.
func Today() time.Time {
	return Midnight(time.Now().UTC())
}

// Midnight truncates a timestamp to its UTC calendar date.
func Midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
