package domain

import "time"

// User is a tracked account that exercises are logged against.
type User struct {
	ID        string
	Username  string
	CreatedAt time.Time
}

// Exercise is a single logged workout entry. Records are append-only: an
// exercise is never updated or deleted after creation.
type Exercise struct {
	ID          string
	UserID      string
	Description string
	DurationMin int
	Date        time.Time // calendar date, midnight UTC
	CreatedAt   time.Time
}

// LogFilter narrows an exercise log query. From and To are inclusive calendar
// date bounds; a nil bound means unbounded. Limit caps the number of returned
// entries, with zero or negative meaning no limit.
type LogFilter struct {
	From  *time.Time
	To    *time.Time
	Limit int
}
