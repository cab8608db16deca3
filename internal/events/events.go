// Package events defines the payloads published to the event stream.
package events

import "time"

// UserCreated is emitted when a new user is registered.
type UserCreated struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// ExerciseLogged is emitted when an exercise is recorded against a user.
type ExerciseLogged struct {
	ExerciseID  string    `json:"exercise_id"`
	UserID      string    `json:"user_id"`
	Description string    `json:"description"`
	DurationMin int       `json:"duration_min"`
	Date        string    `json:"date"` // ISO calendar date
	CreatedAt   time.Time `json:"created_at"`
}
