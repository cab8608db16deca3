// Package domain defines the business logic for the exercise tracker.
package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrUserNotFound is returned when a user cannot be located.
var ErrUserNotFound = errors.New("user not found")

// ValidationError reports missing or malformed required input. It maps to a
// 400 response at the API boundary.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Repository captures persistence operations for users and exercises.
type Repository interface {
	CreateUser(ctx context.Context, user User) error
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	CreateExercise(ctx context.Context, exercise Exercise) error
	ListExercises(ctx context.Context, userID string, filter LogFilter) ([]Exercise, error)
}

// Service orchestrates exercise tracker workflows.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateUser registers a new user with a generated identifier.
func (s *Service) CreateUser(ctx context.Context, username string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, &ValidationError{Field: "username", Reason: "is required"}
	}

	user := User{
		ID:        uuid.NewString(),
		Username:  username,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers returns all registered users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// AddExerciseInput captures the payload from the API layer. A zero Date means
// the exercise is logged against the current calendar date.
type AddExerciseInput struct {
	UserID      string
	Description string
	DurationMin int
	Date        time.Time
}

// AddExercise logs an exercise against an existing user. The user must exist
// at the time of creation; the returned User carries the username echoed in
// API responses.
func (s *Service) AddExercise(ctx context.Context, input AddExerciseInput) (*Exercise, *User, error) {
	if strings.TrimSpace(input.Description) == "" {
		return nil, nil, &ValidationError{Field: "description", Reason: "is required"}
	}
	if input.DurationMin <= 0 {
		return nil, nil, &ValidationError{Field: "duration", Reason: "must be a positive number of minutes"}
	}

	user, err := s.repo.GetUser(ctx, input.UserID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, ErrUserNotFound
	}

	date := input.Date
	if date.IsZero() {
		date = Today()
	}

	exercise := Exercise{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		Description: strings.TrimSpace(input.Description),
		DurationMin: input.DurationMin,
		Date:        Midnight(date),
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.CreateExercise(ctx, exercise); err != nil {
		return nil, nil, err
	}
	return &exercise, user, nil
}

// GetLogs returns a user's exercise log narrowed by the filter, ordered by
// ascending date with creation order breaking ties.
func (s *Service) GetLogs(ctx context.Context, userID string, filter LogFilter) (*User, []Exercise, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, ErrUserNotFound
	}

	exercises, err := s.repo.ListExercises(ctx, user.ID, filter)
	if err != nil {
		return nil, nil, err
	}
	return user, exercises, nil
}
