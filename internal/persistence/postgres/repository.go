// Package postgres provides pgx-backed persistence for users and exercises.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/exercisetracker/internal/domain"
	"example.com/exercisetracker/internal/events"
	"example.com/exercisetracker/internal/observability"
)

// Repository provides Postgres-backed persistence for users, exercises and
// outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateUser persists the user and records a user.created outbox event inside
// a single transaction.
func (r *Repository) CreateUser(ctx context.Context, user domain.User) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	const insertUser = `INSERT INTO users (user_id, username, created_at) VALUES ($1,$2,$3)`
	if _, err = tx.Exec(ctx, insertUser, user.ID, user.Username, user.CreatedAt); err != nil {
		return err
	}

	if err = insertOutbox(ctx, tx, "user", user.ID, "user.created", events.UserCreated{
		UserID:    user.ID,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
	}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordUserCreated()
	return nil
}

// ListUsers returns every registered user ordered by creation time.
func (r *Repository) ListUsers(ctx context.Context) ([]domain.User, error) {
	const query = `SELECT user_id, username, created_at FROM users ORDER BY created_at, user_id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.ID, &user.Username, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// GetUser retrieves a user by ID. A malformed or unknown identifier yields
// (nil, nil).
func (r *Repository) GetUser(ctx context.Context, id string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	const query = `SELECT user_id, username, created_at FROM users WHERE user_id=$1`

	var user domain.User
	err := r.pool.QueryRow(ctx, query, id).Scan(&user.ID, &user.Username, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateExercise persists the exercise and records an exercise.logged outbox
// event inside a single transaction.
func (r *Repository) CreateExercise(ctx context.Context, exercise domain.Exercise) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	const insertExercise = `INSERT INTO exercises (exercise_id, user_id, description, duration_min, exercise_date, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)`
	if _, err = tx.Exec(ctx, insertExercise,
		exercise.ID,
		exercise.UserID,
		exercise.Description,
		exercise.DurationMin,
		exercise.Date,
		exercise.CreatedAt,
	); err != nil {
		return err
	}

	if err = insertOutbox(ctx, tx, "exercise", exercise.ID, "exercise.logged", events.ExerciseLogged{
		ExerciseID:  exercise.ID,
		UserID:      exercise.UserID,
		Description: exercise.Description,
		DurationMin: exercise.DurationMin,
		Date:        exercise.Date.Format(domain.DateLayout),
		CreatedAt:   exercise.CreatedAt,
	}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordExerciseLogged(exercise.CreatedAt)
	return nil
}

// ListExercises returns a user's exercises narrowed by the filter, ordered by
// ascending date with creation order breaking ties. A non-positive limit
// returns all matches.
func (r *Repository) ListExercises(ctx context.Context, userID string, filter domain.LogFilter) ([]domain.Exercise, error) {
	query := `SELECT exercise_id, user_id, description, duration_min, exercise_date, created_at
        FROM exercises WHERE user_id=$1`
	args := []interface{}{userID}

	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(" AND exercise_date >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(" AND exercise_date <= $%d", len(args))
	}

	query += " ORDER BY exercise_date, created_at, exercise_id"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	exercises := make([]domain.Exercise, 0)
	for rows.Next() {
		var exercise domain.Exercise
		if err := rows.Scan(&exercise.ID, &exercise.UserID, &exercise.Description, &exercise.DurationMin, &exercise.Date, &exercise.CreatedAt); err != nil {
			return nil, err
		}
		exercise.Date = domain.Midnight(exercise.Date)
		exercises = append(exercises, exercise)
	}
	return exercises, rows.Err()
}

func insertOutbox(ctx context.Context, tx pgx.Tx, aggregateType, aggregateID, eventType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta, ok := eventCatalog[eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	dedupeKey := fmt.Sprintf("%s:%s", aggregateID, eventType)

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`

	_, err = tx.Exec(ctx, stmt,
		aggregateType,
		aggregateID,
		eventType,
		meta.Topic,
		meta.PartitionKeyFn(aggregateID),
		body,
		dedupeKey,
	)
	return err
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic          string
	PartitionKeyFn func(aggregateID string) string
}

var eventCatalog = map[string]EventMetadata{
	"user.created": {
		Topic:          "user_events",
		PartitionKeyFn: func(id string) string { return id },
	},
	"exercise.logged": {
		Topic:          "exercise_events",
		PartitionKeyFn: func(id string) string { return id },
	},
}
