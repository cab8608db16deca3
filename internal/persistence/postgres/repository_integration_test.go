//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/exercisetracker/internal/domain"
)

func TestRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(t, ctx)
	repo := NewRepository(pool)

	user := domain.User{
		ID:        uuid.NewString(),
		Username:  "alice",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.CreateUser(ctx, user))

	stored, err := repo.GetUser(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, user.Username, stored.Username)

	missing, err := repo.GetUser(ctx, uuid.NewString())
	require.NoError(t, err)
	require.Nil(t, missing)

	malformed, err := repo.GetUser(ctx, "not-a-uuid")
	require.NoError(t, err)
	require.Nil(t, malformed)

	users, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
}

func TestRepositoryFiltersAndOrdersExercises(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(t, ctx)
	repo := NewRepository(pool)

	user := domain.User{ID: uuid.NewString(), Username: "alice", CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.CreateUser(ctx, user))

	dates := []string{"2023-05-10", "2023-01-01", "2023-12-31", "2023-05-10"}
	for i, raw := range dates {
		date, err := domain.ParseDate(raw)
		require.NoError(t, err)
		require.NoError(t, repo.CreateExercise(ctx, domain.Exercise{
			ID:          uuid.NewString(),
			UserID:      user.ID,
			Description: raw,
			DurationMin: 10 + i,
			Date:        date,
			CreatedAt:   time.Now().UTC().Add(time.Duration(i) * time.Millisecond),
		}))
	}

	all, err := repo.ListExercises(ctx, user.ID, domain.LogFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	// Ascending by date, creation order breaking the 2023-05-10 tie.
	require.Equal(t, "2023-01-01", all[0].Description)
	require.Equal(t, "2023-05-10", all[1].Description)
	require.Equal(t, 10, all[1].DurationMin)
	require.Equal(t, 13, all[2].DurationMin)
	require.Equal(t, "2023-12-31", all[3].Description)

	from, _ := domain.ParseDate("2023-05-10")
	to, _ := domain.ParseDate("2023-05-10")
	window, err := repo.ListExercises(ctx, user.ID, domain.LogFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, window, 2, "both bounds are inclusive")

	limited, err := repo.ListExercises(ctx, user.ID, domain.LogFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)
	require.Equal(t, all[0].ID, limited[0].ID)

	unlimited, err := repo.ListExercises(ctx, user.ID, domain.LogFilter{Limit: -1})
	require.NoError(t, err)
	require.Len(t, unlimited, 4, "non-positive limit means no limit")
}

func TestRepositoryWritesOutboxRows(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(t, ctx)
	repo := NewRepository(pool)

	user := domain.User{ID: uuid.NewString(), Username: "alice", CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.CreateUser(ctx, user))

	date, _ := domain.ParseDate("2023-05-10")
	exercise := domain.Exercise{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		Description: "run",
		DurationMin: 30,
		Date:        date,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, repo.CreateExercise(ctx, exercise))

	rows, err := pool.Query(ctx, `SELECT event_type, topic FROM outbox ORDER BY event_id`)
	require.NoError(t, err)
	defer rows.Close()

	var eventTypes, topics []string
	for rows.Next() {
		var eventType, topic string
		require.NoError(t, rows.Scan(&eventType, &topic))
		eventTypes = append(eventTypes, eventType)
		topics = append(topics, topic)
	}
	require.NoError(t, rows.Err())
	require.Equal(t, []string{"user.created", "exercise.logged"}, eventTypes)
	require.Equal(t, []string{"user_events", "exercise_events"}, topics)
}

func newTestPool(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("exercises"),
		postgrescontainer.WithUsername("tracker"),
		postgrescontainer.WithPassword("tracker"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, waitForDatabase(ctx, connStr))
	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	return pool
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	files := []string{
		"../../../db/postgres/migrations/0001_init.up.sql",
	}

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	for _, rel := range files {
		path := resolvePath(t, rel)
		contents, readErr := os.ReadFile(path)
		require.NoError(t, readErr)

		_, execErr := pool.Exec(ctx, string(contents))
		require.NoError(t, execErr)
	}
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
