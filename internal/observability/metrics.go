package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	usersCreatedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "exercise_tracker",
		Subsystem: "persistence",
		Name:      "users_created_total",
		Help:      "Number of users persisted to Postgres.",
	})
	exercisesLoggedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "exercise_tracker",
		Subsystem: "persistence",
		Name:      "exercises_logged_total",
		Help:      "Number of exercises persisted to Postgres.",
	})
	exercisePersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "exercise_tracker",
		Subsystem: "persistence",
		Name:      "last_exercise_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent exercise persisted to Postgres.",
	})
)

func init() {
	prometheus.MustRegister(usersCreatedCounter, exercisesLoggedCounter, exercisePersistGauge)
}

// RecordUserCreated counts a persisted user.
func RecordUserCreated() {
	usersCreatedCounter.Inc()
}

// RecordExerciseLogged counts a persisted exercise and updates the
// persistence watermark gauge.
func RecordExerciseLogged(ts time.Time) {
	exercisesLoggedCounter.Inc()
	if ts.IsZero() {
		return
	}
	exercisePersistGauge.Set(float64(ts.Unix()))
}
