package outbox

import "github.com/prometheus/client_golang/prometheus"

var (
	deliveredCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "exercise_tracker",
		Subsystem: "outbox",
		Name:      "events_delivered_total",
		Help:      "Number of outbox events delivered to Kafka.",
	})

	failedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "exercise_tracker",
		Subsystem: "outbox",
		Name:      "delivery_failures_total",
		Help:      "Number of outbox batches that failed delivery and were left for retry.",
	})

	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "exercise_tracker",
		Subsystem: "outbox",
		Name:      "batch_duration_seconds",
		Help:      "Time taken to claim, deliver and mark an outbox batch.",
		Buckets:   prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(deliveredCounter, failedCounter, batchDuration)
}
