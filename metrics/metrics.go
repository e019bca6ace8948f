// Package metrics provides Prometheus metrics for content-scheduler.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueueItemsProcessed counts finished queue items by outcome.
	QueueItemsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "content_scheduler",
			Name:      "queue_items_processed_total",
			Help:      "Total number of queue items that finished processing",
		},
		[]string{"outcome"},
	)

	// QueueBatchSize observes how many items each worker tick claimed.
	QueueBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "content_scheduler",
			Name:      "queue_batch_size",
			Help:      "Distribution of claimed batch sizes per worker tick",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32},
		},
	)

	// PhaseDuration measures pipeline phase durations.
	PhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "content_scheduler",
			Name:      "phase_duration_seconds",
			Help:      "Duration of generation pipeline phases in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"phase", "status"},
	)

	// PublishSweeps counts publish sweep outcomes.
	PublishSweeps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "content_scheduler",
			Name:      "publish_sweeps_total",
			Help:      "Total number of publish sweep runs",
		},
		[]string{"status"},
	)

	// ArticlesPublished counts successful publishes by frequency.
	ArticlesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "content_scheduler",
			Name:      "articles_published_total",
			Help:      "Total number of articles published",
		},
		[]string{"frequency"},
	)

	// LifecycleErrors counts errors by operation and classification.
	LifecycleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "content_scheduler",
			Name:      "lifecycle_errors_total",
			Help:      "Total number of lifecycle errors",
		},
		[]string{"operation", "error_type"},
	)

	// OrphansPruned counts queue items removed by the pruning job.
	OrphansPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "content_scheduler",
			Name:      "orphans_pruned_total",
			Help:      "Total number of orphaned queue items removed",
		},
	)
)

// RecordQueueOutcome records one finished queue item.
func RecordQueueOutcome(outcome string) {
	QueueItemsProcessed.WithLabelValues(outcome).Inc()
}

// RecordPhase records a pipeline phase run.
func RecordPhase(phase, status string, elapsed time.Duration) {
	PhaseDuration.WithLabelValues(phase, status).Observe(elapsed.Seconds())
}

// RecordPublishSweep records a sweep run.
func RecordPublishSweep(status string) {
	PublishSweeps.WithLabelValues(status).Inc()
}

// RecordPublished records a successful publish.
func RecordPublished(frequency string) {
	ArticlesPublished.WithLabelValues(frequency).Inc()
}

// RecordError records a classified lifecycle error.
func RecordError(operation, errorType string) {
	LifecycleErrors.WithLabelValues(operation, errorType).Inc()
}
