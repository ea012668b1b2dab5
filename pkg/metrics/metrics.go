// Package metrics exposes the Prometheus counters, histograms, and
// gauges for the build/task lifecycle (SPEC_FULL.md §5.3): tasks
// executed/failed by kind, a total of skipped tasks, per-task execution
// latency, and queue depth per build.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TasksExecutedTotal counts every Executor.Execute call, by task_type
	// and outcome ("completed" or "failed"); validation failures and
	// timeouts count as "failed".
	TasksExecutedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "buildcore_tasks_executed_total",
		Help: "Total number of tasks executed, labeled by task_type and outcome.",
	}, []string{"task_type", "outcome"})

	// TasksSkippedTotal counts tasks skipped on re-execution because
	// they were already COMPLETED.
	TasksSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "buildcore_tasks_skipped_total",
		Help: "Total number of tasks skipped because they were already completed.",
	})

	// TaskExecutionDuration is the per-task wall-clock latency of
	// Executor.Execute, from dispatch to result (including the timeout
	// clock).
	TaskExecutionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "buildcore_task_execution_duration_seconds",
		Help:    "Duration of a single task execution, labeled by task_type.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task_type"})

	// TaskValidationErrorsTotal counts tasks rejected by the validator
	// before dispatch, labeled by task_type.
	TaskValidationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "buildcore_task_validation_errors_total",
		Help: "Total number of tasks that failed validation, labeled by task_type.",
	}, []string{"task_type"})

	// BuildsExecutedTotal counts ExecuteBuild calls by final status
	// ("completed" or "failed").
	BuildsExecutedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "buildcore_builds_executed_total",
		Help: "Total number of build executions, labeled by final status.",
	}, []string{"status"})

	// QueueDepth is the current number of non-COMPLETED tasks in a
	// build's queue, labeled by build_id.
	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "buildcore_queue_depth",
		Help: "Current number of pending tasks in a build's queue.",
	}, []string{"build_id"})

	// AuditWarningsTotal counts issues surfaced by AuditBuild, labeled by
	// rule name and severity.
	AuditWarningsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "buildcore_audit_warnings_total",
		Help: "Total number of audit issues surfaced, labeled by rule and severity.",
	}, []string{"rule", "severity"})

	// CircuitBreakerTripsTotal counts world-effect port circuit breaker
	// trips.
	CircuitBreakerTripsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "buildcore_circuit_breaker_trips_total",
		Help: "Total number of times the world-effect circuit breaker opened.",
	})
)

// RecordTaskExecuted records the outcome of one task execution.
func RecordTaskExecuted(taskType string, success bool, duration time.Duration) {
	outcome := "completed"
	if !success {
		outcome = "failed"
	}
	TasksExecutedTotal.WithLabelValues(taskType, outcome).Inc()
	TaskExecutionDuration.WithLabelValues(taskType).Observe(duration.Seconds())
}

// RecordTaskSkipped records a task skipped on re-execution.
func RecordTaskSkipped() {
	TasksSkippedTotal.Inc()
}

// RecordTaskValidationError records a task rejected before dispatch.
func RecordTaskValidationError(taskType string) {
	TaskValidationErrorsTotal.WithLabelValues(taskType).Inc()
}

// RecordBuildExecuted records the final status of an ExecuteBuild call.
func RecordBuildExecuted(success bool) {
	status := "completed"
	if !success {
		status = "failed"
	}
	BuildsExecutedTotal.WithLabelValues(status).Inc()
}

// SetQueueDepth sets the current pending-task count for buildID.
func SetQueueDepth(buildID string, depth int) {
	QueueDepth.WithLabelValues(buildID).Set(float64(depth))
}

// RecordAuditWarning records one issue surfaced by AuditBuild.
func RecordAuditWarning(rule, severity string) {
	AuditWarningsTotal.WithLabelValues(rule, severity).Inc()
}

// RecordCircuitBreakerTrip records the world-effect breaker opening.
func RecordCircuitBreakerTrip() {
	CircuitBreakerTripsTotal.Inc()
}

// Timer measures elapsed wall-clock time for a single operation.
type Timer struct {
	start time.Time
}

// NewTimer starts a Timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Elapsed returns the time since the Timer was created.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// RecordTaskExecution records the Timer's elapsed duration as one task
// execution of taskType.
func (t *Timer) RecordTaskExecution(taskType string, success bool) {
	RecordTaskExecuted(taskType, success, t.Elapsed())
}
