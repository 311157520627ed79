package pipeline

import (
	"context"
	"time"
)

// RunnerConfig holds configuration for a batch runner
type RunnerConfig struct {
	Name        string
	WorkerCount int // Number of tasks run concurrently
}

// DefaultRunnerConfig returns sensible defaults
func DefaultRunnerConfig(name string) RunnerConfig {
	return RunnerConfig{
		Name:        name,
		WorkerCount: 4,
	}
}

// BatchStatus represents the current state of a batch run
type BatchStatus string

const (
	StatusPending    BatchStatus = "pending"
	StatusProcessing BatchStatus = "processing"
	StatusCompleted  BatchStatus = "completed"
	StatusPartial    BatchStatus = "partial"
	StatusFailed     BatchStatus = "failed"
)

// JobStatus represents the state of a single task
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Task is one independent unit of work in a batch, typically one SKU
type Task[T any] struct {
	Key string
	Fn  func(ctx context.Context) (T, error)
}

// Outcome is the result of a single task. Exactly one of Value and Err is meaningful.
type Outcome[T any] struct {
	Key      string
	Status   JobStatus
	Value    T
	Err      error
	Duration time.Duration
}

// BatchRun tracks a single execution of a batch
type BatchRun struct {
	ID          string
	Name        string
	Status      BatchStatus
	Total       int
	Completed   int
	Failed      int
	StartedAt   time.Time
	CompletedAt time.Time
}

// Duration is how long the run took
func (r BatchRun) Duration() time.Duration {
	if r.CompletedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}
