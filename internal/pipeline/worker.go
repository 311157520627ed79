package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/domain"
)

// Runner fans tasks out to a bounded worker pool and joins once every task has finished or
// failed. A failing task never cancels its siblings.
type Runner struct {
	config RunnerConfig
}

// NewRunner creates a new batch runner
func NewRunner(config RunnerConfig) *Runner {
	if config.WorkerCount < 1 {
		config.WorkerCount = 1
	}
	return &Runner{config: config}
}

// Run executes tasks concurrently and returns outcomes in task order together with the run summary.
func Run[T any](ctx context.Context, r *Runner, runID string, tasks []Task[T]) ([]Outcome[T], BatchRun) {
	run := BatchRun{
		ID:        runID,
		Name:      r.config.Name,
		Status:    StatusProcessing,
		Total:     len(tasks),
		StartedAt: time.Now(),
	}
	log.Debug().Str("run_id", runID).Str("pipeline", r.config.Name).Int("tasks", len(tasks)).
		Int("workers", r.config.WorkerCount).Msg("starting batch")

	outcomes := make([]Outcome[T], len(tasks))
	for i, t := range tasks {
		outcomes[i] = Outcome[T]{Key: t.Key, Status: JobQueued}
	}

	var g errgroup.Group
	g.SetLimit(r.config.WorkerCount)
	for i := range tasks {
		i := i
		g.Go(func() error {
			outcomes[i] = runTask(ctx, tasks[i])
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		if o.Status == JobCompleted {
			run.Completed++
		} else {
			run.Failed++
		}
	}
	run.CompletedAt = time.Now()
	switch {
	case run.Failed == 0:
		run.Status = StatusCompleted
	case run.Completed == 0:
		run.Status = StatusFailed
	default:
		run.Status = StatusPartial
	}

	log.Info().Str("run_id", runID).Str("pipeline", r.config.Name).Str("status", string(run.Status)).
		Int("completed", run.Completed).Int("failed", run.Failed).Dur("duration", run.Duration()).
		Msg("batch finished")
	return outcomes, run
}

// runTask runs one task, turning a panic into an invariant violation for that task only.
func runTask[T any](ctx context.Context, t Task[T]) (out Outcome[T]) {
	started := time.Now()
	out = Outcome[T]{Key: t.Key, Status: JobProcessing}

	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Str("key", t.Key).Interface("panic", rec).Bytes("stack", debug.Stack()).Msg("task panicked")
			out.Err = &domain.InvariantViolation{Subject: t.Key, Detail: fmt.Sprintf("panic: %v", rec)}
			out.Status = JobFailed
		}
		out.Duration = time.Since(started)
	}()

	if err := ctx.Err(); err != nil {
		out.Status = JobFailed
		out.Err = err
		return out
	}

	v, err := t.Fn(ctx)
	if err != nil {
		out.Status = JobFailed
		out.Err = err
		return out
	}
	out.Value = v
	out.Status = JobCompleted
	return out
}
