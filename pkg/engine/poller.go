package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/betoarts/masszap/pkg/events"
	"github.com/betoarts/masszap/pkg/models"
	"github.com/betoarts/masszap/pkg/otelhelper"
	"github.com/betoarts/masszap/pkg/protocol"
	"go.opentelemetry.io/otel/attribute"
)

// ProcessDueJobs claims and processes up to JobBatchSize due jobs,
// sequentially, and returns how many it processed. The pending to
// processing transition is the only admission gate, so concurrent
// invocations never double-process a job. Executor errors feed the retry
// loop and never escape.
func (e *Engine) ProcessDueJobs(ctx context.Context) (int, error) {
	now := time.Now().UTC()

	jobs, err := e.persistence.Jobs().ListDue(ctx, now, JobBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list due jobs: %w", err)
	}

	processed := 0

	for _, job := range jobs {
		claimed, err := e.persistence.Jobs().Claim(ctx, job.ID)
		if err != nil {
			e.logger.ErrorContext(ctx, "Failed to claim job", "job_id", job.ID, "error", err)

			continue
		}

		if !claimed {
			// Another invocation won this job.
			continue
		}

		e.processJob(ctx, job)

		processed++
	}

	return processed, nil
}

func (e *Engine) processJob(ctx context.Context, job *models.Job) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.process_job",
		attribute.String(otelhelper.JobIDKey, job.ID),
		attribute.String(otelhelper.ExecutionIDKey, job.ExecutionID),
		attribute.String(otelhelper.NodeIDKey, job.NodeID),
		attribute.String(otelhelper.NodeTypeKey, string(job.NodeType)),
	)
	defer span.End()

	execution, err := e.persistence.Executions().GetByID(ctx, job.ExecutionID)
	if err != nil {
		e.failJob(ctx, job, fmt.Errorf("failed to load execution: %w", err))
		otelhelper.SetError(span, err)

		return
	}

	if execution.Status != models.ExecutionStatusRunning {
		// A sibling job already finalized the execution. Nothing left to
		// do for this one.
		err = e.persistence.Jobs().MarkFailed(ctx, job.ID, job.RetryCount, time.Now().UTC(), "execution is no longer running")
		if err != nil {
			e.logger.ErrorContext(ctx, "Failed to discard orphaned job", "job_id", job.ID, "error", err)
		}

		return
	}

	flow, err := e.persistence.Flows().GetByID(ctx, execution.FlowID)
	if err != nil {
		e.failJob(ctx, job, fmt.Errorf("failed to load flow: %w", err))
		otelhelper.SetError(span, err)

		return
	}

	step := &protocol.Step{Job: job, Execution: execution, Flow: flow}

	result, err := e.executeNode(ctx, step)
	if err != nil {
		e.failJob(ctx, job, err)
		otelhelper.SetError(span, err)

		return
	}

	e.completeJob(ctx, step, result)
}

func (e *Engine) executeNode(ctx context.Context, step *protocol.Step) (result *protocol.Result, err error) {
	// A panicking executor must not take the poller down with it.
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("node executor panicked: %v", r)
		}
	}()

	executor, err := e.registry.CreateExecutor(ctx, string(step.Job.NodeType), step.Job.NodeID, step.Job.NodeData, e.deps)
	if err != nil {
		return nil, fmt.Errorf("failed to create node executor: %w", err)
	}

	return executor.Execute(ctx, step)
}

func (e *Engine) completeJob(ctx context.Context, step *protocol.Step, result *protocol.Result) {
	job := step.Job
	now := time.Now().UTC()

	if len(result.Output) > 0 {
		step.Execution.Context[job.NodeID] = result.Output

		err := e.persistence.Executions().UpdateContext(ctx, step.Execution.ID, step.Execution.Context)
		if err != nil {
			e.logger.WarnContext(ctx, "Failed to persist execution context", "execution_id", step.Execution.ID, "error", err)
		}
	}

	err := e.persistence.Jobs().MarkCompleted(ctx, job.ID, now)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to mark job completed", "job_id", job.ID, "error", err)

		return
	}

	e.publish(ctx, events.JobCompleted{
		BaseEvent:   e.baseEvent(events.JobCompletedEvent, job.OwnerID),
		JobID:       job.ID,
		ExecutionID: job.ExecutionID,
		NodeID:      job.NodeID,
		NodeType:    string(job.NodeType),
	})

	switch job.NodeType {
	case models.NodeTypeWait:
		// The wait executor enqueued its own successors in the future.
	case models.NodeTypeEnd:
		e.publish(ctx, events.ExecutionCompleted{
			BaseEvent:   e.baseEvent(events.ExecutionCompletedEvent, job.OwnerID),
			ExecutionID: step.Execution.ID,
			FlowID:      step.Flow.ID,
			Duration:    now.Sub(step.Execution.StartedAt),
		})
	default:
		err = e.enqueueSuccessors(ctx, step.Flow, step.Execution, job.NodeID, result.Handle, now)
		if err != nil {
			e.logger.ErrorContext(ctx, "Failed to enqueue successor jobs", "job_id", job.ID, "error", err)
		}
	}
}

// failJob applies the retry policy: exponential backoff while the budget
// lasts, terminal job and execution failure once it is exhausted.
func (e *Engine) failJob(ctx context.Context, job *models.Job, execErr error) {
	now := time.Now().UTC()
	retryCount := job.RetryCount + 1

	e.logger.WarnContext(ctx, "Job failed", "job_id", job.ID, "node_id", job.NodeID,
		"retry_count", retryCount, "error", execErr)

	if retryCount < job.MaxRetries {
		backoff := (&models.Job{RetryCount: retryCount}).RetryBackoff()
		nextAttempt := now.Add(backoff)

		err := e.persistence.Jobs().ScheduleRetry(ctx, job.ID, retryCount, nextAttempt, execErr.Error())
		if err != nil {
			e.logger.ErrorContext(ctx, "Failed to schedule retry", "job_id", job.ID, "error", err)

			return
		}

		e.publish(ctx, events.JobRetried{
			BaseEvent:   e.baseEvent(events.JobRetriedEvent, job.OwnerID),
			JobID:       job.ID,
			ExecutionID: job.ExecutionID,
			NodeID:      job.NodeID,
			RetryCount:  retryCount,
			NextAttempt: nextAttempt,
			Error:       execErr.Error(),
		})

		return
	}

	err := e.persistence.Jobs().MarkFailed(ctx, job.ID, retryCount, now, execErr.Error())
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to mark job failed", "job_id", job.ID, "error", err)
	}

	// Retry exhaustion is fatal for the whole execution. Jobs already
	// pending for it are discarded when claimed.
	err = e.persistence.Executions().MarkFailed(ctx, job.ExecutionID, now, execErr.Error())
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to mark execution failed", "execution_id", job.ExecutionID, "error", err)
	}

	e.publish(ctx, events.JobFailed{
		BaseEvent:   e.baseEvent(events.JobFailedEvent, job.OwnerID),
		JobID:       job.ID,
		ExecutionID: job.ExecutionID,
		NodeID:      job.NodeID,
		Error:       execErr.Error(),
	})

	e.publish(ctx, events.ExecutionFailed{
		BaseEvent:   e.baseEvent(events.ExecutionFailedEvent, job.OwnerID),
		ExecutionID: job.ExecutionID,
		Error:       execErr.Error(),
	})
}
