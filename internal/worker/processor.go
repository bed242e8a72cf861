package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/zaptalk/zaptalk-be/internal/jobs/domain"
)

// JobStore is the persistence boundary the pool uses to claim jobs and
// record their outcomes.
type JobStore interface {
	ClaimJob(ctx context.Context, jobID, workerID string) (*domain.Job, error)
	UpdateJobStatus(ctx context.Context, jobID, status string, result any, errorMsg string) error
	UpdateJobProgress(ctx context.Context, jobID string, progress int) error
}

// processDelivery decodes the broker envelope, claims the job row, runs
// the domain handler through the router, and records the outcome. The
// returned error drives the ACK/NACK decision.
func (p *Pool) processDelivery(workerName string, delivery amqp.Delivery) error {
	var msg domain.JobMessage
	if err := json.Unmarshal(delivery.Body, &msg); err != nil {
		p.logger.Error("Failed to parse message JSON",
			slog.String("worker_name", workerName),
			slog.String("error", err.Error()),
			slog.String("body", string(delivery.Body)),
		)
		// Malformed messages never become processable; drop without requeue.
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}

	if _, err := uuid.Parse(msg.JobID); err != nil {
		p.logger.Error("Invalid job_id format - not a UUID",
			slog.String("job_id", msg.JobID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: invalid job_id %q", domain.ErrInvalidPayload, msg.JobID)
	}

	// Jobs run to completion once started; shutdown waits for them
	// instead of cancelling, so the job context is not tied to stopChan.
	ctx := context.Background()

	job, err := p.store.ClaimJob(ctx, msg.JobID, p.workerID)
	if err != nil {
		if errors.Is(err, domain.ErrJobAlreadyClaimed) {
			p.logger.Warn("Job already claimed, skipping",
				slog.String("job_id", msg.JobID),
			)
			return fmt.Errorf("job already claimed: %w", err)
		}
		p.logger.Error("Failed to claim job",
			slog.String("job_id", msg.JobID),
			slog.String("error", err.Error()),
		)
		return domain.NewRetryableError(fmt.Errorf("failed to claim job: %w", err))
	}

	p.logger.Info("Processing job",
		slog.String("worker_name", workerName),
		slog.String("job_id", job.JobID),
		slog.String("job_type", string(job.Type)),
		slog.Int("attempts_made", job.AttemptsMade),
	)

	reporter := newProgressReporter(p.store, job, p.logger)
	result, err := p.router.Dispatch(ctx, job, reporter.report)

	if err != nil {
		p.logger.Error("Job execution failed",
			slog.String("job_id", job.JobID),
			slog.String("job_type", string(job.Type)),
			slog.String("error", err.Error()),
		)

		if p.isRetryable(err) && job.AttemptsMade < job.MaxRetries {
			// Back to PENDING so the redelivered message can claim it again.
			if updateErr := p.store.UpdateJobStatus(ctx, job.JobID, domain.JobStatusPending, nil, err.Error()); updateErr != nil {
				p.logger.Error("Failed to reset job status to PENDING",
					slog.String("job_id", job.JobID),
					slog.String("error", updateErr.Error()),
				)
			}
			p.logger.Info("Job will be retried",
				slog.String("job_id", job.JobID),
				slog.Int("attempts_made", job.AttemptsMade),
				slog.Int("max_retries", job.MaxRetries),
			)
			return domain.NewRetryableError(err)
		}

		if updateErr := p.store.UpdateJobStatus(ctx, job.JobID, domain.JobStatusFailed, nil, err.Error()); updateErr != nil {
			p.logger.Error("Failed to update job status to FAILED",
				slog.String("job_id", job.JobID),
				slog.String("error", updateErr.Error()),
			)
		}

		if p.isRetryable(err) {
			return fmt.Errorf("%w: %v", domain.ErrMaxRetriesExceeded, err)
		}
		return err
	}

	reporter.report(100)

	if updateErr := p.store.UpdateJobStatus(ctx, job.JobID, domain.JobStatusCompleted, result, ""); updateErr != nil {
		p.logger.Error("Failed to update job status to COMPLETED",
			slog.String("job_id", job.JobID),
			slog.String("error", updateErr.Error()),
		)
		// Job completed but status update failed - still ACK the message
	}

	p.logger.Info("Job completed successfully",
		slog.String("worker_name", workerName),
		slog.String("job_id", job.JobID),
		slog.String("job_type", string(job.Type)),
	)

	return nil
}

// isRetryable classifies handler errors. Unknown types and malformed
// payloads can never succeed on a retry.
func (p *Pool) isRetryable(err error) bool {
	if errors.Is(err, domain.ErrUnknownJobType) {
		return false
	}
	if errors.Is(err, domain.ErrInvalidPayload) {
		return false
	}
	return true
}

// shouldRequeue determines if a job should be requeued based on the error type
func (p *Pool) shouldRequeue(err error) bool {
	if errors.Is(err, domain.ErrJobAlreadyClaimed) {
		return false
	}
	if errors.Is(err, domain.ErrMaxRetriesExceeded) {
		return false
	}
	if errors.Is(err, domain.ErrInvalidPayload) {
		return false
	}
	if errors.Is(err, domain.ErrUnknownJobType) {
		return false
	}

	var retryableErr *domain.RetryableError
	if errors.As(err, &retryableErr) {
		return true
	}

	// Default: don't requeue for unknown errors
	return false
}

// progressReporter writes job progress, clamped so the stored value
// never decreases within one job's processing.
type progressReporter struct {
	store  JobStore
	jobID  string
	logger *slog.Logger

	mu   sync.Mutex
	last int
}

func newProgressReporter(store JobStore, job *domain.Job, logger *slog.Logger) *progressReporter {
	return &progressReporter{
		store:  store,
		jobID:  job.JobID,
		logger: logger,
		last:   job.Progress,
	}
}

func (r *progressReporter) report(percent int) {
	if percent > 100 {
		percent = 100
	}

	r.mu.Lock()
	if percent <= r.last {
		r.mu.Unlock()
		return
	}
	r.last = percent
	r.mu.Unlock()

	if err := r.store.UpdateJobProgress(context.Background(), r.jobID, percent); err != nil {
		r.logger.Warn("Failed to update job progress",
			slog.String("job_id", r.jobID),
			slog.Int("progress", percent),
			slog.String("error", err.Error()),
		)
	}
}
