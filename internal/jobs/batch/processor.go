// Package batch implements the sequential fixed-size batching engine used
// by bulk import and campaign dispatch jobs.
package batch

import (
	"context"
	"log/slog"

	"github.com/zaptalk/zaptalk-be/internal/jobs"
	"github.com/zaptalk/zaptalk-be/internal/jobs/domain"
)

// Sink is the persistence collaborator invoked once per batch. It reports
// how many items of the batch were persisted and how many were rejected.
// A returned error fails the whole batch, not the job.
type Sink interface {
	Persist(ctx context.Context, tenantID, userID string, items []domain.Contact) (ok int, failed int, err error)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, tenantID, userID string, items []domain.Contact) (int, int, error)

func (f SinkFunc) Persist(ctx context.Context, tenantID, userID string, items []domain.Contact) (int, int, error) {
	return f(ctx, tenantID, userID, items)
}

// Result aggregates per-batch outcomes across one run. Counts are exact;
// Errors is a sample capped at domain.MaxErrorSample entries.
type Result struct {
	Inserted int
	Failed   int
	Errors   []domain.JobError
}

// Processor splits an item collection into contiguous batches of at most
// Size items and drives one Sink call per batch, strictly in input order.
// Sequential execution is deliberate: it keeps progress reporting and
// per-batch error indices deterministic.
type Processor struct {
	size   int
	logger *slog.Logger
}

// NewProcessor creates a Processor. A non-positive size falls back to
// domain.BatchSize.
func NewProcessor(size int, logger *slog.Logger) *Processor {
	if size <= 0 {
		size = domain.BatchSize
	}
	return &Processor{size: size, logger: logger}
}

// NumBatches returns ceil(n / size) for a collection of n items.
func (p *Processor) NumBatches(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + p.size - 1) / p.size
}

// Run processes items batch by batch. A failing Sink call marks the whole
// batch as failed, records one error entry naming the batch index, and
// continues with the next batch; earlier counts are never discarded. After
// each batch the progress callback receives
// base + span*(batchesDone/totalBatches).
func (p *Processor) Run(ctx context.Context, items []domain.Contact, tenantID, userID string, sink Sink, report jobs.ProgressFunc, base, span int) *Result {
	res := &Result{}
	total := p.NumBatches(len(items))
	if total == 0 {
		if report != nil {
			report(base + span)
		}
		return res
	}

	for i := 0; i < total; i++ {
		start := i * p.size
		end := start + p.size
		if end > len(items) {
			end = len(items)
		}
		chunk := items[start:end]

		ok, failed, err := sink.Persist(ctx, tenantID, userID, chunk)
		if err != nil {
			// Whole batch counted as failed; the job continues.
			res.Failed += len(chunk)
			if len(res.Errors) < domain.MaxErrorSample {
				res.Errors = append(res.Errors, domain.JobError{
					Origin:  "insertion",
					Row:     -1,
					Batch:   i,
					Message: err.Error(),
				})
			}
			p.logger.Warn("Batch persistence failed, continuing",
				slog.Int("batch", i),
				slog.Int("batch_size", len(chunk)),
				slog.String("error", err.Error()),
			)
		} else {
			res.Inserted += ok
			res.Failed += failed
		}

		if report != nil {
			report(base + span*(i+1)/total)
		}
	}

	p.logger.Info("Batch run finished",
		slog.Int("batches", total),
		slog.Int("inserted", res.Inserted),
		slog.Int("failed", res.Failed),
	)

	return res
}
