// Package jobs holds the per-domain job routers and the handler contract
// shared by the import, report and campaign domains.
package jobs

import (
	"context"
	"fmt"

	"github.com/zaptalk/zaptalk-be/internal/jobs/domain"
)

// ProgressFunc reports job progress as a percentage in [0, 100].
// Implementations clamp the value so progress never decreases.
type ProgressFunc func(percent int)

// HandlerFunc executes one job and returns its structured result.
// Per-item and per-batch failures are absorbed into the result; a
// returned error marks the whole job failed.
type HandlerFunc func(ctx context.Context, job *domain.Job, report ProgressFunc) (any, error)

// Router maps the closed set of job types for one domain to their handlers.
type Router struct {
	queue    domain.Queue
	handlers map[domain.JobType]HandlerFunc
}

// NewRouter creates an empty router for one domain queue.
func NewRouter(queue domain.Queue) *Router {
	return &Router{
		queue:    queue,
		handlers: make(map[domain.JobType]HandlerFunc),
	}
}

// Handle registers the handler for a job type. Registration happens once
// at startup, before the router is handed to a pool.
func (r *Router) Handle(t domain.JobType, h HandlerFunc) {
	r.handlers[t] = h
}

// Queue returns the domain queue this router serves.
func (r *Router) Queue() domain.Queue {
	return r.queue
}

// Dispatch selects and invokes the handler for the job's type. An
// unrecognized type fails only this job; the pool keeps processing.
func (r *Router) Dispatch(ctx context.Context, job *domain.Job, report ProgressFunc) (any, error) {
	h, ok := r.handlers[job.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownJobType, job.Type)
	}
	return h(ctx, job, report)
}
