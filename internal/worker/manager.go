package worker

import (
	"log/slog"
	"sync"
	"time"

	"github.com/zaptalk/zaptalk-be/internal/jobs/domain"
)

// PoolHandle is the slice of a pool the lifecycle manager drives.
type PoolHandle interface {
	Pause() error
	Resume() error
	Close() error
	Running() bool
}

// PoolFactory constructs the pool for one domain with the given
// concurrency. Returning nil means the pool is unavailable (for example
// because the broker is down); the manager logs and continues.
type PoolFactory func(queue domain.Queue, concurrency int) PoolHandle

// DomainOptions enables one domain and sets its pool concurrency
// (0 = domain default).
type DomainOptions struct {
	Enabled     bool
	Concurrency int
}

// InitOptions selects which domain pools Initialize creates.
type InitOptions struct {
	Import   DomainOptions
	Report   DomainOptions
	Campaign DomainOptions
}

// DomainStatus describes one domain in a Status report.
type DomainStatus struct {
	Active  bool `json:"active"`
	Running bool `json:"running"`
}

// Manager owns the registry of active domain pools and coordinates them
// as one unit for startup, pause/resume and shutdown. The registry is the
// only shared mutable state in this layer and is guarded by the mutex.
type Manager struct {
	factory PoolFactory
	logger  *slog.Logger

	mu    sync.Mutex
	pools map[domain.Queue]PoolHandle
}

// NewManager creates a Manager with an empty registry.
func NewManager(factory PoolFactory, logger *slog.Logger) *Manager {
	return &Manager{
		factory: factory,
		logger:  logger,
		pools:   make(map[domain.Queue]PoolHandle),
	}
}

// Initialize creates a pool for every enabled domain that has none yet.
// It is idempotent: a domain already active is left untouched, never
// duplicated.
func (m *Manager) Initialize(opts InitOptions) {
	m.initDomain(domain.QueueImport, opts.Import)
	m.initDomain(domain.QueueReport, opts.Report)
	m.initDomain(domain.QueueCampaign, opts.Campaign)
}

func (m *Manager) initDomain(queue domain.Queue, opts DomainOptions) {
	if !opts.Enabled {
		return
	}

	m.mu.Lock()
	_, active := m.pools[queue]
	m.mu.Unlock()
	if active {
		m.logger.Debug("Worker pool already active, skipping",
			slog.String("queue", string(queue)),
		)
		return
	}

	pool := m.factory(queue, opts.Concurrency)
	if pool == nil {
		m.logger.Warn("Worker pool unavailable, domain disabled",
			slog.String("queue", string(queue)),
		)
		return
	}

	m.mu.Lock()
	m.pools[queue] = pool
	m.mu.Unlock()

	m.logger.Info("Worker pool registered",
		slog.String("queue", string(queue)),
		slog.Int("concurrency", opts.Concurrency),
	)
}

// Shutdown closes every active pool concurrently and waits until either
// all of them have closed or the timeout elapses, whichever comes first.
// Pools that do not close in time are abandoned rather than blocking
// process exit; they stay in the registry as presumed active.
func (m *Manager) Shutdown(timeout time.Duration) {
	m.mu.Lock()
	active := make(map[domain.Queue]PoolHandle, len(m.pools))
	for q, p := range m.pools {
		active[q] = p
	}
	m.mu.Unlock()

	if len(active) == 0 {
		return
	}

	m.logger.Info("Shutting down worker pools",
		slog.Int("pools", len(active)),
		slog.Duration("timeout", timeout),
	)

	var wg sync.WaitGroup
	for q, p := range active {
		wg.Add(1)
		go func(queue domain.Queue, pool PoolHandle) {
			defer wg.Done()
			if err := pool.Close(); err != nil {
				m.logger.Error("Failed to close worker pool",
					slog.String("queue", string(queue)),
					slog.String("error", err.Error()),
				)
			}
			// Cleared even when Close reported an error: the pool has
			// stopped intake and a fresh Initialize may replace it.
			m.mu.Lock()
			delete(m.pools, queue)
			m.mu.Unlock()
			m.logger.Info("Worker pool shut down",
				slog.String("queue", string(queue)),
			)
		}(q, p)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("All worker pools shut down")
	case <-time.After(timeout):
		m.logger.Warn("Worker pool shutdown timeout exceeded, abandoning remaining pools",
			slog.Duration("timeout", timeout),
		)
	}
}

// Pause pauses every active pool. A failure pausing one pool is logged
// and does not prevent the operation on the remaining pools.
func (m *Manager) Pause() {
	for queue, pool := range m.snapshot() {
		if err := pool.Pause(); err != nil {
			m.logger.Error("Failed to pause worker pool",
				slog.String("queue", string(queue)),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Resume resumes every active pool, tolerating per-pool failures the
// same way Pause does.
func (m *Manager) Resume() {
	for queue, pool := range m.snapshot() {
		if err := pool.Resume(); err != nil {
			m.logger.Error("Failed to resume worker pool",
				slog.String("queue", string(queue)),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Status reports, per domain, whether a pool handle exists and whether
// that pool is accepting jobs.
func (m *Manager) Status() map[domain.Queue]DomainStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := make(map[domain.Queue]DomainStatus, len(domain.Queues))
	for _, q := range domain.Queues {
		pool, ok := m.pools[q]
		s := DomainStatus{Active: ok}
		if ok {
			s.Running = pool.Running()
		}
		status[q] = s
	}
	return status
}

func (m *Manager) snapshot() map[domain.Queue]PoolHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[domain.Queue]PoolHandle, len(m.pools))
	for q, p := range m.pools {
		out[q] = p
	}
	return out
}
