// Package worker binds the per-domain job routers to their broker queues
// and coordinates the pools' shared lifecycle.
package worker

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/zaptalk/zaptalk-be/internal/jobs"
	"github.com/zaptalk/zaptalk-be/internal/jobs/domain"
)

// Broker is the narrow slice of the message transport a pool consumes.
type Broker interface {
	IsConnected() bool
	Consume(queue, consumerTag string, prefetch int) (<-chan amqp.Delivery, func() error, error)
}

// PoolConfig configures one domain pool. It is immutable once the pool
// is created.
type PoolConfig struct {
	Queue       domain.Queue
	Concurrency int
	Prefetch    int
	Router      *jobs.Router
	Broker      Broker
	Store       JobStore
	Logger      *slog.Logger
}

// Pool is a bounded-concurrency consumer of one domain queue.
type Pool struct {
	queue       domain.Queue
	concurrency int
	router      *jobs.Router
	store       JobStore
	logger      *slog.Logger
	workerID    string

	stopConsumer func() error
	jobsChan     chan amqp.Delivery
	stopChan     chan struct{}
	wg           sync.WaitGroup

	mu     sync.Mutex
	gate   chan struct{} // closed while the pool accepts new deliveries
	paused bool
	closed bool
}

// DefaultConcurrency returns the domain default used when a pool's
// concurrency is unset. Import jobs are I/O- and database-heavy, so the
// import pool runs narrow; report and campaign pools run wider.
func DefaultConcurrency(queue domain.Queue) int {
	switch queue {
	case domain.QueueImport:
		return 2
	case domain.QueueReport:
		return 5
	case domain.QueueCampaign:
		return 10
	default:
		return 1
	}
}

// NewPool creates a pool bound to one queue and starts consuming. When
// the broker is absent or disconnected no pool is created: the call logs
// a warning and returns nil, so a host process without job-processing
// capability can still run.
func NewPool(cfg PoolConfig) *Pool {
	if cfg.Broker == nil || !cfg.Broker.IsConnected() {
		cfg.Logger.Warn("Message broker unavailable, worker pool not created",
			slog.String("queue", string(cfg.Queue)),
		)
		return nil
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency(cfg.Queue)
	}
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = concurrency * 2
	}

	p := &Pool{
		queue:       cfg.Queue,
		concurrency: concurrency,
		router:      cfg.Router,
		store:       cfg.Store,
		logger:      cfg.Logger,
		workerID:    fmt.Sprintf("%s-worker-%s", cfg.Queue, uuid.New().String()[:8]),
		jobsChan:    make(chan amqp.Delivery),
		stopChan:    make(chan struct{}),
		gate:        openGate(),
	}

	deliveries, stop, err := cfg.Broker.Consume(string(p.queue), p.workerID, prefetch)
	if err != nil {
		p.logger.Warn("Failed to start broker consumer, worker pool not created",
			slog.String("queue", string(p.queue)),
			slog.String("error", err.Error()),
		)
		return nil
	}
	p.stopConsumer = stop

	p.wg.Add(1)
	go p.dispatchLoop(deliveries)
	p.spawnWorkers()

	return p
}

func openGate() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// Queue returns the domain queue this pool serves.
func (p *Pool) Queue() domain.Queue {
	return p.queue
}

// Running reports whether the pool is accepting new jobs.
func (p *Pool) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.paused && !p.closed
}

// Pause stops intake of new deliveries. In-flight jobs run to completion;
// prefetched messages wait unacknowledged until Resume.
func (p *Pool) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("pool for queue %s is closed", p.queue)
	}
	if p.paused {
		return nil
	}
	p.paused = true
	p.gate = make(chan struct{})
	p.logger.Info("Worker pool paused", slog.String("queue", string(p.queue)))
	return nil
}

// Resume reopens intake after a Pause.
func (p *Pool) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("pool for queue %s is closed", p.queue)
	}
	if !p.paused {
		return nil
	}
	p.paused = false
	close(p.gate)
	p.logger.Info("Worker pool resumed", slog.String("queue", string(p.queue)))
	return nil
}

// Close stops intake, waits for in-flight jobs, and releases the broker
// consumer. It does not interrupt a job mid-batch.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.logger.Info("Closing worker pool", slog.String("queue", string(p.queue)))

	var stopErr error
	if p.stopConsumer != nil {
		stopErr = p.stopConsumer()
	}
	close(p.stopChan)
	p.wg.Wait()

	if stopErr != nil {
		return fmt.Errorf("failed to release broker consumer: %w", stopErr)
	}
	p.logger.Info("Worker pool closed", slog.String("queue", string(p.queue)))
	return nil
}

func (p *Pool) resumeGate() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gate
}

// spawnWorkers spawns N worker goroutines based on concurrency configuration
func (p *Pool) spawnWorkers() {
	p.logger.Info("Spawning worker pool",
		slog.String("queue", string(p.queue)),
		slog.Int("concurrency", p.concurrency),
		slog.String("worker_id", p.workerID),
	)

	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go p.workerLoop(i)
	}
}

// dispatchLoop forwards broker deliveries to the worker goroutines.
func (p *Pool) dispatchLoop(deliveries <-chan amqp.Delivery) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			p.logger.Info("Message dispatcher stopped",
				slog.String("queue", string(p.queue)),
			)
			return

		case delivery, ok := <-deliveries:
			if !ok {
				p.logger.Warn("RabbitMQ delivery channel closed",
					slog.String("queue", string(p.queue)),
				)
				return
			}

			select {
			case p.jobsChan <- delivery:
			case <-p.stopChan:
				// Requeue so the message is redelivered after restart.
				if nackErr := delivery.Nack(false, true); nackErr != nil {
					p.logger.Error("Failed to NACK message on shutdown",
						slog.String("error", nackErr.Error()),
					)
				}
				return
			}
		}
	}
}

// workerLoop is the main processing loop for each worker goroutine
func (p *Pool) workerLoop(workerNum int) {
	defer p.wg.Done()

	workerName := fmt.Sprintf("%s-%d", p.workerID, workerNum)
	p.logger.Info("Worker goroutine started",
		slog.String("worker_name", workerName),
	)

	for {
		select {
		case <-p.stopChan:
			p.logger.Info("Worker goroutine stopping",
				slog.String("worker_name", workerName),
			)
			return

		case delivery, ok := <-p.jobsChan:
			if !ok {
				return
			}

			// Hold here while the pool is paused.
			select {
			case <-p.resumeGate():
			case <-p.stopChan:
				if nackErr := delivery.Nack(false, true); nackErr != nil {
					p.logger.Error("Failed to NACK message on shutdown",
						slog.String("error", nackErr.Error()),
					)
				}
				return
			}

			err := p.processDelivery(workerName, delivery)

			if err != nil {
				requeue := p.shouldRequeue(err)
				if nackErr := delivery.Nack(false, requeue); nackErr != nil {
					p.logger.Error("Failed to NACK message",
						slog.String("worker_name", workerName),
						slog.String("error", nackErr.Error()),
					)
				} else {
					p.logger.Info("Message NACKed",
						slog.String("worker_name", workerName),
						slog.Bool("requeue", requeue),
					)
				}
			} else {
				if ackErr := delivery.Ack(false); ackErr != nil {
					p.logger.Error("Failed to ACK message",
						slog.String("worker_name", workerName),
						slog.String("error", ackErr.Error()),
					)
				}
			}
		}
	}
}
