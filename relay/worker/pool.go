// Package worker provides an asynchronous worker pool that persists finished
// relay session records using the provided storage.Driver and announces them
// through the provided eventstream.Publisher.
//
// The pool keeps storage and publishing off the streaming hot path: a session
// hands its record over and returns without waiting on either backend.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/relay/pkg/eventstream"
	"github.com/papercomputeco/relay/pkg/logger"
	"github.com/papercomputeco/relay/pkg/storage"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
	defaultJobTimeout        = 10 * time.Second
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	Record *storage.Record
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Driver is the storage backend for persisting session records.
	Driver storage.Driver

	// Publisher is the optional event stream for completion events.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// JobTimeout bounds storage and publishing of a single job.
	JobTimeout time.Duration

	// Logger is the provided slog logger
	Logger *slog.Logger
}

// Pool processes session records asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	closeOnce sync.Once
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Driver == nil {
		return nil, fmt.Errorf("worker pool requires a storage driver")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.JobTimeout == 0 {
		c.JobTimeout = defaultJobTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	if job.Record == nil {
		p.logger.Error("job not queued, nil record")
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			"session_id", job.Record.ID,
			"state", job.Record.State,
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			"session_id", job.Record.ID,
			"conversation_id", job.Record.ConversationID,
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the relay HTTP server has stopped.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.queue)
	})
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("worker stopped", "worker_id", id)
}

// processJob stores the session record and, when a publisher is configured,
// publishes its completion event. A storage failure skips publishing.
func (p *Pool) processJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.JobTimeout)
	defer cancel()

	record := job.Record
	if err := p.config.Driver.Put(ctx, record); err != nil {
		p.logger.Error("async record storage failed",
			"session_id", record.ID,
			"error", err,
		)
		return
	}

	p.logger.Debug("session record stored",
		"session_id", record.ID,
		"conversation_id", record.ConversationID,
		"state", record.State,
	)

	if p.config.Publisher == nil {
		return
	}

	event := eventstream.NewSessionCompleted(record, time.Now())
	if err := p.config.Publisher.PublishSession(ctx, event); err != nil {
		p.logger.Warn("failed to publish session event",
			"session_id", record.ID,
			"event_id", event.EventID,
			"error", err,
		)
		return
	}

	p.logger.Debug("session event published",
		"session_id", record.ID,
		"event_id", event.EventID,
	)
}
