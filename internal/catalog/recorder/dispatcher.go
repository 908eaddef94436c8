package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"chanfilter/internal/catalog/metrics"
	"chanfilter/internal/catalog/models"
	"chanfilter/pkg/requestcontext"
)

const (
	defaultWorkers   = 4
	defaultQueueSize = 256
	defaultTimeout   = 10 * time.Second
)

// Runner executes one recording job.
type Runner interface {
	Record(ctx context.Context, keys []models.IdentityKey) (*Result, error)
}

type job struct {
	ctx  context.Context
	keys []models.IdentityKey
}

// Dispatcher runs recording jobs on a fixed pool of workers fed by a bounded
// queue. Submit never blocks: when the queue is full the job is dropped.
type Dispatcher struct {
	runner  Runner
	logger  *slog.Logger
	metrics *metrics.Metrics

	workers   int
	queueSize int
	timeout   time.Duration

	queue  chan job
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

type DispatcherOption func(d *Dispatcher)

func WithWorkers(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queueSize = n
		}
	}
}

func WithJobTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithDispatcherMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// NewDispatcher starts the worker pool.
func NewDispatcher(runner Runner, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		runner:    runner,
		workers:   defaultWorkers,
		queueSize: defaultQueueSize,
		timeout:   defaultTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	d.queue = make(chan job, d.queueSize)
	for range d.workers {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

// Submit enqueues identities for recording and reports whether the job was
// accepted. The job keeps the request ID but not the request's cancellation.
func (d *Dispatcher) Submit(ctx context.Context, keys []models.IdentityKey) bool {
	if len(keys) == 0 {
		return true
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}

	j := job{ctx: requestcontext.Detached(ctx), keys: append([]models.IdentityKey(nil), keys...)}
	select {
	case d.queue <- j:
		return true
	default:
		d.metrics.IncDispatchDropped()
		d.logger.WarnContext(ctx, "recorder queue full, dropping job",
			"request_id", requestcontext.RequestID(ctx),
			"identities", len(keys),
			"queue_size", d.queueSize,
		)
		return false
	}
}

// Pending returns the number of queued jobs.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Close stops accepting jobs and waits for queued jobs to finish or for ctx
// to expire, whichever comes first.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for j := range d.queue {
		d.run(j)
	}
}

func (d *Dispatcher) run(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.timeout)
	defer cancel()

	res, err := d.runner.Record(ctx, j.keys)
	if err != nil {
		// Recorder has already logged the cause.
		return
	}
	d.logger.DebugContext(ctx, "recorded unknown identities",
		"request_id", requestcontext.RequestID(ctx),
		"inserted", res.Inserted,
		"conflicts", res.Conflicts,
		"failed", res.Failed,
	)
}
