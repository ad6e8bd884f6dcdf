package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultWorkers     = 2
	defaultQueueSize   = 256
	defaultSendTimeout = 30 * time.Second
)

// Dispatcher queues notifications after a purchase commits and delivers them
// on a fixed pool of workers.
type Dispatcher struct {
	renderer    Renderer
	sender      Sender
	from        string
	logger      *slog.Logger
	workers     int
	sendTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	jobs   chan Notification
	wg     sync.WaitGroup

	enqueued  atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
}

type Option func(*Dispatcher)

// WithWorkers sets the number of delivery workers.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithQueueSize bounds the number of pending notifications.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.jobs = make(chan Notification, n)
		}
	}
}

// WithSendTimeout bounds one render-and-send attempt.
func WithSendTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.sendTimeout = timeout
		}
	}
}

func NewDispatcher(renderer Renderer, sender Sender, from string, logger *slog.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		renderer:    renderer,
		sender:      sender,
		from:        from,
		logger:      logger,
		workers:     defaultWorkers,
		sendTimeout: defaultSendTimeout,
		jobs:        make(chan Notification, defaultQueueSize),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the workers. They exit when ctx is cancelled or the intake
// is closed and the queue drained.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
	d.logger.Info("notification workers started", "workers", d.workers, "queue_size", cap(d.jobs))
}

// Enqueue schedules n for asynchronous delivery. It never blocks; false means
// the queue is full or closed and delivery did not get scheduled.
func (d *Dispatcher) Enqueue(n Notification) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}
	select {
	case d.jobs <- n:
		d.enqueued.Add(1)
		return true
	default:
		d.logger.Warn("notification queue full", "purchase_id", n.Purchase.ID, "queue_size", cap(d.jobs))
		return false
	}
}

// Deliver renders and sends n on the caller's goroutine.
func (d *Dispatcher) Deliver(ctx context.Context, n Notification) error {
	ctx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	doc, err := d.renderer.Render(n)
	if err != nil {
		return fmt.Errorf("render tickets: %w", err)
	}
	if err := d.sender.Send(ctx, buildMessage(d.from, n, doc)); err != nil {
		return err
	}
	return nil
}

// CloseIntake rejects further Enqueue calls and lets workers exit once the
// queue is empty.
func (d *Dispatcher) CloseIntake() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	close(d.jobs)
}

// Drain waits for the workers to finish after CloseIntake. It reports false
// if ctx expired first.
func (d *Dispatcher) Drain(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

// Metrics returns delivery counters and the current queue depth.
func (d *Dispatcher) Metrics() (enqueued, delivered, failed uint64, depth int) {
	return d.enqueued.Load(), d.delivered.Load(), d.failed.Load(), len(d.jobs)
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-d.jobs:
			if !ok {
				return
			}
			d.process(ctx, n)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, n Notification) {
	start := time.Now()
	if err := d.Deliver(ctx, n); err != nil {
		d.failed.Add(1)
		d.logger.Error("ticket delivery failed",
			"purchase_id", n.Purchase.ID,
			"tickets", len(n.Codes),
			"err", err,
		)
		return
	}
	d.delivered.Add(1)
	d.logger.Info("tickets delivered",
		"purchase_id", n.Purchase.ID,
		"tickets", len(n.Codes),
		"latency_ms", time.Since(start).Milliseconds(),
	)
}
