package realtime

import (
	"context"
	"sync"
	"time"

	"lawdesk_backend/internal/logger"
	"lawdesk_backend/pkg/apperrors"
)

type push struct {
	channel string
	event   string
	payload any
}

// Dispatcher turns fire-and-forget pushes into explicit background work:
// request paths enqueue and return immediately, workers publish, failures
// are logged and counted instead of silently swallowed. Persisted rows
// stay authoritative regardless of what happens here.
type Dispatcher struct {
	transport Transport
	queue     chan push

	mu      sync.Mutex
	closed  bool
	wg      sync.WaitGroup
	timeout time.Duration
}

// NewDispatcher starts the worker pool. queueSize bounds the backlog;
// when it is full new pushes are dropped and counted, never blocked on.
func NewDispatcher(transport Transport, workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 1024
	}

	d := &Dispatcher{
		transport: transport,
		queue:     make(chan push, queueSize),
		timeout:   5 * time.Second,
	}

	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d
}

// Enqueue schedules a push. Never blocks and never fails the caller.
func (d *Dispatcher) Enqueue(channel, event string, payload any) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		PushesDropped.Inc()
		return
	}
	select {
	case d.queue <- push{channel: channel, event: event, payload: payload}:
		PushQueueDepth.Inc()
	default:
		PushesDropped.Inc()
		logger.Warn("push queue full, dropping", "channel", channel, "event", event)
	}
	d.mu.Unlock()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for p := range d.queue {
		PushQueueDepth.Dec()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := d.transport.Publish(ctx, p.channel, p.event, p.payload)
		cancel()

		if err != nil {
			// Transient by definition: no inline retry, no rollback.
			PushFailuresTotal.WithLabelValues(p.event).Inc()
			pushErr := apperrors.NewTransientPushError(err, p.channel)
			logger.Warn("push delivery failed", "channel", p.channel, "event", p.event, "error", pushErr.Error())
			continue
		}
		PushesTotal.WithLabelValues(p.event).Inc()
	}
}

// Close stops accepting pushes and drains the backlog. Returns early with
// the context error if draining outlives ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
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
