package mailer

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/Inur123/Be-Laci/internal/obs"
)

// Dispatcher drains an in-memory FIFO queue with a bounded number of
// concurrent deliveries. Enqueue never blocks and never surfaces transport
// failures to the caller; with a nil transport every enqueue is a silent
// no-op.
type Dispatcher struct {
	transport   Transport
	concurrency int
	log         *zap.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Message
	closed bool

	wg sync.WaitGroup
}

// NewDispatcher starts the worker pool. concurrency values below 1 are
// clamped to 1.
func NewDispatcher(transport Transport, concurrency int, log *zap.Logger) *Dispatcher {
	if concurrency < 1 {
		concurrency = 1
	}
	d := &Dispatcher{
		transport:   transport,
		concurrency: concurrency,
		log:         log,
	}
	d.cond = sync.NewCond(&d.mu)
	for i := 0; i < concurrency; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Enqueue appends a message to the queue. Messages without recipients are
// dropped. Fire-and-forget: the return is immediate.
func (d *Dispatcher) Enqueue(msg Message) {
	if d.transport == nil || len(msg.To) == 0 {
		return
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.queue = append(d.queue, msg)
	d.mu.Unlock()
	obs.MailEnqueued()
	d.cond.Signal()
}

// Pending reports the number of queued, not yet picked up messages.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Close drains the queue and stops the workers. Blocks until in-flight
// deliveries finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()
	d.cond.Broadcast()
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.closed {
			d.cond.Wait()
		}
		if len(d.queue) == 0 && d.closed {
			d.mu.Unlock()
			return
		}
		msg := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()

		if err := d.transport.Send(context.Background(), msg); err != nil {
			obs.MailFailed()
			d.log.Warn("mailer: delivery failed",
				zap.String("subject", msg.Subject), zap.Error(err))
		}
	}
}
