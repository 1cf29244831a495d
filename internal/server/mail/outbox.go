package mail

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophid/internal/logging"
	"github.com/dmitrijs2005/gophid/internal/server/metrics"
)

const (
	defaultQueueSize = 100
	defaultTimeout   = 10 * time.Second
)

// Outbox queues messages in memory and hands them to the wrapped
// Dispatcher from a single worker goroutine. Send never waits on the
// transport; delivery failures are logged and counted, not returned.
type Outbox struct {
	next    Dispatcher
	log     logging.Logger
	metrics *metrics.Metrics
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan Message
	done   chan struct{}
}

type OutboxOption func(*Outbox)

func WithQueueSize(n int) OutboxOption {
	return func(o *Outbox) {
		if n > 0 {
			o.queue = make(chan Message, n)
		}
	}
}

// WithDeliveryTimeout bounds each delivery attempt.
func WithDeliveryTimeout(d time.Duration) OutboxOption {
	return func(o *Outbox) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) OutboxOption {
	return func(o *Outbox) { o.metrics = m }
}

// NewOutbox starts the delivery worker. Call Close to stop it.
func NewOutbox(next Dispatcher, log logging.Logger, opts ...OutboxOption) *Outbox {
	o := &Outbox{
		next:    next,
		log:     log.With("module", "outbox"),
		timeout: defaultTimeout,
		queue:   make(chan Message, defaultQueueSize),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}

	go o.run()

	return o
}

// Send enqueues msg. It fails with ErrOutboxFull when the queue has no room
// and with ErrOutboxClosed after Close.
func (o *Outbox) Send(ctx context.Context, msg Message) error {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.closed {
		return ErrOutboxClosed
	}

	select {
	case o.queue <- msg:
		o.gauge()
		return nil
	default:
		return ErrOutboxFull
	}
}

// Close stops accepting messages and waits until the queue is drained or
// ctx is done.
func (o *Outbox) Close(ctx context.Context) error {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.queue)
	}
	o.mu.Unlock()

	select {
	case <-o.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Outbox) run() {
	defer close(o.done)

	for msg := range o.queue {
		o.gauge()
		o.deliver(msg)
	}
}

func (o *Outbox) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	err := o.next.Send(ctx, msg)
	if o.metrics != nil {
		o.metrics.MailDelivery.WithLabelValues(metrics.Result(err)).Inc()
	}
	if err != nil {
		o.log.Error(ctx, "mail delivery failed", "to", msg.To, "subject", msg.Subject, "error", err)
		return
	}
	o.log.Debug(ctx, "mail delivered", "to", msg.To, "subject", msg.Subject)
}

func (o *Outbox) gauge() {
	if o.metrics != nil {
		o.metrics.MailQueued.Set(float64(len(o.queue)))
	}
}
