package email

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ErlanBelekov/gallerio/internal/metrics"
	"github.com/sethvargo/go-retry"
)

const (
	defaultQueueSize   = 256
	defaultSendTimeout = 30 * time.Second
	defaultMaxRetries  = 3
	defaultBackoffBase = 500 * time.Millisecond
)

// ErrDispatcherClosed is returned by Enqueue after Close.
var ErrDispatcherClosed = errors.New("email dispatcher closed")

// Dispatcher delivers mail on a background goroutine so callers never wait
// on the mail provider. Delivery is best-effort: failures are retried with
// exponential backoff, then logged and counted.
type Dispatcher struct {
	sender      Sender
	logger      *slog.Logger
	queue       chan Message
	sendTimeout time.Duration
	maxRetries  uint64
	backoffBase time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

type DispatcherOption func(*Dispatcher)

func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) { d.queue = make(chan Message, n) }
}

func WithRetry(maxRetries uint64, base time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.maxRetries = maxRetries
		d.backoffBase = base
	}
}

// NewDispatcher starts the delivery goroutine; stop it with Close.
func NewDispatcher(sender Sender, logger *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		sender:      sender,
		logger:      logger.With("component", "email_dispatcher"),
		queue:       make(chan Message, defaultQueueSize),
		sendTimeout: defaultSendTimeout,
		maxRetries:  defaultMaxRetries,
		backoffBase: defaultBackoffBase,
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	go d.run()
	return d
}

// Enqueue hands a message to the delivery goroutine without blocking.
// A full queue drops the message.
func (d *Dispatcher) Enqueue(ctx context.Context, msg Message) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.queue <- msg:
		return nil
	default:
		metrics.EmailsTotal.WithLabelValues("dropped").Inc()
		d.logger.WarnContext(ctx, "email queue full, dropping message", "category", msg.Category)
		return errors.New("email queue full")
	}
}

// Close stops accepting messages and waits for queued ones to be delivered
// or for ctx to end, whichever comes first.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for msg := range d.queue {
		d.deliver(msg)
	}
}

func (d *Dispatcher) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	backoff := retry.WithMaxRetries(d.maxRetries, retry.NewExponential(d.backoffBase))

	attempts := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		if err := d.sender.Send(ctx, msg); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		metrics.EmailsTotal.WithLabelValues("failed").Inc()
		d.logger.Error("email delivery failed", "category", msg.Category, "attempts", attempts, "error", err)
		return
	}
	metrics.EmailsTotal.WithLabelValues("sent").Inc()
}
