// Package publisher fans audit events from the session controller into an
// audit.Store, either synchronously or through a bounded async buffer.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	audit "eidgate/pkg/platform/audit"
	"eidgate/pkg/platform/audit/worker"
	"eidgate/pkg/platform/circuit"
	"eidgate/pkg/platform/sentinel"
)

var (
	ErrBufferFull = errors.New("audit buffer full")
	ErrClosed     = errors.New("audit publisher closed")
)

// Publisher emits audit events. With an async buffer, Emit never waits on
// the store; events are drained by a worker and flushed on Close.
type Publisher struct {
	store   audit.Store
	sink    *guardedStore
	logger  *slog.Logger
	now     func() time.Time
	metrics *Metrics
	breaker *circuit.Breaker

	bufferSize int
	buffer     chan audit.Event
	done       chan struct{}

	mu     sync.RWMutex
	closed bool
}

type Option func(*Publisher)

// WithAsyncBuffer enables async mode with a buffer of size n.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		p.bufferSize = n
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithBreaker stops store calls while b is open. Events emitted meanwhile are
// dropped.
func WithBreaker(b *circuit.Breaker) Option {
	return func(p *Publisher) {
		p.breaker = b
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		p.now = now
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.sink = &guardedStore{store: p.store, breaker: p.breaker, metrics: p.metrics, logger: p.logger}

	if p.bufferSize > 0 {
		p.buffer = make(chan audit.Event, p.bufferSize)
		p.done = make(chan struct{})
		w := worker.NewWorker(p.sink, p.buffer, p.logger)
		go func() {
			defer close(p.done)
			_ = w.Run(context.Background())
		}()
	}
	return p
}

// Emit records an event. The category is derived from the action and the
// timestamp is set when missing.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	event.Category = audit.Action(event.Action).Category()

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	if p.buffer == nil {
		return p.sink.Append(ctx, event)
	}

	select {
	case p.buffer <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.metrics.incDropped("buffer_full")
		p.logger.WarnContext(ctx, "audit buffer full, dropping event",
			"action", event.Action,
			"attempt_id", event.AttemptID,
		)
		return ErrBufferFull
	}
}

// List returns the events of one attempt when the store can read them back.
func (p *Publisher) List(ctx context.Context, attemptID string) ([]audit.Event, error) {
	lister, ok := p.store.(audit.Lister)
	if !ok {
		return nil, sentinel.ErrUnavailable
	}
	return lister.ListByAttempt(ctx, attemptID)
}

// Close stops accepting events and, in async mode, waits until the buffer is
// drained into the store. It is safe to call more than once.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	if p.buffer != nil {
		close(p.buffer)
	}
	p.mu.Unlock()

	if p.done != nil {
		<-p.done
	}
}
