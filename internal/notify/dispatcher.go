// Package notify delivers domain events to subscribers without blocking the
// operation that raised them.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/msomdec/updog/internal/domain"
)

// Envelope is the wire form of a dispatched event.
type Envelope struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	OccurredAt time.Time    `json:"occurredAt"`
	Payload    domain.Event `json:"payload"`
}

// Sink receives events from a Dispatcher.
type Sink interface {
	Publish(ctx context.Context, env Envelope) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, env Envelope) error

func (f SinkFunc) Publish(ctx context.Context, env Envelope) error { return f(ctx, env) }

const (
	DefaultQueueSize      = 256
	DefaultPublishTimeout = 5 * time.Second
)

// Dispatcher implements domain.EventNotifier. Dispatch enqueues and returns
// at once; a single worker hands each event to every sink in order. Sink
// errors are logged and dropped, as are events arriving while the queue is
// full or after Close.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan Envelope
	done   chan struct{}
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithQueueSize sets how many events may wait for delivery.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan Envelope, n)
		}
	}
}

// WithPublishTimeout bounds each sink call.
func WithPublishTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// NewDispatcher starts a dispatcher delivering to sinks.
func NewDispatcher(sinks []Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sinks:   sinks,
		timeout: DefaultPublishTimeout,
		queue:   make(chan Envelope, DefaultQueueSize),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	go d.run()
	return d
}

func (d *Dispatcher) Dispatch(ctx context.Context, event domain.Event) {
	env := Envelope{
		ID:         uuid.NewString(),
		Name:       event.EventName(),
		OccurredAt: time.Now().UTC(),
		Payload:    event,
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		slog.WarnContext(ctx, "event dropped: dispatcher closed", "event", env.Name, "event_id", env.ID)
		return
	}

	select {
	case d.queue <- env:
	default:
		slog.WarnContext(ctx, "event dropped: queue full", "event", env.Name, "event_id", env.ID)
	}
}

// Close stops accepting events and waits until queued events are delivered
// or ctx ends.
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
		return fmt.Errorf("drain events: %w", ctx.Err())
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for env := range d.queue {
		for _, sink := range d.sinks {
			d.publish(sink, env)
		}
	}
}

func (d *Dispatcher) publish(sink Sink, env Envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("event sink panicked", "sink", fmt.Sprintf("%T", sink), "event", env.Name, "event_id", env.ID, "panic", r)
		}
	}()

	if err := sink.Publish(ctx, env); err != nil {
		slog.Warn("event sink failed", "sink", fmt.Sprintf("%T", sink), "event", env.Name, "event_id", env.ID, "error", err)
	}
}

var _ domain.EventNotifier = (*Dispatcher)(nil)
