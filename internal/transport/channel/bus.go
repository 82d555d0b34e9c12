// Package channel is the in-process event transport. Ingestion emits
// deliveries onto a buffered channel and consumer workers drain it; an
// external broker could replace this package behind the same surface.
package channel

import (
	"context"
	"errors"
	"time"

	v1 "github.com/pulse-lab/pulse-reports/internal/api/v1"
)

// ErrBufferFull is returned when an emit cannot enqueue within the emit timeout.
var ErrBufferFull = errors.New("event bus buffer full")

// DefaultEmitTimeout bounds how long Emit blocks on a full buffer.
const DefaultEmitTimeout = 5 * time.Second

// Delivery is one event plus the subject it arrived on. The subject drives
// category resolution; the event id drives dedup.
type Delivery struct {
	Subject string
	Event   *v1.Event
}

// BusMetrics is the subset of the metrics sink the bus reports to.
type BusMetrics interface {
	BufferSizeUpdate(size int)
	EmitError()
}

type EventBus struct {
	ch          chan Delivery
	emitTimeout time.Duration
	metrics     BusMetrics
}

type Option func(*EventBus)

// WithEmitTimeout overrides the emit timeout.
func WithEmitTimeout(d time.Duration) Option {
	return func(b *EventBus) {
		b.emitTimeout = d
	}
}

// WithMetrics attaches a metrics sink to the bus.
func WithMetrics(m BusMetrics) Option {
	return func(b *EventBus) {
		b.metrics = m
	}
}

func NewEventBus(buffer int, opts ...Option) *EventBus {
	b := &EventBus{
		ch:          make(chan Delivery, buffer),
		emitTimeout: DefaultEmitTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Emit enqueues a delivery, blocking up to the emit timeout when the buffer
// is full. Context cancellation wins over the timeout.
func (b *EventBus) Emit(ctx context.Context, d Delivery) error {
	timer := time.NewTimer(b.emitTimeout)
	defer timer.Stop()

	select {
	case b.ch <- d:
		if b.metrics != nil {
			b.metrics.BufferSizeUpdate(len(b.ch))
		}
		return nil
	case <-ctx.Done():
		if b.metrics != nil {
			b.metrics.EmitError()
		}
		return ctx.Err()
	case <-timer.C:
		if b.metrics != nil {
			b.metrics.EmitError()
		}
		return ErrBufferFull
	}
}

// Channel exposes the receive side for consumer workers.
func (b *EventBus) Channel() <-chan Delivery {
	return b.ch
}

// Close stops accepting deliveries. Pending buffered deliveries remain
// readable until drained.
func (b *EventBus) Close() {
	close(b.ch)
}
