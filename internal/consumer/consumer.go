// Package consumer runs the competing-consumer workers that drain the event
// bus into the aggregation pipeline.
package consumer

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	v1 "github.com/pulse-lab/pulse-reports/internal/api/v1"
	"github.com/pulse-lab/pulse-reports/internal/pipeline"
	"github.com/pulse-lab/pulse-reports/internal/transport/channel"
)

// DrainTimeout is the maximum time to wait for buffered deliveries during shutdown.
const DrainTimeout = 30 * time.Second

// Executor is the pipeline surface the consumer drives.
type Executor interface {
	Execute(ctx context.Context, event *v1.Event, subject string) (pipeline.Outcome, error)
}

// InFlightTracker is the subset of the metrics sink the consumer reports to.
type InFlightTracker interface {
	EventsInFlightIncr()
	EventsInFlightDecr()
}

type Consumer struct {
	pipeline  Executor
	workers   int
	opTimeout time.Duration
	metrics   InFlightTracker // optional, nil = disabled
}

func New(p Executor, workers int, opTimeout time.Duration) *Consumer {
	if workers < 1 {
		workers = 1
	}
	return &Consumer{
		pipeline:  p,
		workers:   workers,
		opTimeout: opTimeout,
	}
}

// WithMetrics attaches a metrics sink to the consumer.
func (c *Consumer) WithMetrics(m InFlightTracker) *Consumer {
	c.metrics = m
	return c
}

// Run starts the worker pool and blocks until every worker has returned.
// Cancelling ctx stops intake; each worker then drains remaining buffered
// deliveries under a bounded drain context before exiting.
func (c *Consumer) Run(ctx context.Context, ch <-chan channel.Delivery) error {
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < c.workers; i++ {
		worker := i
		g.Go(func() error {
			c.runWorker(gctx, worker, ch)
			return nil
		})
	}

	err := g.Wait()
	slog.Info("[Consumer] All workers stopped", "workers", c.workers)
	return err
}

func (c *Consumer) runWorker(ctx context.Context, worker int, ch <-chan channel.Delivery) {
	for {
		select {
		case <-ctx.Done():
			c.drain(worker, ch)
			return
		case d, ok := <-ch:
			if !ok {
				return
			}
			c.process(worker, d)
		}
	}
}

// drain finishes buffered deliveries after the shutdown signal. The fresh
// context only bounds how long the loop keeps pulling from the channel; each
// delivery carries its own per-op timeout via process.
func (c *Consumer) drain(worker int, ch <-chan channel.Delivery) {
	drainCtx, cancel := context.WithTimeout(context.Background(), DrainTimeout)
	defer cancel()

	count := 0
	for {
		select {
		case <-drainCtx.Done():
			slog.Warn("[Consumer] Drain timeout", "worker", worker, "drained", count)
			return
		case d, ok := <-ch:
			if !ok {
				if count > 0 {
					slog.Info("[Consumer] Drain complete", "worker", worker, "drained", count)
				}
				return
			}
			c.process(worker, d)
			count++
		default:
			if count > 0 {
				slog.Info("[Consumer] Drain complete", "worker", worker, "drained", count)
			}
			return
		}
	}
}

// process runs one delivery to a terminal state. The operation context is
// deliberately not derived from the worker context: a shutdown signal must
// stop intake, not abort the delivery already being aggregated. The per-op
// timeout is the only bound.
func (c *Consumer) process(worker int, d channel.Delivery) {
	if c.metrics != nil {
		c.metrics.EventsInFlightIncr()
		defer c.metrics.EventsInFlightDecr()
	}

	bound := c.opTimeout
	if bound <= 0 {
		bound = DrainTimeout
	}
	opCtx, cancel := context.WithTimeout(context.Background(), bound)
	defer cancel()

	outcome, err := c.pipeline.Execute(opCtx, d.Event, d.Subject)
	if err != nil {
		slog.Error("[Consumer] Aggregation failed",
			"worker", worker,
			"subject", d.Subject,
			"error", err)
		return
	}
	if !outcome.Success {
		slog.Warn("[Consumer] Event rejected",
			"worker", worker,
			"subject", d.Subject,
			"reason", outcome.Reason)
	}
}
