// Package pipeline drives one event through resolution, aggregation and the
// idempotency ledger. It performs no retries; redelivery belongs to the
// transport feeding it.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	v1 "github.com/pulse-lab/pulse-reports/internal/api/v1"
	"github.com/pulse-lab/pulse-reports/internal/core/period"
	"github.com/pulse-lab/pulse-reports/internal/core/report"
	"github.com/pulse-lab/pulse-reports/internal/core/storage"
	"github.com/pulse-lab/pulse-reports/internal/core/strategy"
	"github.com/pulse-lab/pulse-reports/internal/metrics"
)

// Outcome reasons surfaced to the caller.
const (
	ReasonNoEventID        = "no_event_id"
	ReasonAlreadyProcessed = "already_processed"
)

// Outcome is the per-event processing verdict. Success=false only for events
// that can never be processed (no id); a duplicate is a successful no-op.
type Outcome struct {
	Success  bool
	Reason   string
	ReportID string
}

// Store is the persistence surface the pipeline needs.
type Store interface {
	storage.ReportStore
	storage.Ledger
}

type Pipeline struct {
	store       Store
	committer   storage.AtomicCommitter // nil when store cannot join the writes
	registry    *strategy.Registry
	mapper      *CategoryMapper
	granularity period.Granularity
	sink        metrics.Sink
	clock       func() time.Time
}

type Option func(*Pipeline)

// WithClock overrides the arrival-time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.clock = now
	}
}

// WithGranularity changes the bucketing granularity from the daily default.
func WithGranularity(g period.Granularity) Option {
	return func(p *Pipeline) {
		p.granularity = g
	}
}

// New builds a pipeline. When store also implements storage.AtomicCommitter,
// the ledger mark and indicator update commit in one transaction; otherwise
// the ledger mark runs last, so a crash between the two writes leaves the
// event unmarked and safe to redeliver.
func New(store Store, registry *strategy.Registry, mapper *CategoryMapper, sink metrics.Sink, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:       store,
		registry:    registry,
		mapper:      mapper,
		granularity: period.Daily,
		sink:        sink,
		clock:       time.Now,
	}
	if committer, ok := store.(storage.AtomicCommitter); ok {
		p.committer = committer
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Execute processes one event end to end. The returned error means the event
// was neither applied nor marked; the caller may redeliver it.
func (p *Pipeline) Execute(ctx context.Context, event *v1.Event, subject string) (Outcome, error) {
	if event == nil || event.ID == "" {
		slog.Warn("[Pipeline] Dropping event without id", "subject", subject)
		p.sink.EventOutcome(metrics.OutcomeNoEventID, DefaultCategory)
		return Outcome{Success: false, Reason: ReasonNoEventID}, nil
	}

	category := p.mapper.Resolve(subject)

	processed, err := p.store.IsProcessed(ctx, event.ID)
	if err != nil {
		p.sink.EventOutcome(metrics.OutcomeFailed, category)
		return Outcome{}, fmt.Errorf("dedup check for event %s: %w", event.ID, err)
	}
	if processed {
		slog.Debug("[Pipeline] Skipping processed event", "event_id", event.ID)
		p.sink.EventOutcome(metrics.OutcomeAlreadyProcessed, category)
		return Outcome{Success: true, Reason: ReasonAlreadyProcessed}, nil
	}

	ts := event.Timestamp
	if ts.IsZero() {
		ts = p.clock()
	}
	bucket := period.Resolve(ts, p.granularity)

	rep, err := p.store.FindOrCreate(ctx, category, bucket)
	if err != nil {
		p.sink.EventOutcome(metrics.OutcomeFailed, category)
		return Outcome{}, fmt.Errorf("find report for event %s: %w", event.ID, err)
	}

	// Reducers dispatch on the delivery subject, same key the category table
	// routes on. Events handed over without a subject fall back to their type.
	dispatch := subject
	if dispatch == "" {
		dispatch = event.Type
	}
	compute := func(current report.Indicators) (report.Indicators, error) {
		return p.registry.Aggregate(dispatch, event, current)
	}

	started := p.clock()
	rep, applied, err := p.commit(ctx, event.ID, rep.ID, compute)
	p.sink.AggregationCompleted(p.clock().Sub(started), err)
	if err != nil {
		p.sink.EventOutcome(metrics.OutcomeFailed, category)
		return Outcome{}, fmt.Errorf("commit aggregation for event %s: %w", event.ID, err)
	}
	if !applied {
		// Lost the mark race to a concurrent worker after the advisory check.
		p.sink.EventOutcome(metrics.OutcomeAlreadyProcessed, category)
		return Outcome{Success: true, Reason: ReasonAlreadyProcessed}, nil
	}

	slog.Debug("[Pipeline] Aggregated event",
		"event_id", event.ID,
		"event_type", event.Type,
		"category", category,
		"report_id", rep.ID)
	p.sink.EventOutcome(metrics.OutcomeApplied, category)
	return Outcome{Success: true, ReportID: rep.ID}, nil
}

func (p *Pipeline) commit(ctx context.Context, eventID, reportID string, compute storage.IndicatorUpdate) (*report.Report, bool, error) {
	if p.committer != nil {
		return p.committer.CommitAggregation(ctx, eventID, reportID, compute)
	}

	rep, err := p.store.ApplyIndicatorUpdate(ctx, reportID, compute)
	if err != nil {
		return nil, false, err
	}
	applied, err := p.store.MarkProcessed(ctx, eventID)
	if err != nil {
		return nil, false, err
	}
	return rep, applied, nil
}
