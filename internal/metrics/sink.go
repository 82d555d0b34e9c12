package metrics

import "time"

// Sink defines the interface for recording metrics.
// All methods are fire-and-forget: implementations MUST NOT block or propagate errors.
// If the metrics backend is unavailable, implementations log warnings and continue.
type Sink interface {
	// Consumer metrics
	EventOutcome(outcome string, category string)
	AggregationCompleted(duration time.Duration, err error)
	EventsInFlightIncr()
	EventsInFlightDecr()

	// EventBus metrics
	BufferSizeUpdate(size int)
	EmitError()

	// Retention metrics
	LedgerPruned(removed int64)
}

// Outcome constants for EventOutcome metric.
const (
	OutcomeApplied          = "applied"
	OutcomeAlreadyProcessed = "already_processed"
	OutcomeNoEventID        = "no_event_id"
	OutcomeFailed           = "failed"
)
