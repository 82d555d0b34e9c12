package metrics

import "time"

// NoopSink is a no-op implementation of Sink.
// Used when metrics are disabled to avoid nil checks.
type NoopSink struct{}

// NewNoopSink returns a no-op metrics sink.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (n *NoopSink) EventOutcome(outcome string, category string)               {}
func (n *NoopSink) AggregationCompleted(duration time.Duration, err error)     {}
func (n *NoopSink) EventsInFlightIncr()                                        {}
func (n *NoopSink) EventsInFlightDecr()                                        {}
func (n *NoopSink) BufferSizeUpdate(size int)                                  {}
func (n *NoopSink) EmitError()                                                 {}
func (n *NoopSink) LedgerPruned(removed int64)                                 {}
