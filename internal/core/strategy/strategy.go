package strategy

import (
	"fmt"

	v1 "github.com/pulse-lab/pulse-reports/internal/api/v1"
	"github.com/pulse-lab/pulse-reports/internal/core/report"
)

// Reducer folds one event into an indicator set. Reducers must be pure
// (no I/O, no shared mutable state) and total: a missing or malformed payload
// field contributes zero, never an error. The registry hands each reducer its
// own copy of the current indicators, so in-place mutation is safe.
type Reducer func(event *v1.Event, indicators report.Indicators) (report.Indicators, error)

// Registry maps event types to reducers with a counting fallback.
// Register is startup-only: the registry is built once during assembly and
// then only read, so lookups need no synchronization.
type Registry struct {
	reducers map[string]Reducer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{reducers: make(map[string]Reducer)}
}

// Register installs a reducer for an event type. Registering the same type
// twice replaces the earlier reducer.
func (r *Registry) Register(eventType string, reducer Reducer) {
	r.reducers[eventType] = reducer
}

// Has reports whether a reducer is registered for the event type.
func (r *Registry) Has(eventType string) bool {
	_, ok := r.reducers[eventType]
	return ok
}

// Aggregate computes the next indicator set for an event. Unregistered event
// types fall back to the default counting rule. A reducer error or panic is
// returned to the caller; the event stays unmarked so redelivery can retry.
func (r *Registry) Aggregate(eventType string, event *v1.Event, current report.Indicators) (next report.Indicators, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("reducer for %q panicked: %v", eventType, p)
		}
	}()

	reducer, ok := r.reducers[eventType]
	if !ok {
		next = current.Clone()
		next.Inc("totalEvents")
		next.IncBreakdown("eventCounts", eventType)
		return next, nil
	}

	next, err = reducer(event, current.Clone())
	if err != nil {
		return report.Indicators{}, fmt.Errorf("reducer for %q: %w", eventType, err)
	}
	return next, nil
}
