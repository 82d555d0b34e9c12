package report

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Indicators holds the accumulated metric values of a report.
// A key maps either to a scalar counter or to a nested per-label breakdown
// (e.g. notificationsByType.email). Values use exact decimal arithmetic so
// monetary totals never drift under repeated accumulation.
type Indicators struct {
	Counters   map[string]decimal.Decimal
	Breakdowns map[string]map[string]decimal.Decimal
}

// NewIndicators returns an empty indicator set.
func NewIndicators() Indicators {
	return Indicators{
		Counters:   make(map[string]decimal.Decimal),
		Breakdowns: make(map[string]map[string]decimal.Decimal),
	}
}

// Clone returns a deep copy. The aggregation strategy hands each reducer its
// own copy, so reducers may mutate freely without aliasing stored state.
func (in Indicators) Clone() Indicators {
	out := NewIndicators()
	for k, v := range in.Counters {
		out.Counters[k] = v
	}
	for group, labels := range in.Breakdowns {
		m := make(map[string]decimal.Decimal, len(labels))
		for label, v := range labels {
			m[label] = v
		}
		out.Breakdowns[group] = m
	}
	return out
}

// Counter returns the scalar value for key, or zero when absent.
func (in Indicators) Counter(key string) decimal.Decimal {
	if in.Counters == nil {
		return decimal.Zero
	}
	return in.Counters[key]
}

// Breakdown returns the value for a label inside a breakdown group, or zero.
func (in Indicators) Breakdown(group, label string) decimal.Decimal {
	if in.Breakdowns == nil {
		return decimal.Zero
	}
	return in.Breakdowns[group][label]
}

// Add increments the scalar counter for key by delta.
func (in *Indicators) Add(key string, delta decimal.Decimal) {
	if in.Counters == nil {
		in.Counters = make(map[string]decimal.Decimal)
	}
	in.Counters[key] = in.Counters[key].Add(delta)
}

// Inc increments the scalar counter for key by one.
func (in *Indicators) Inc(key string) {
	in.Add(key, decimal.NewFromInt(1))
}

// AddBreakdown increments a label inside a breakdown group by delta.
func (in *Indicators) AddBreakdown(group, label string, delta decimal.Decimal) {
	if in.Breakdowns == nil {
		in.Breakdowns = make(map[string]map[string]decimal.Decimal)
	}
	labels, ok := in.Breakdowns[group]
	if !ok {
		labels = make(map[string]decimal.Decimal)
		in.Breakdowns[group] = labels
	}
	labels[label] = labels[label].Add(delta)
}

// IncBreakdown increments a label inside a breakdown group by one.
func (in *Indicators) IncBreakdown(group, label string) {
	in.AddBreakdown(group, label, decimal.NewFromInt(1))
}

// Len returns the number of top-level indicator keys.
func (in Indicators) Len() int {
	return len(in.Counters) + len(in.Breakdowns)
}

// MarshalJSON flattens counters and breakdowns into a single object:
// {"totalOrders":"2","notificationsByType":{"email":"1"}}.
func (in Indicators) MarshalJSON() ([]byte, error) {
	flat := make(map[string]interface{}, in.Len())
	for k, v := range in.Counters {
		flat[k] = v
	}
	for group, labels := range in.Breakdowns {
		flat[group] = labels
	}
	return json.Marshal(flat)
}

// UnmarshalJSON is the inverse of MarshalJSON. Scalar values may arrive as
// JSON numbers or as decimal strings; nested objects become breakdowns.
func (in *Indicators) UnmarshalJSON(b []byte) error {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(b, &flat); err != nil {
		return err
	}

	*in = NewIndicators()
	for key, raw := range flat {
		if len(raw) > 0 && raw[0] == '{' {
			var labels map[string]decimal.Decimal
			if err := json.Unmarshal(raw, &labels); err != nil {
				return fmt.Errorf("indicator %q: %w", key, err)
			}
			in.Breakdowns[key] = labels
			continue
		}

		var v decimal.Decimal
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("indicator %q: %w", key, err)
		}
		in.Counters[key] = v
	}
	return nil
}
