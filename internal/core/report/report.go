package report

import (
	"fmt"
	"time"

	"github.com/pulse-lab/pulse-reports/internal/core/period"
)

// Status is the lifecycle state of a report. The pipeline only ever produces
// fully generated reports; there are no transitional states.
type Status string

const StatusGenerated Status = "generated"

// Report is the durable, per-(category, period) accumulator of indicators.
// At most one report exists per (category, period) pair; the store enforces
// that with a uniqueness constraint, not best-effort checks.
type Report struct {
	// ID is assigned by the store on creation.
	ID          string            `json:"id"`
	Category    string            `json:"category"`
	Period      period.Period     `json:"period"`
	Indicators  Indicators        `json:"indicators"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Status      Status            `json:"status"`
	GeneratedAt time.Time         `json:"generated_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// New creates a report shell for a bucket with empty indicators.
// The store assigns the ID when it persists the report.
func New(category string, p period.Period) (*Report, error) {
	if category == "" {
		return nil, fmt.Errorf("report category is required")
	}
	if p.Start.After(p.End) {
		return nil, fmt.Errorf("report period start must not be after end")
	}

	return &Report{
		Category:    category,
		Period:      p,
		Indicators:  NewIndicators(),
		Metadata:    map[string]string{"createdBy": "aggregator"},
		Status:      StatusGenerated,
		GeneratedAt: time.Now().UTC(),
	}, nil
}
