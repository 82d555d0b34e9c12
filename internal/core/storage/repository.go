package storage

import (
	"context"
	"errors"
	"time"

	"github.com/pulse-lab/pulse-reports/internal/core/period"
	"github.com/pulse-lab/pulse-reports/internal/core/report"
)

var (
	// ErrNotFound is returned when a report does not exist.
	ErrNotFound = errors.New("report not found")

	// ErrEmptyEventID is returned when a ledger operation is attempted with
	// an empty event id. The pipeline filters these before calling.
	ErrEmptyEventID = errors.New("event id must not be empty")
)

// IndicatorUpdate is the pure transformation a commit applies to a report's
// current indicators. Implementations call it at most once, under whatever
// serialization they use for the read-modify-write.
type IndicatorUpdate func(current report.Indicators) (report.Indicators, error)

// ReportStore is the write contract for the report aggregate.
type ReportStore interface {
	// FindOrCreate returns the report for (category, period), creating it with
	// empty indicators if absent. Safe under concurrent invocation for the
	// same key: exactly one report per key is ever observable. Races are
	// resolved by returning the winner to the loser, never by duplicating.
	FindOrCreate(ctx context.Context, category string, p period.Period) (*report.Report, error)

	// ApplyIndicatorUpdate applies compute atomically with respect to other
	// concurrent updates on the same report. The read-modify-write is
	// serialized by the store; an unguarded read-merge-overwrite would lose
	// concurrent updates and is not an acceptable implementation.
	ApplyIndicatorUpdate(ctx context.Context, reportID string, compute IndicatorUpdate) (*report.Report, error)
}

// Ledger is the durable set of already-applied event ids.
type Ledger interface {
	// IsProcessed is an advisory read used for fast-path short-circuiting.
	// It may be stale immediately after concurrent writes and is never the
	// sole correctness gate.
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// MarkProcessed atomically inserts eventID if absent. Exactly one caller
	// over the ledger's lifetime observes applied=true; every later call
	// returns applied=false without error. Duplicate marking is an ordinary
	// outcome, not a fault.
	MarkProcessed(ctx context.Context, eventID string) (applied bool, err error)
}

// PrunableLedger supports retention-window cleanup. Idempotency is only
// guaranteed within the retention window; redelivery after an entry has been
// pruned is a documented gap, not a bug.
type PrunableLedger interface {
	Ledger

	// PruneProcessedBefore removes ledger entries processed before cutoff and
	// returns how many were removed.
	PruneProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// AtomicCommitter commits the ledger mark and the indicator update as one
// unit, so a crash can never leave the event marked but not applied (or the
// reverse). Stores backed by a transactional engine implement this; the
// pipeline prefers it over sequencing the two writes.
type AtomicCommitter interface {
	// CommitAggregation marks eventID processed and applies compute to the
	// report in a single atomic unit. applied=false means the event id was
	// already ledgered and no indicator change was made.
	CommitAggregation(ctx context.Context, eventID, reportID string, compute IndicatorUpdate) (r *report.Report, applied bool, err error)
}

// ReportFilter scopes a report listing.
type ReportFilter struct {
	Category    string
	PeriodStart time.Time // match reports whose period starts at or after
	PeriodEnd   time.Time // match reports whose period starts at or before
	Status      report.Status
	Page        int
	Limit       int
}

// Page is one page of a report listing.
type Page struct {
	Reports []*report.Report
	Total   int64
	PerPage int
	PageNum int
}

// Pages returns the total page count for the listing.
func (p Page) Pages() int64 {
	if p.PerPage <= 0 {
		return 0
	}
	return (p.Total + int64(p.PerPage) - 1) / int64(p.PerPage)
}

// ReportQueries is the read-side contract consumed by the query API.
// It never mutates reports.
type ReportQueries interface {
	FindByID(ctx context.Context, id string) (*report.Report, error)
	FindByFilter(ctx context.Context, f ReportFilter) (*Page, error)

	// ListForMetrics returns all reports whose period starts inside [from, to]
	// (zero bounds are open) for the metrics rollup.
	ListForMetrics(ctx context.Context, from, to time.Time) ([]*report.Report, error)
}
