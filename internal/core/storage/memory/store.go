package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pulse-lab/pulse-reports/internal/core/period"
	"github.com/pulse-lab/pulse-reports/internal/core/report"
	"github.com/pulse-lab/pulse-reports/internal/core/storage"
)

type bucketKey struct {
	Category string
	Start    int64 // unix millis; Period values for one bucket are identical
	End      int64
}

// Store is an in-memory implementation of the report store, the ledger, and
// the atomic committer. Useful for testing and development; a single mutex
// provides the same observable atomicity the postgres adapter gets from
// transactions and row locks.
type Store struct {
	mu        sync.Mutex
	reports   map[string]*report.Report // by id
	byBucket  map[bucketKey]string      // (category, period) -> id
	processed map[string]time.Time      // event id -> processed at
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		reports:   make(map[string]*report.Report),
		byBucket:  make(map[bucketKey]string),
		processed: make(map[string]time.Time),
	}
}

func keyOf(category string, p period.Period) bucketKey {
	return bucketKey{Category: category, Start: p.Start.UnixMilli(), End: p.End.UnixMilli()}
}

// FindOrCreate returns the report for (category, period), creating it if absent.
func (s *Store) FindOrCreate(ctx context.Context, category string, p period.Period) (*report.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findOrCreateLocked(category, p)
}

func (s *Store) findOrCreateLocked(category string, p period.Period) (*report.Report, error) {
	if id, ok := s.byBucket[keyOf(category, p)]; ok {
		return cloneReport(s.reports[id]), nil
	}

	r, err := report.New(category, p)
	if err != nil {
		return nil, err
	}
	r.ID = uuid.New().String()
	r.UpdatedAt = r.GeneratedAt

	s.reports[r.ID] = r
	s.byBucket[keyOf(category, p)] = r.ID
	return cloneReport(r), nil
}

// ApplyIndicatorUpdate applies compute under the store mutex.
func (s *Store) ApplyIndicatorUpdate(ctx context.Context, reportID string, compute storage.IndicatorUpdate) (*report.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(reportID, compute)
}

func (s *Store) applyLocked(reportID string, compute storage.IndicatorUpdate) (*report.Report, error) {
	r, ok := s.reports[reportID]
	if !ok {
		return nil, storage.ErrNotFound
	}

	next, err := compute(r.Indicators.Clone())
	if err != nil {
		return nil, err
	}

	r.Indicators = next
	r.UpdatedAt = time.Now().UTC()
	return cloneReport(r), nil
}

// IsProcessed is the advisory dedup read.
func (s *Store) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, storage.ErrEmptyEventID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.processed[eventID]
	return ok, nil
}

// MarkProcessed inserts eventID if absent; exactly one caller gets applied=true.
func (s *Store) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, storage.ErrEmptyEventID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markLocked(eventID), nil
}

func (s *Store) markLocked(eventID string) bool {
	if _, ok := s.processed[eventID]; ok {
		return false
	}
	s.processed[eventID] = time.Now().UTC()
	return true
}

// CommitAggregation performs the ledger mark and indicator update as one unit.
func (s *Store) CommitAggregation(ctx context.Context, eventID, reportID string, compute storage.IndicatorUpdate) (*report.Report, bool, error) {
	if eventID == "" {
		return nil, false, storage.ErrEmptyEventID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.processed[eventID]; ok {
		return nil, false, nil
	}

	r, err := s.applyLocked(reportID, compute)
	if err != nil {
		return nil, false, err
	}

	s.processed[eventID] = time.Now().UTC()
	return r, true, nil
}

// PruneProcessedBefore drops ledger entries older than cutoff.
func (s *Store) PruneProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, at := range s.processed {
		if at.Before(cutoff) {
			delete(s.processed, id)
			n++
		}
	}
	return n, nil
}

// FindByID returns the report with the given id.
func (s *Store) FindByID(ctx context.Context, id string) (*report.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reports[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneReport(r), nil
}

// FindByFilter lists reports matching the filter, newest first.
func (s *Store) FindByFilter(ctx context.Context, f storage.ReportFilter) (*storage.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*report.Report
	for _, r := range s.reports {
		if !matchesFilter(r, f) {
			continue
		}
		matched = append(matched, cloneReport(r))
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].GeneratedAt.After(matched[j].GeneratedAt)
	})

	page := f.Page
	if page < 1 {
		page = 1
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}

	total := int64(len(matched))
	start := (page - 1) * limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}

	return &storage.Page{
		Reports: matched[start:end],
		Total:   total,
		PerPage: limit,
		PageNum: page,
	}, nil
}

// ListForMetrics returns reports whose period starts inside [from, to].
func (s *Store) ListForMetrics(ctx context.Context, from, to time.Time) ([]*report.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*report.Report
	for _, r := range s.reports {
		if !from.IsZero() && r.Period.Start.Before(from) {
			continue
		}
		if !to.IsZero() && r.Period.Start.After(to) {
			continue
		}
		out = append(out, cloneReport(r))
	}
	return out, nil
}

func matchesFilter(r *report.Report, f storage.ReportFilter) bool {
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if !f.PeriodStart.IsZero() && r.Period.Start.Before(f.PeriodStart) {
		return false
	}
	if !f.PeriodEnd.IsZero() && r.Period.Start.After(f.PeriodEnd) {
		return false
	}
	return true
}

func cloneReport(r *report.Report) *report.Report {
	cp := *r
	cp.Indicators = r.Indicators.Clone()
	if r.Metadata != nil {
		cp.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}
