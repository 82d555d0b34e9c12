// Package query is the read-only API over stored reports. It never writes;
// aggregation is the pipeline's job.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pulse-lab/pulse-reports/internal/core/report"
	"github.com/pulse-lab/pulse-reports/internal/core/storage"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// ErrInvalidFilter marks request validation errors that should return HTTP 400.
var ErrInvalidFilter = errors.New("invalid report filter")

type Service struct {
	store storage.ReportQueries
}

func NewService(store storage.ReportQueries) *Service {
	return &Service{store: store}
}

// ListReports returns a page of reports matching the filter, newest first.
func (s *Service) ListReports(ctx context.Context, req ListReportsRequest) (*ListReportsResponse, error) {
	filter, err := s.buildFilter(req)
	if err != nil {
		return nil, err
	}

	page, err := s.store.FindByFilter(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	reports := page.Reports
	if reports == nil {
		reports = []*report.Report{}
	}

	return &ListReportsResponse{
		Reports:    reports,
		Total:      page.Total,
		Page:       page.PageNum,
		PerPage:    page.PerPage,
		TotalPages: page.Pages(),
	}, nil
}

// GetReport returns one report by id. storage.ErrNotFound passes through for
// the handler to map onto 404.
func (s *Service) GetReport(ctx context.Context, id string) (*report.Report, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: report id is required", ErrInvalidFilter)
	}
	return s.store.FindByID(ctx, id)
}

// Metrics rolls all reports in the window up into one summary: report counts
// per category and the sum of every scalar indicator across reports.
func (s *Service) Metrics(ctx context.Context, from, to time.Time) (*MetricsResponse, error) {
	reports, err := s.store.ListForMetrics(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load reports for metrics: %w", err)
	}

	resp := &MetricsResponse{
		ReportsByType:        make(map[string]int64),
		AggregatedIndicators: make(map[string]decimal.Decimal),
	}
	for _, r := range reports {
		resp.TotalReports++
		resp.ReportsByType[r.Category]++
		for name, value := range r.Indicators.Counters {
			resp.AggregatedIndicators[name] = resp.AggregatedIndicators[name].Add(value)
		}
	}
	return resp, nil
}

func (s *Service) buildFilter(req ListReportsRequest) (storage.ReportFilter, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	filter := storage.ReportFilter{
		Category: req.Category,
		Status:   report.Status(req.Status),
		Page:     page,
		Limit:    limit,
	}

	if req.From != "" {
		from, err := time.Parse(time.RFC3339, req.From)
		if err != nil {
			return storage.ReportFilter{}, fmt.Errorf("%w: bad from %q: %v", ErrInvalidFilter, req.From, err)
		}
		filter.PeriodStart = from
	}
	if req.To != "" {
		to, err := time.Parse(time.RFC3339, req.To)
		if err != nil {
			return storage.ReportFilter{}, fmt.Errorf("%w: bad to %q: %v", ErrInvalidFilter, req.To, err)
		}
		filter.PeriodEnd = to
	}
	if !filter.PeriodStart.IsZero() && !filter.PeriodEnd.IsZero() && filter.PeriodStart.After(filter.PeriodEnd) {
		return storage.ReportFilter{}, fmt.Errorf("%w: from is after to", ErrInvalidFilter)
	}

	return filter, nil
}
