package query

import (
	"github.com/shopspring/decimal"

	"github.com/pulse-lab/pulse-reports/internal/core/report"
)

// ListReportsRequest carries the normalized filter for a report listing.
type ListReportsRequest struct {
	Category string
	Status   string
	From     string // RFC3339; empty = unbounded
	To       string
	Page     int
	Limit    int
}

// ListReportsResponse is the paginated listing payload.
type ListReportsResponse struct {
	Reports    []*report.Report `json:"reports"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	PerPage    int              `json:"per_page"`
	TotalPages int64            `json:"total_pages"`
}

// MetricsResponse is the cross-report rollup.
type MetricsResponse struct {
	TotalReports         int64                      `json:"totalReports"`
	ReportsByType        map[string]int64           `json:"reportsByType"`
	AggregatedIndicators map[string]decimal.Decimal `json:"aggregatedIndicators"`
}
