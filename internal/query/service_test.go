package query

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulse-lab/pulse-reports/internal/core/period"
	"github.com/pulse-lab/pulse-reports/internal/core/report"
	"github.com/pulse-lab/pulse-reports/internal/core/storage"
	"github.com/pulse-lab/pulse-reports/internal/core/storage/memory"
)

// seedReport creates a report for (category, day) and bumps its counters.
func seedReport(t *testing.T, store *memory.Store, category string, day time.Time, counters map[string]int64) *report.Report {
	t.Helper()
	ctx := context.Background()

	p := period.Resolve(day, period.Daily)
	rep, err := store.FindOrCreate(ctx, category, p)
	require.NoError(t, err)

	rep, err = store.ApplyIndicatorUpdate(ctx, rep.ID, func(in report.Indicators) (report.Indicators, error) {
		for name, n := range counters {
			in.Add(name, decimal.NewFromInt(n))
		}
		return in, nil
	})
	require.NoError(t, err)
	return rep
}

func day(n int) time.Time {
	return time.Date(2023, 11, n, 12, 0, 0, 0, time.UTC)
}

func TestListReports_FilterByCategory(t *testing.T) {
	store := memory.NewStore()
	seedReport(t, store, "orders", day(1), map[string]int64{"totalOrders": 3})
	seedReport(t, store, "delivery", day(1), map[string]int64{"deliveriesCompleted": 2})
	svc := NewService(store)

	resp, err := svc.ListReports(context.Background(), ListReportsRequest{Category: "orders"})
	require.NoError(t, err)
	require.Len(t, resp.Reports, 1)
	assert.Equal(t, "orders", resp.Reports[0].Category)
	assert.Equal(t, int64(1), resp.Total)
}

func TestListReports_Pagination(t *testing.T) {
	store := memory.NewStore()
	for i := 1; i <= 7; i++ {
		seedReport(t, store, "orders", day(i), map[string]int64{"totalOrders": 1})
	}
	svc := NewService(store)

	resp, err := svc.ListReports(context.Background(), ListReportsRequest{Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.Len(t, resp.Reports, 3)
	assert.Equal(t, int64(7), resp.Total)
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, int64(3), resp.TotalPages)
}

func TestListReports_EmptyResultIsNotNil(t *testing.T) {
	svc := NewService(memory.NewStore())

	resp, err := svc.ListReports(context.Background(), ListReportsRequest{})
	require.NoError(t, err)
	require.NotNil(t, resp.Reports)
	assert.Empty(t, resp.Reports)
}

func TestListReports_InvalidTimeFilter(t *testing.T) {
	svc := NewService(memory.NewStore())

	_, err := svc.ListReports(context.Background(), ListReportsRequest{From: "yesterday"})
	require.ErrorIs(t, err, ErrInvalidFilter)

	_, err = svc.ListReports(context.Background(), ListReportsRequest{
		From: "2023-11-08T00:00:00Z",
		To:   "2023-11-01T00:00:00Z",
	})
	require.ErrorIs(t, err, ErrInvalidFilter)
}

func TestGetReport(t *testing.T) {
	store := memory.NewStore()
	seeded := seedReport(t, store, "orders", day(1), map[string]int64{"totalOrders": 5})
	svc := NewService(store)

	rep, err := svc.GetReport(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, rep.ID)
	assert.True(t, rep.Indicators.Counter("totalOrders").Equal(decimal.NewFromInt(5)))

	_, err = svc.GetReport(context.Background(), "ghost")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = svc.GetReport(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalidFilter)
}

func TestMetrics_RollsUpAcrossReports(t *testing.T) {
	store := memory.NewStore()
	seedReport(t, store, "orders", day(1), map[string]int64{"totalOrders": 3, "totalEvents": 3})
	seedReport(t, store, "orders", day(2), map[string]int64{"totalOrders": 2, "totalEvents": 2})
	seedReport(t, store, "delivery", day(1), map[string]int64{"deliveriesCompleted": 4, "totalEvents": 4})
	svc := NewService(store)

	resp, err := svc.Metrics(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)

	assert.Equal(t, int64(3), resp.TotalReports)
	assert.Equal(t, int64(2), resp.ReportsByType["orders"])
	assert.Equal(t, int64(1), resp.ReportsByType["delivery"])
	assert.True(t, resp.AggregatedIndicators["totalOrders"].Equal(decimal.NewFromInt(5)))
	assert.True(t, resp.AggregatedIndicators["totalEvents"].Equal(decimal.NewFromInt(9)))
	assert.True(t, resp.AggregatedIndicators["deliveriesCompleted"].Equal(decimal.NewFromInt(4)))
}

func TestMetrics_WindowedRollup(t *testing.T) {
	store := memory.NewStore()
	seedReport(t, store, "orders", day(1), map[string]int64{"totalOrders": 3})
	seedReport(t, store, "orders", day(20), map[string]int64{"totalOrders": 7})
	svc := NewService(store)

	from := time.Date(2023, 11, 15, 0, 0, 0, 0, time.UTC)
	resp, err := svc.Metrics(context.Background(), from, time.Time{})
	require.NoError(t, err)

	assert.Equal(t, int64(1), resp.TotalReports)
	assert.True(t, resp.AggregatedIndicators["totalOrders"].Equal(decimal.NewFromInt(7)))
}

func TestListReports_LimitCapped(t *testing.T) {
	store := memory.NewStore()
	seedReport(t, store, "orders", day(1), map[string]int64{"totalOrders": 1})
	svc := NewService(store)

	resp, err := svc.ListReports(context.Background(), ListReportsRequest{Limit: 100000})
	require.NoError(t, err)
	assert.Equal(t, maxPageSize, resp.PerPage, fmt.Sprintf("limit must cap at %d", maxPageSize))
}
