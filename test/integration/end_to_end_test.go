package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	v1 "github.com/pulse-lab/pulse-reports/internal/api/v1"
	"github.com/pulse-lab/pulse-reports/internal/consumer"
	"github.com/pulse-lab/pulse-reports/internal/core/storage/memory"
	"github.com/pulse-lab/pulse-reports/internal/core/strategy"
	"github.com/pulse-lab/pulse-reports/internal/ingestion"
	"github.com/pulse-lab/pulse-reports/internal/metrics"
	"github.com/pulse-lab/pulse-reports/internal/pipeline"
	"github.com/pulse-lab/pulse-reports/internal/query"
	"github.com/pulse-lab/pulse-reports/internal/transport/channel"
)

type harness struct {
	server        *httptest.Server
	client        *http.Client
	store         *memory.Store
	cancel        context.CancelFunc
	consumersDone chan error
}

func startHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	registry := strategy.NewRegistry()
	strategy.RegisterBuiltins(registry)

	bus := channel.NewEventBus(256)
	pipe := pipeline.New(store, registry, pipeline.NewCategoryMapper(), metrics.NewNoopSink())
	workers := consumer.New(pipe, 4, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	consumersDone := make(chan error, 1)
	go func() { consumersDone <- workers.Run(ctx, bus.Channel()) }()

	r := gin.New()
	ingestion.NewService(bus, 1).RegisterRoutes(r)
	query.NewService(store).RegisterRoutes(r)

	srv := httptest.NewServer(r)

	h := &harness{
		server:        srv,
		client:        srv.Client(),
		store:         store,
		cancel:        cancel,
		consumersDone: consumersDone,
	}
	t.Cleanup(func() { h.close(t) })
	return h
}

func (h *harness) close(t *testing.T) {
	t.Helper()

	h.cancel()
	select {
	case err := <-h.consumersDone:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Log("consumer shutdown timed out")
	}
	h.server.Close()
}

func (h *harness) postEvent(t *testing.T, evt v1.Event) *http.Response {
	t.Helper()

	body, err := json.Marshal(evt)
	require.NoError(t, err)

	resp, err := h.client.Post(h.server.URL+"/v1/events", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func (h *harness) getJSON(t *testing.T, path string, out interface{}) {
	t.Helper()

	resp, err := h.client.Get(h.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func (h *harness) waitProcessed(t *testing.T, eventID string) {
	t.Helper()

	require.Eventually(t, func() bool {
		processed, err := h.store.IsProcessed(context.Background(), eventID)
		return err == nil && processed
	}, 3*time.Second, 10*time.Millisecond, "event %s was never aggregated", eventID)
}

func TestEndToEnd_IngestAggregateQuery(t *testing.T) {
	h := startHarness(t)

	day := time.Date(2023, 11, 8, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		evt := v1.Event{
			ID:        fmt.Sprintf("evt-%d", i),
			Type:      "orders.created",
			Timestamp: day.Add(time.Duration(i) * time.Hour),
			Data:      map[string]interface{}{"total": 10.5},
		}
		resp := h.postEvent(t, evt)
		require.Equal(t, http.StatusAccepted, resp.StatusCode)
		resp.Body.Close()
	}
	for i := 0; i < 3; i++ {
		h.waitProcessed(t, fmt.Sprintf("evt-%d", i))
	}

	var listing struct {
		Reports []struct {
			ID         string                 `json:"id"`
			Category   string                 `json:"category"`
			Indicators map[string]interface{} `json:"indicators"`
		} `json:"reports"`
		Total int64 `json:"total"`
	}
	h.getJSON(t, "/v1/reports?category=orders", &listing)
	require.Equal(t, int64(1), listing.Total, "same-day events share one report")
	require.Equal(t, "orders", listing.Reports[0].Category)
	require.Equal(t, "3", fmt.Sprint(listing.Reports[0].Indicators["totalOrders"]))
	require.Equal(t, "31.5", fmt.Sprint(listing.Reports[0].Indicators["totalOrderValue"]))

	var metricsResp struct {
		TotalReports  int64            `json:"totalReports"`
		ReportsByType map[string]int64 `json:"reportsByType"`
	}
	h.getJSON(t, "/v1/metrics", &metricsResp)
	require.Equal(t, int64(1), metricsResp.TotalReports)
	require.Equal(t, int64(1), metricsResp.ReportsByType["orders"])
}

func TestEndToEnd_DuplicateDeliveryCountsOnce(t *testing.T) {
	h := startHarness(t)

	evt := v1.Event{
		ID:        "evt-dup",
		Type:      "orders.created",
		Timestamp: time.Date(2023, 11, 8, 10, 0, 0, 0, time.UTC),
		Data:      map[string]interface{}{"total": 25},
	}

	for i := 0; i < 5; i++ {
		resp := h.postEvent(t, evt)
		require.Equal(t, http.StatusAccepted, resp.StatusCode)
		resp.Body.Close()
	}
	h.waitProcessed(t, "evt-dup")

	// Give redeliveries time to flow through the pipeline.
	time.Sleep(100 * time.Millisecond)

	var listing struct {
		Reports []struct {
			Indicators map[string]interface{} `json:"indicators"`
		} `json:"reports"`
	}
	h.getJSON(t, "/v1/reports?category=orders", &listing)
	require.Len(t, listing.Reports, 1)
	require.Equal(t, "1", fmt.Sprint(listing.Reports[0].Indicators["totalOrders"]),
		"five deliveries of one event must count once")
}

func TestEndToEnd_MixedSubjectsRouteToCategories(t *testing.T) {
	h := startHarness(t)

	day := time.Date(2023, 11, 8, 10, 0, 0, 0, time.UTC)
	events := []v1.Event{
		{ID: "o1", Type: "orders.created", Timestamp: day, Data: map[string]interface{}{"total": 5}},
		{ID: "d1", Type: "delivery.completed", Timestamp: day, Data: map[string]interface{}{"duration": 12}},
		{ID: "n1", Type: "notification.sent", Timestamp: day, Data: map[string]interface{}{"type": "email"}},
		{ID: "x1", Type: "billing.invoiced", Timestamp: day},
	}
	for _, evt := range events {
		resp := h.postEvent(t, evt)
		require.Equal(t, http.StatusAccepted, resp.StatusCode)
		resp.Body.Close()
	}
	for _, evt := range events {
		h.waitProcessed(t, evt.ID)
	}

	var metricsResp struct {
		TotalReports  int64            `json:"totalReports"`
		ReportsByType map[string]int64 `json:"reportsByType"`
	}
	h.getJSON(t, "/v1/metrics", &metricsResp)
	require.Equal(t, int64(4), metricsResp.TotalReports)
	require.Equal(t, int64(1), metricsResp.ReportsByType["orders"])
	require.Equal(t, int64(1), metricsResp.ReportsByType["delivery"])
	require.Equal(t, int64(1), metricsResp.ReportsByType["notifications"])
	require.Equal(t, int64(1), metricsResp.ReportsByType["general"])
}
