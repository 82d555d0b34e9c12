package query

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	httperr "github.com/pulse-lab/pulse-reports/internal/core/errors"
	"github.com/pulse-lab/pulse-reports/internal/core/storage"
)

// RegisterRoutes registers all query API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/reports", s.HandleListReports)
	r.GET("/v1/reports/:id", s.HandleGetReport)
	r.GET("/v1/metrics", s.HandleMetrics)
}

// HandleListReports handles GET /v1/reports
// Query parameters: category, status, from, to, page, limit
func (s *Service) HandleListReports(c *gin.Context) {
	var query struct {
		Category string `form:"category"`
		Status   string `form:"status"`
		From     string `form:"from"`
		To       string `form:"to"`
		Page     int    `form:"page"`
		Limit    int    `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidFilterError,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return
	}

	resp, err := s.ListReports(c.Request.Context(), ListReportsRequest{
		Category: query.Category,
		Status:   query.Status,
		From:     query.From,
		To:       query.To,
		Page:     query.Page,
		Limit:    query.Limit,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidFilter) {
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidFilterError,
				Message:   "Invalid report filter",
				Details:   err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to list reports",
			Details:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// HandleGetReport handles GET /v1/reports/:id
func (s *Service) HandleGetReport(c *gin.Context) {
	id := c.Param("id")

	rep, err := s.GetReport(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, httperr.ErrorResponse{
				ErrorType: httperr.HttpReportNotFound,
				Message:   "Report not found",
			})
			return
		}
		if errors.Is(err, ErrInvalidFilter) {
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidFilterError,
				Message:   err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to load report",
			Details:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, rep)
}

// HandleMetrics handles GET /v1/metrics
// Query parameters: from, to (RFC3339, both optional)
func (s *Service) HandleMetrics(c *gin.Context) {
	var query struct {
		From time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
		To   time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidFilterError,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return
	}

	resp, err := s.Metrics(c.Request.Context(), query.From, query.To)
	if err != nil {
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to compute metrics",
			Details:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}
