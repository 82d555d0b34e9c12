package ingestion

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	v1 "github.com/pulse-lab/pulse-reports/internal/api/v1"
	httperr "github.com/pulse-lab/pulse-reports/internal/core/errors"
	"github.com/pulse-lab/pulse-reports/internal/transport/channel"
)

const (
	msgReadBodyFailed = "Failed to read request body"
	msgInvalidJSON    = "Invalid JSON body"
	msgEnqueueFailed  = "Failed to enqueue event"

	// SubjectHeader overrides the routing subject when the body carries none.
	SubjectHeader = "X-Event-Subject"
)

// ingestionError carries the structured HTTP error shape from a helper back to the handler.
// Helpers return this instead of writing to gin.Context directly, keeping them decoupled from HTTP.
type ingestionError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
}

func (e *ingestionError) Error() string {
	return e.message
}

// IngestHandler accepts one event and hands it to the bus. The 202 means
// "queued", not "aggregated": workers apply the event asynchronously.
func (s *Service) IngestHandler(c *gin.Context) {
	evt, subject, payloadSize, err := s.parseEvent(c)
	if err != nil {
		writeError(c, err)
		return
	}

	if verr := evt.Validate(); verr != nil {
		slog.Warn("Envelope validation failed", "error", verr, "event_id", evt.ID)
		writeError(c, &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpMissingEventError,
			message:    verr.Error(),
		})
		return
	}

	slog.Info("Received Event",
		"event_id", evt.ID,
		"event_type", evt.Type,
		"subject", subject,
		"payload_size", payloadSize)

	if emitErr := s.bus.Emit(c.Request.Context(), channel.Delivery{Subject: subject, Event: evt}); emitErr != nil {
		status := http.StatusInternalServerError
		if emitErr == channel.ErrBufferFull {
			status = http.StatusServiceUnavailable
		}
		slog.Error("Failed to enqueue event", "error", emitErr, "event_id", evt.ID)
		writeError(c, &ingestionError{
			statusCode: status,
			errorType:  httperr.HttpInternalError,
			message:    msgEnqueueFailed,
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// parseEvent reads the raw request body, binds the event envelope and picks
// the routing subject: body field first, header second, event type last.
func (s *Service) parseEvent(c *gin.Context) (*v1.Event, string, int, *ingestionError) {
	maxBytes := int64(s.maxBodySizeBytes)
	limitedBody := io.LimitReader(c.Request.Body, maxBytes+1) // +1 to detect oversized requests

	bodyBytes, err := io.ReadAll(limitedBody)
	if err != nil {
		slog.Error("Failed to read request body", "error", err)
		return nil, "", 0, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}

	if int64(len(bodyBytes)) > maxBytes {
		slog.Warn("Request body exceeds maximum size", "size", len(bodyBytes), "max", maxBytes)
		return nil, "", len(bodyBytes), &ingestionError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpPayloadTooLarge,
			message:    "Request body exceeds maximum allowed size",
			details: map[string]interface{}{
				"max_size_mb": maxBytes / (1024 * 1024),
			},
		}
	}

	var evt v1.Event
	if err := json.Unmarshal(bodyBytes, &evt); err != nil {
		slog.Warn("Invalid JSON body received", "error", err, "payload_size", len(bodyBytes))
		return nil, "", len(bodyBytes), &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
		}
	}

	var envelope struct {
		Subject string `json:"subject"`
	}
	_ = json.Unmarshal(bodyBytes, &envelope)

	subject := envelope.Subject
	if subject == "" {
		subject = c.GetHeader(SubjectHeader)
	}
	if subject == "" {
		subject = evt.Type
	}

	return &evt, subject, len(bodyBytes), nil
}

// writeError serializes an ingestionError as the JSON HTTP response.
func writeError(c *gin.Context, err *ingestionError) {
	c.JSON(err.statusCode, httperr.ErrorResponse{
		ErrorType: err.errorType,
		Message:   err.message,
		Details:   err.details,
	})
}
