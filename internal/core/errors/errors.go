package errors

const (
	HttpInternalError      = "internal_error"
	HttpInvalidJsonError   = "invalid_json"
	HttpMissingEventError  = "missing_event_id"
	HttpReportNotFound     = "report_not_found"
	HttpInvalidFilterError = "invalid_filter"
	HttpPayloadTooLarge    = "payload_too_large"
)

// ErrorResponse is the error response body for API errors.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
