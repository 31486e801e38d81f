// Package errors defines the error type services hand to the HTTP layer and
// the JSON envelope it is rendered into.
package errors

import "net/http"

type APIError struct {
	Status  int         `json:"-"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Envelope renders the error as the response body. requestID ties the reply
// to the access log line and is omitted when empty.
func (e *APIError) Envelope(requestID string) map[string]interface{} {
	if e == nil {
		e = Internal("")
	}
	body := map[string]interface{}{
		"code":    e.Code,
		"message": e.Message,
	}
	if e.Details != nil {
		body["details"] = e.Details
	}
	if requestID != "" {
		body["requestId"] = requestID
	}
	return map[string]interface{}{"error": body}
}

// StatusCode falls back to 500 for a nil error.
func (e *APIError) StatusCode() int {
	if e == nil || e.Status == 0 {
		return http.StatusInternalServerError
	}
	return e.Status
}

func New(status int, code, message string) *APIError {
	return &APIError{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

func Internal(message string) *APIError {
	if message == "" {
		message = "internal server error"
	}
	return New(http.StatusInternalServerError, "internal_error", message)
}

func BadRequest(code, message string) *APIError {
	return New(http.StatusBadRequest, code, message)
}

func Unauthorized(message string) *APIError {
	if message == "" {
		message = "unauthorized"
	}
	return New(http.StatusUnauthorized, "unauthorized", message)
}

func Conflict(code, message string, details interface{}) *APIError {
	err := New(http.StatusConflict, code, message)
	err.Details = details
	return err
}

// Unavailable reports a temporarily unusable resource, such as a timer that
// is shutting down.
func Unavailable(code, message string) *APIError {
	return New(http.StatusServiceUnavailable, code, message)
}
