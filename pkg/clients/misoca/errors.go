package misoca

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a non-2xx response from the Misoca API or its token endpoint
type Error struct {
	StatusCode int    `json:"status_code"`
	Status     string `json:"status"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
	Body       string `json:"body,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("misoca: %s: %s (status: %d)", e.Code, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("misoca: %s (status: %d)", e.Message, e.StatusCode)
}

// StatusText returns the reason phrase of the response status
func (e *Error) StatusText() string {
	return http.StatusText(e.StatusCode)
}

// IsAuthError returns true if the access token was rejected
func (e *Error) IsAuthError() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsValidationError returns true if the API refused the payload
func (e *Error) IsValidationError() bool {
	return e.StatusCode == http.StatusUnprocessableEntity
}

// IsInvalidGrant returns true if the authorization server rejected the refresh token or code
func (e *Error) IsInvalidGrant() bool {
	return e.StatusCode == http.StatusBadRequest && e.Code == "invalid_grant"
}

// IsNotFound returns true if the resource was not found
func (e *Error) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// AsError extracts a Misoca API error from an error chain
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
