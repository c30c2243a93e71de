package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnavailable     = errors.New("server unavailable")
	ErrTimeout         = errors.New("request timed out")
	ErrInvalidResponse = errors.New("invalid response format from server")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrMFARequired     = errors.New("mfa verification required")
	ErrTooLarge        = errors.New("payload too large")
)

// APIError is a non-2xx response. Message and Details come from the
// {error, details} body; Malformed is set when the body was not JSON.
// MFASessionToken is only present on a step-up 403.
type APIError struct {
	StatusCode      int
	Status          string
	Message         string
	Details         string
	RequiresMFA     bool
	MFASessionToken string
	Malformed       bool
}

func (e *APIError) Error() string {
	switch {
	case e.Message != "" && e.Details != "":
		return fmt.Sprintf("api error %d: %s - %s", e.StatusCode, e.Message, e.Details)
	case e.Message != "":
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.StatusText())
	}
}

// StatusText is the reason phrase of the response, or the standard text for
// its code.
func (e *APIError) StatusText() string {
	if e.Status != "" {
		return e.Status
	}
	return http.StatusText(e.StatusCode)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrMFARequired:
		return e.StatusCode == http.StatusForbidden && e.RequiresMFA
	case ErrTooLarge:
		return e.StatusCode == http.StatusRequestEntityTooLarge
	case ErrInvalidResponse:
		return e.Malformed
	}
	return false
}

// AsAPIError unwraps err to an *APIError if there is one.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
