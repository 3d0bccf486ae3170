// Package tdapi dispatches authenticated REST calls to the broker API. Each
// call validates the credential first and then makes exactly one HTTP round
// trip. Nothing is retried: failures surface as *RequestError.
package tdapi

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, tdapi.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("tdapi: bad request")
	ErrUnauthorized = errors.New("tdapi: unauthorized")
	ErrForbidden    = errors.New("tdapi: forbidden")
	ErrNotFound     = errors.New("tdapi: not found")
	ErrThrottled    = errors.New("tdapi: throttled")
	ErrServerError  = errors.New("tdapi: server error")
	// ErrAPIError marks a 2xx response whose body is an error object.
	ErrAPIError = errors.New("tdapi: error response")
)

// redactedAuthorization replaces the bearer token in error reports.
const redactedAuthorization = "Bearer XXXXXXX"

// RequestError describes a failed dispatch: the status, the request that
// was sent (headers redacted), and the response body for debugging.
type RequestError struct {
	StatusCode int
	Method     string
	URL        string
	Header     http.Header // request headers, Authorization redacted
	Body       string      // response body
	Err        error       // sentinel, for errors.Is()
}

func (e *RequestError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("tdapi: %s %s: HTTP %d", e.Method, e.URL, e.StatusCode)
	}

	return fmt.Sprintf("tdapi: %s %s: HTTP %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		if code >= http.StatusMultipleChoices || code < http.StatusOK {
			return ErrBadRequest
		}

		return nil
	}
}

// redactHeader copies h with the Authorization value masked.
func redactHeader(h http.Header) http.Header {
	out := h.Clone()
	if out.Get("Authorization") != "" {
		out.Set("Authorization", redactedAuthorization)
	}

	return out
}
