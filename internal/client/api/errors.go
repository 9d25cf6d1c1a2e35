package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 1 << 20

// Error is a non-2xx response from the task API.
type Error struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Status is the status text for StatusCode.
	Status string
	// Detail is the server's "detail" message, or the status line when the
	// body carries none.
	Detail string
	// Payload is the raw JSON body when it parsed, nil otherwise.
	Payload json.RawMessage
}

func (e *Error) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Detail)
}

// NetworkError means no response was received.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized)
}

// IsForbidden reports whether err is a 403 response (task owned by another
// user).
func IsForbidden(err error) bool {
	return hasStatus(err, http.StatusForbidden)
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

func hasStatus(err error, code int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// parseError builds an *Error from resp, extracting "detail" from a
// best-effort JSON parse of the body.
func parseError(resp *http.Response) *Error {
	e := &Error{
		StatusCode: resp.StatusCode,
		Status:     http.StatusText(resp.StatusCode),
	}
	e.Detail = fmt.Sprintf("%d %s", e.StatusCode, e.Status)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(body) == 0 || !json.Valid(body) {
		return e
	}
	e.Payload = json.RawMessage(body)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return e
	}
	raw, ok := fields["detail"]
	if !ok {
		return e
	}
	var detail string
	if err := json.Unmarshal(raw, &detail); err == nil {
		if detail != "" {
			e.Detail = detail
		}
		return e
	}
	// FastAPI-style validation errors carry a list; keep it verbatim.
	e.Detail = string(raw)
	return e
}
