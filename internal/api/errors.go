package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed backend call.
type Kind int

const (
	KindOther Kind = iota
	KindNetwork
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindServer
)

// Error is a failed backend call: either a non-2xx response or no response at all.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Kind == KindNetwork {
		return fmt.Sprintf("backend unreachable: %v", e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("backend error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend error %d", e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

// Notice is the user-facing message for the failure.
func (e *Error) Notice() string {
	switch e.Kind {
	case KindNetwork:
		return "Network error. Please check your connection."
	case KindUnauthorized:
		return "Session expired. Please login again."
	case KindForbidden:
		return orDefault(e.Message, "Access denied. Insufficient permissions.")
	case KindNotFound:
		return orDefault(e.Message, "Resource not found.")
	case KindConflict:
		return orDefault(e.Message, "Resource already exists.")
	case KindServer:
		return "Server error. Please try again later."
	default:
		return orDefault(e.Message, "An error occurred. Please try again.")
	}
}

func newStatusError(status int, message string) *Error {
	return &Error{Kind: kindFor(status), Status: status, Message: message}
}

func kindFor(status int) Kind {
	switch status {
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	case http.StatusInternalServerError:
		return KindServer
	default:
		return KindOther
	}
}

func orDefault(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}

// Notice returns the user-facing message for any error returned by the client.
func Notice(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Notice()
	}
	return "An unexpected error occurred."
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindUnauthorized
}
