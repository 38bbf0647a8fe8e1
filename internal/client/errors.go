package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Backend result codes.
const (
	CodeOK             = 0
	CodeHTTPOK         = 200
	CodeUnauthorized   = 401
	CodeNotFound       = 40401
	CodeRefreshLimited = 40402
)

// ErrUnauthorized is returned when the backend rejects the session token.
// The caller must discard the token and ask the user to log in again.
var ErrUnauthorized = errors.New("not authenticated")

// ErrBodyTooLarge is returned when a response exceeds the client's size cap.
var ErrBodyTooLarge = errors.New("response body too large")

// APIError is a failure reported by the backend through its response envelope.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

// Quiet reports whether the error is one the caller handles itself instead of
// showing the generic failure message.
func (e *APIError) Quiet() bool {
	return e.Code == CodeRefreshLimited
}

// StatusError is returned for HTTP 404 responses. It carries the raw body so
// callers can branch on the status.
type StatusError struct {
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Status)
}

// IsNotFound reports whether err is an HTTP 404 or a backend not-found code.
func IsNotFound(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status == http.StatusNotFound
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Code == CodeNotFound
	}
	return false
}

// IsQuiet reports whether err is a backend error the caller must handle itself.
func IsQuiet(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Quiet()
}

// Message returns the text to show a user for err, preferring the message
// the backend supplied.
func Message(err error) string {
	var ae *APIError
	var se *StatusError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthorized):
		return "Session expired, please /login again."
	case errors.As(err, &ae):
		return ae.Message
	case errors.As(err, &se):
		if se.Status == http.StatusNotFound {
			return "Not found."
		}
		return se.Error()
	default:
		return err.Error()
	}
}
