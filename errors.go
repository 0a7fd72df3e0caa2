package zetsubou

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrorKind classifies an API failure. Callers branch on the kind rather
// than on concrete error types.
type ErrorKind string

// Error kinds, mapped from HTTP status codes by the transport.
const (
	// ErrorKindAPI is the catch-all for non-transient API failures that do
	// not fit a more specific kind.
	ErrorKindAPI ErrorKind = "api"

	// ErrorKindAuthentication covers 401 and 403 responses. The API key is
	// missing, invalid, or lacks the required scope.
	ErrorKindAuthentication ErrorKind = "authentication"

	// ErrorKindValidation covers 400 and 422 responses. The request was
	// malformed or failed server-side validation.
	ErrorKindValidation ErrorKind = "validation"

	// ErrorKindNotFound covers 404 responses.
	ErrorKindNotFound ErrorKind = "not_found"

	// ErrorKindRateLimit covers 429 responses. RetryAfter carries the
	// server-provided wait.
	ErrorKindRateLimit ErrorKind = "rate_limit"

	// ErrorKindServer covers 5xx responses. Transient.
	ErrorKindServer ErrorKind = "server"

	// ErrorKindConnection covers transport failures where no HTTP response
	// was received. Transient.
	ErrorKindConnection ErrorKind = "connection"

	// ErrorKindTimeout is returned when a wait deadline expires before the
	// job reaches a terminal state.
	ErrorKindTimeout ErrorKind = "timeout"
)

// Error is the error type for all API and transport failures. It carries a
// kind tag plus the structured payload from the server, when one was
// received.
type Error struct {
	Kind       ErrorKind
	StatusCode int    // 0 when no HTTP response was seen
	Code       string // server error code, when present
	Message    string

	// RetryAfter is the wait the server requested on a rate-limited
	// response. Zero for all other kinds.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("zetsubou: %s error (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("zetsubou: %s error: %s", e.Kind, e.Message)
}

// Transient reports whether the failure is expected to resolve on retry.
func (e *Error) Transient() bool {
	return e.Kind == ErrorKindServer || e.Kind == ErrorKindConnection
}

// errorEnvelope matches the error body shapes the API emits: a flat
// {"message": ..., "code": ...} object, or {"error": "..."} from the
// success-flag endpoints.
type errorEnvelope struct {
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Error   json.RawMessage `json:"error"`
}

// apiError builds the typed error for a non-2xx response.
func apiError(statusCode int, header http.Header, body []byte) *Error {
	e := &Error{
		Kind:       kindForStatus(statusCode),
		StatusCode: statusCode,
		Message:    http.StatusText(statusCode),
	}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil {
		switch {
		case env.Message != "":
			e.Code = env.Code
			e.Message = env.Message
		case len(env.Error) > 0:
			var msg string
			if err := json.Unmarshal(env.Error, &msg); err == nil && msg != "" {
				e.Message = msg
			}
		}
	}

	if statusCode == http.StatusTooManyRequests {
		e.RetryAfter = retryAfterHeader(header)
	}
	return e
}

// defaultRetryAfter is used when a 429 response omits the Retry-After header.
const defaultRetryAfter = 60 * time.Second

func retryAfterHeader(header http.Header) time.Duration {
	v := header.Get("Retry-After")
	if v == "" {
		return defaultRetryAfter
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return defaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}

func kindForStatus(statusCode int) ErrorKind {
	switch {
	case statusCode == http.StatusBadRequest || statusCode == http.StatusUnprocessableEntity:
		return ErrorKindValidation
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return ErrorKindAuthentication
	case statusCode == http.StatusNotFound:
		return ErrorKindNotFound
	case statusCode == http.StatusTooManyRequests:
		return ErrorKindRateLimit
	case statusCode >= 500:
		return ErrorKindServer
	default:
		return ErrorKindAPI
	}
}

// errKind extracts the kind from an error chain. Returns "" when err does
// not wrap an *Error.
func errKind(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsAuthentication reports whether err is an authentication failure.
func IsAuthentication(err error) bool { return errKind(err) == ErrorKindAuthentication }

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool { return errKind(err) == ErrorKindValidation }

// IsNotFound reports whether err is a not-found failure.
func IsNotFound(err error) bool { return errKind(err) == ErrorKindNotFound }

// IsRateLimit reports whether err is a rate-limit failure.
func IsRateLimit(err error) bool { return errKind(err) == ErrorKindRateLimit }

// IsServer reports whether err is a server-side (5xx) failure.
func IsServer(err error) bool { return errKind(err) == ErrorKindServer }

// IsTimeout reports whether err is a timeout, either of a single request or
// of a wait deadline.
func IsTimeout(err error) bool { return errKind(err) == ErrorKindTimeout }

// IsTransient reports whether err is expected to resolve on retry.
func IsTransient(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Transient()
}
