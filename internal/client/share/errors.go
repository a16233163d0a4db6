package share

import (
	"errors"
	"fmt"
)

// ErrNoReading is reported when Dexcom Share answers with an empty reading list.
var ErrNoReading = errors.New("share: no reading available")

// maxBodyInError bounds the vendor payload quoted in error messages.
const maxBodyInError = 256

// AuthError is returned when authentication exhausted its retry budget.
type AuthError struct {
	// StatusCode is the HTTP status of the last login attempt.
	StatusCode int
	// Body is the raw payload of the last login attempt.
	Body []byte
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("share: authentication failed with status %d: %s", e.StatusCode, snippet(e.Body))
}

// FetchError is returned when fetching exhausted its retry budget despite a valid session.
type FetchError struct {
	// StatusCode is the HTTP status of the last fetch attempt.
	StatusCode int
	// Body is the raw payload of the last fetch attempt.
	Body []byte
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("share: fetch failed with status %d: %s", e.StatusCode, snippet(e.Body))
}

// ParseError is returned when a successful fetch carried an empty or malformed payload.
// Err is ErrNoReading for an empty list.
type ParseError struct {
	Body []byte
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("share: parse reading: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// TransportError is returned when no HTTP response was received at all.
type TransportError struct {
	// Op names the request that failed ("login" or "fetch").
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("share: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func snippet(b []byte) string {
	if len(b) > maxBodyInError {
		return string(b[:maxBodyInError]) + "..."
	}
	return string(b)
}
