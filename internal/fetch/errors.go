package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

// retryableStatuses are the transient server and overload conditions worth
// a retry. The 5xx family is retryable too, except Not Implemented.
var retryableStatuses = map[int]bool{
	http.StatusRequestTimeout:  true, // 408
	http.StatusTooEarly:        true, // 425
	http.StatusTooManyRequests: true, // 429
}

// HTTPError is a non-2xx response. Retryable only for the transient
// status set; every other status is fatal.
type HTTPError struct {
	Status int
	URL    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d from %s", e.Status, e.URL)
}

// Retryable reports whether the status signals a transient condition.
func (e *HTTPError) Retryable() bool {
	if retryableStatuses[e.Status] {
		return true
	}
	return e.Status >= 500 && e.Status != http.StatusNotImplemented
}

// NetworkError is a transport-level failure where no response was
// received. Always retryable.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network failure for %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Retryable is always true for transport failures.
func (e *NetworkError) Retryable() bool { return true }

// MalformedDataError is a payload that failed basic shape checks. Fatal:
// retrying would just decode the same garbage again.
type MalformedDataError struct {
	URL string
	Err error
}

func (e *MalformedDataError) Error() string {
	return fmt.Sprintf("malformed payload from %s: %v", e.URL, e.Err)
}

func (e *MalformedDataError) Unwrap() error { return e.Err }

// Retryable is always false for malformed payloads.
func (e *MalformedDataError) Retryable() bool { return false }

type retryable interface {
	Retryable() bool
}

// Retryable classifies an error for the retry loop. Unknown error types
// are fatal.
func Retryable(err error) bool {
	var r retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return false
}
