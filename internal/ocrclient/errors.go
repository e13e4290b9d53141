package ocrclient

import (
	"errors"
	"fmt"
)

// RequestError is returned when a request did not produce a usable response.
type RequestError struct {
	// StatusCode is set for 4xx answers, which are never retried.
	StatusCode int
	Attempts   int
	Err        error
}

func (e *RequestError) Error() string {
	if e.clientError() {
		return fmt.Sprintf("OCR request failed: %v", e.Err)
	}
	return fmt.Sprintf("OCR request failed after %d attempts. Last error: %v", e.Attempts, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

func (e *RequestError) clientError() bool { return e.StatusCode >= 400 && e.StatusCode < 500 }

// IsClientError reports whether err is a rejected (4xx) request.
func IsClientError(err error) bool {
	var re *RequestError
	return errors.As(err, &re) && re.clientError()
}
