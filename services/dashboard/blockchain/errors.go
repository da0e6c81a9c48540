package blockchain

import (
	"errors"
	"fmt"
)

var errEmptyEndpoint = errors.New("empty endpoint provided")
var errEmptyBaseURL = errors.New("empty base URL provided")
var errNilResponseCache = errors.New("nil response cache")

// TransportError signals that the upstream service could not be reached or rejected the call.
// Status is 0 when the failure happened below the HTTP layer
type TransportError struct {
	Endpoint string
	Status   int
	Err      error
}

// Error returns the string representation of the error
func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport error on endpoint %s: %v", e.Endpoint, e.Err)
	}

	return fmt.Sprintf("transport error on endpoint %s: non-2xx HTTP status code %d", e.Endpoint, e.Status)
}

// Unwrap returns the underlying cause, if any
func (e *TransportError) Unwrap() error {
	return e.Err
}

// MalformedResponseError signals that the upstream body could not be parsed as JSON
type MalformedResponseError struct {
	Endpoint string
}

// Error returns the string representation of the error
func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response body on endpoint %s: not a valid JSON document", e.Endpoint)
}
