package metrics

import "context"

// Requester defines the component able to perform a cached fetch against the upstream
// charts & statistics API
type Requester interface {
	// Request performs one logical fetch. It is the only operation in the system allowed to
	// return an error: callers that need to tell "fetch failed" apart from "no data" use it
	// directly
	Request(ctx context.Context, endpoint string, params map[string]string, useCache bool) ([]byte, error)

	IsInterfaceNil() bool
}
