package warmup

import "context"

// Requester defines the component able to perform a cached fetch against the upstream
// charts & statistics API
type Requester interface {
	Request(ctx context.Context, endpoint string, params map[string]string, useCache bool) ([]byte, error)

	IsInterfaceNil() bool
}
