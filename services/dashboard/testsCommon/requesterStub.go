package testsCommon

import "context"

// RequesterStub -
type RequesterStub struct {
	RequestHandler func(ctx context.Context, endpoint string, params map[string]string, useCache bool) ([]byte, error)
}

// Request -
func (stub *RequesterStub) Request(ctx context.Context, endpoint string, params map[string]string, useCache bool) ([]byte, error) {
	if stub.RequestHandler != nil {
		return stub.RequestHandler(ctx, endpoint, params, useCache)
	}

	return []byte("{}"), nil
}

// IsInterfaceNil -
func (stub *RequesterStub) IsInterfaceNil() bool {
	return stub == nil
}
