package factory

import "context"

// Server defines the operation of an entity able to serve requests
type Server interface {
	Start()
	Address() string
	Close() error
}

// Warmer defines the operation of an entity able to refresh the response cache
type Warmer interface {
	Process(ctx context.Context)
	IsInterfaceNil() bool
}
