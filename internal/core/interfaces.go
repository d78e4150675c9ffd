package core

import (
	"context"
	"io"

	"greenhouse-service/internal/messaging"
	"greenhouse-service/internal/types"
)

// MessagingClient defines the Redis operations needed by GreenhouseSystem
type MessagingClient interface {
	SetCallbacks(callbacks messaging.Callbacks)
	Connect() error
	StartListening() error
	Close() error

	PublishSample(sample types.Sample) error
	PublishOutputs(cmd types.Command) error
	PublishDriverState(driver string, state string) error
}

// NodeRegistrar creates and removes the pseudo-file node of a driver.
type NodeRegistrar interface {
	Register(name string) error
	Unregister(name string) error
}

// NodeServer additionally connects node I/O to driver sessions.
type NodeServer interface {
	NodeRegistrar
	ServeSource(ctx context.Context, name string, open func() (io.ReadCloser, error)) error
	ServeSink(ctx context.Context, name string, open func() (io.WriteCloser, error)) error
}
