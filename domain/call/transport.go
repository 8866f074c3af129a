package call

import "context"

// RawFailure is the closed failure shape produced at the transport boundary.
// Transports convert their concrete error types into this struct so the
// classifier never probes dynamic shapes.
type RawFailure struct {
	// StatusCode is the HTTP status, or 0 when the failure never reached
	// the API (connection errors, timeouts).
	StatusCode int
	// ErrorCode is the API's machine-readable error code, if any.
	ErrorCode string
	// Message is the failure description.
	Message string
}

// Error implements the error interface.
func (f *RawFailure) Error() string {
	return f.Message
}

// ClientConfig selects the API endpoint a pooled client talks to.
type ClientConfig struct {
	// Region is the API region.
	Region string
	// Credential authenticates the client.
	Credential string
}

// ClientHandle identifies a leased transport client.
type ClientHandle struct {
	// ClientID identifies the lease for release.
	ClientID string
}

// ClientPool leases transport clients. Connection lifecycle management
// lives behind this interface; the coordinator only borrows and returns.
type ClientPool interface {
	// GetClient leases a client for the given configuration.
	GetClient(ctx context.Context, cfg ClientConfig) (ClientHandle, error)

	// ReleaseClient returns a leased client to the pool.
	ReleaseClient(clientID string)
}

// Transport dispatches one call to the external transcription API.
// Implementations report failures as *RawFailure where possible so the
// classifier operates on a closed type.
type Transport interface {
	// Dispatch performs the call and returns the operation output.
	Dispatch(ctx context.Context, client ClientHandle, req Request) (any, error)
}
