package importer

import "errors"

var (
	// ErrFetchFailed matches every TransportError.
	ErrFetchFailed = errors.New("Failed to fetch recipe")
	// ErrUnknownResponse is returned when the body carries neither data nor error.
	ErrUnknownResponse = errors.New("Unknown error")
)

// TransportError means the scrape request did not complete successfully:
// either the connection failed or the service answered with a non-2xx status.
// The message is always the generic fetch failure; response bodies are discarded.
type TransportError struct {
	StatusCode int // zero for connection-level failures
	Err        error
}

func (e *TransportError) Error() string { return ErrFetchFailed.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrFetchFailed }

// ProtocolError wraps a response body that could not be decoded.
// It keeps the decoder's own message.
type ProtocolError struct {
	Err error
}

func (e *ProtocolError) Error() string { return e.Err.Error() }

func (e *ProtocolError) Unwrap() error { return e.Err }

// RemoteError carries the failure message reported by the scraping service.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string { return e.Message }
