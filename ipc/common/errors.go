package common

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Error Taxonomy
// --------------------------------------------------------------------------

var (
	// ErrConnClosed is returned on any zero-byte read where more data was
	// expected (length prefix or payload). It is treated as a peer-initiated
	// shutdown. Truncated frames surface as ErrConnClosed as well since a
	// length mismatch is only ever detected via a short or empty read.
	ErrConnClosed = errors.New("connection closed by peer")

	// ErrTimeout is returned when a request exceeds its wait window, or when
	// a transport operation fails at the I/O level after its window has
	// already elapsed (see the transport package for the exact contract).
	ErrTimeout = errors.New("operation timed out")

	// ErrServerStopped is returned by outbound requests when the dispatch
	// server has been stopped before a response arrived.
	ErrServerStopped = errors.New("server stopped")
)

// SerializationError is returned when a value cannot be encoded by the
// configured serializer. It carries the Go type of the offending value.
type SerializationError struct {
	TypeName string
	Err      error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("value of type %s is not serializable: %v", e.TypeName, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// NewSerializationError creates a SerializationError for the given value.
func NewSerializationError(v interface{}, err error) *SerializationError {
	return &SerializationError{
		TypeName: fmt.Sprintf("%T", v),
		Err:      err,
	}
}
