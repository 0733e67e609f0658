package transport

import (
	"time"
)

// IIPCTransport is the interface for the framed transport layer. It turns
// two unidirectional byte streams into discrete messages.
//
// All implementations must be safe for one concurrent sender and one
// concurrent receiver; multiple concurrent senders must be serialized by
// the implementation.
type IIPCTransport interface {
	// Send transmits a single message to the peer
	Send(data []byte) error

	// SendTimeout transmits a single message with a weak timeout contract:
	// the operation is attempted as a normal blocking call and only an
	// I/O-level failure after the timeout window has elapsed is reported
	// as common.ErrTimeout. A successful but slow call is not interrupted.
	SendTimeout(data []byte, timeout time.Duration) error

	// Receive reads the next complete message from the peer. A zero-byte
	// read where data was expected returns common.ErrConnClosed.
	Receive() ([]byte, error)

	// ReceiveTimeout reads the next message with the same weak timeout
	// contract as SendTimeout.
	ReceiveTimeout(timeout time.Duration) ([]byte, error)

	// Close closes both underlying streams
	Close() error
}
